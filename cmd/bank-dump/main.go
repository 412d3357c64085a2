package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"

	"github.com/xmadz/gasbank-contract/rpc/admin"
	"github.com/xmadz/gasbank-contract/rpc/bank"
)

// number of account records requested from the server per traversal call.
const iteratorBatchSize = 100

type dumpPrm struct {
	rpcEndpoint string

	bankContract  util.Uint160
	adminContract util.Uint160
	haveAdmin     bool

	listAccounts bool
}

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	bankAddress := flag.String("bank", "", "Neo address or script hash of the GAS Bank contract")
	adminAddress := flag.String("admin", "", "Neo address or script hash of the admin contract (optional)")
	listAccounts := flag.Bool("accounts", false, "List balances of all bank accounts")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *bankAddress == "":
		log.Fatal("missing bank contract address")
	}

	prm := dumpPrm{
		rpcEndpoint:  *neoRPCEndpoint,
		listAccounts: *listAccounts,
	}

	var err error

	prm.bankContract, err = parseContractAddress(*bankAddress)
	if err != nil {
		log.Fatal(fmt.Errorf("parse bank contract address: %w", err))
	}

	if *adminAddress != "" {
		prm.adminContract, err = parseContractAddress(*adminAddress)
		if err != nil {
			log.Fatal(fmt.Errorf("parse admin contract address: %w", err))
		}

		prm.haveAdmin = true
	}

	err = _dump(prm)
	if err != nil {
		log.Fatal(err)
	}
}

func _dump(prm dumpPrm) error {
	b, err := newRemoteBlockchain(prm.rpcEndpoint)
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}

	defer b.close()

	err = dumpBank(b, prm.bankContract, prm.listAccounts)
	if err != nil {
		return fmt.Errorf("dump bank contract: %w", err)
	}

	if prm.haveAdmin {
		err = dumpAdmin(b, prm.adminContract, prm.bankContract)
		if err != nil {
			return fmt.Errorf("dump admin contract: %w", err)
		}
	}

	return nil
}

// parseContractAddress accepts both Neo addresses and little-endian script
// hashes with an optional 0x prefix.
func parseContractAddress(s string) (util.Uint160, error) {
	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}

	return util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
}

func dumpBank(b *remoteBlockchain, contract util.Uint160, listAccounts bool) error {
	reader := bank.NewReader(b.inv, contract)

	version, err := reader.Version()
	if err != nil {
		return fmt.Errorf("get contract version: %w", err)
	}

	fmt.Printf("GAS Bank contract %s (version %d)\n", contract.StringLE(), version)

	authority, err := reader.GetAuthority()
	if err != nil {
		return fmt.Errorf("get authority: %w", err)
	}

	fmt.Printf("  authority: %s\n", address.Uint160ToString(authority))

	minimumDeposit, err := reader.GetMinimumDeposit()
	if err != nil {
		return fmt.Errorf("get minimum deposit: %w", err)
	}

	fmt.Printf("  minimum deposit: %s GAS\n", fixedn.Fixed8(minimumDeposit.Int64()))

	pooled, err := reader.GetPooledBalance()
	if err != nil {
		return fmt.Errorf("get pooled balance: %w", err)
	}

	fmt.Printf("  pooled balance: %s GAS\n", fixedn.Fixed8(pooled.Int64()))

	board, err := reader.GetLeaderboard()
	if err != nil {
		return fmt.Errorf("get leaderboard: %w", err)
	}

	fmt.Println("  leaderboard:")

	if len(board) == 0 {
		fmt.Println("    (empty)")
	}

	for i := range board {
		fmt.Printf("    %d. %s: %s GAS\n", i+1,
			address.Uint160ToString(board[i].Account), fixedn.Fixed8(board[i].Balance.Int64()))
	}

	if !listAccounts {
		return nil
	}

	fmt.Println("  accounts:")

	return listBankAccounts(b, reader)
}

// listBankAccounts prints every ledger record of the bank contract. Accounts
// are traversed through an iterator session when the server supports ones,
// otherwise the values prefetched by the server are used.
func listBankAccounts(b *remoteBlockchain, reader *bank.ContractReader) error {
	sessionID, iter, err := reader.IterateAccounts()
	if err != nil {
		if !errors.Is(err, unwrap.ErrNoSessionID) {
			return fmt.Errorf("open account iterator: %w", err)
		}

		for i := range iter.Values {
			err = printAccountItem(iter.Values[i])
			if err != nil {
				return err
			}
		}

		return nil
	}

	defer func() {
		_ = b.inv.TerminateSession(sessionID)
	}()

	for {
		items, err := b.inv.TraverseIterator(sessionID, &iter, iteratorBatchSize)
		if err != nil {
			return fmt.Errorf("traverse account iterator: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		for i := range items {
			err = printAccountItem(items[i])
			if err != nil {
				return err
			}
		}
	}
}

func printAccountItem(item stackitem.Item) error {
	account, balance, err := decodeAccountItem(item)
	if err != nil {
		return fmt.Errorf("decode account iterator item: %w", err)
	}

	fmt.Printf("    %s: %s GAS\n", address.Uint160ToString(account), fixedn.Fixed8(balance.Int64()))

	return nil
}

// decodeAccountItem unpacks a single key-value pair produced by the account
// iterator of the bank contract.
func decodeAccountItem(item stackitem.Item) (util.Uint160, *big.Int, error) {
	pair, ok := item.Value().([]stackitem.Item)
	if !ok || len(pair) != 2 {
		return util.Uint160{}, nil, errors.New("not a key-value pair")
	}

	rawKey, err := pair[0].TryBytes()
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("key: %w", err)
	}

	account, err := util.Uint160DecodeBytesBE(rawKey)
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("key: %w", err)
	}

	balance, err := pair[1].TryInteger()
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("value: %w", err)
	}

	return account, balance, nil
}

func dumpAdmin(b *remoteBlockchain, contract util.Uint160, bankContract util.Uint160) error {
	reader := admin.NewReader(b.inv, contract)

	version, err := reader.Version()
	if err != nil {
		return fmt.Errorf("get contract version: %w", err)
	}

	fmt.Printf("Admin contract %s (version %d)\n", contract.StringLE(), version)

	owner, err := reader.GetOwner()
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}

	fmt.Printf("  owner: %s\n", address.Uint160ToString(owner))

	isAuthority, err := reader.IsAuthorityOf(bankContract)
	if err != nil {
		return fmt.Errorf("check bank authority: %w", err)
	}

	fmt.Printf("  controls the bank: %t\n", isAuthority)

	withdrawable, err := reader.GetWithdrawableBalance(bankContract)
	if err != nil {
		return fmt.Errorf("get withdrawable balance: %w", err)
	}

	fmt.Printf("  withdrawable balance: %s GAS\n", fixedn.Fixed8(withdrawable.Int64()))

	return nil
}
