package bank

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/xmadz/gasbank-contract/common"
)

type (
	// LeaderboardEntry is a single leaderboard position: an account and its
	// current recorded balance.
	LeaderboardEntry struct {
		Account interop.Hash160
		Balance int
	}
)

const (
	// accountPrefix is the key prefix of per-account balance records. No
	// other storage key of the contract starts with this byte.
	accountPrefix = 'b'

	authorityKey      = "authority"
	leaderboardKey    = "leaderboard"
	minDepositKey     = "minimumDeposit"
	withdrawalLockKey = "withdrawalLock"

	// leaderboardCapacity is the number of tracked top depositors.
	leaderboardCapacity = 3

	// MaxBalanceAmount is the maximum balance of a single bank account,
	// in whole GAS.
	MaxBalanceAmount = 1_000_000
	// MaxBalanceAmountGAS is [MaxBalanceAmount] expressed in GAS fractions.
	MaxBalanceAmountGAS = int64(MaxBalanceAmount) * 1_0000_0000
)

// Failure causes of bank operations. Deposit failures abort the whole
// transaction together with the triggering GAS transfer, the rest get into
// fault messages of rejected transactions.
const (
	ErrOnlyGAS               = "only GAS can be accepted for deposit"
	ErrNonPositiveDeposit    = "deposit amount must be positive"
	ErrBelowMinimumDeposit   = "deposit amount is below the minimum"
	ErrBalanceOverflow       = "account balance out of max amount limit"
	ErrInvalidBeneficiary    = "invalid deposit beneficiary, expected Hash160"
	ErrNonPositiveWithdrawal = "withdrawal amount must be positive"
	ErrInsufficientPool      = "insufficient pooled funds"
	ErrInvalidAuthority      = "invalid new authority script hash"
	ErrSameAuthority         = "new authority is the same as the current one"
	ErrWithdrawalInProgress  = "pooled withdrawal is in progress"
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()

	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		authority  interop.Hash160
		minDeposit int
	})

	if len(args.authority) != interop.Hash160Len || common.IsZeroHash(args.authority) {
		panic("incorrect authority script hash")
	}
	if args.minDeposit < 0 {
		panic("negative minimum deposit")
	}

	storage.Put(ctx, authorityKey, args.authority)
	storage.Put(ctx, minDepositKey, args.minDeposit)
	common.SetSerialized(ctx, leaderboardKey, []interop.Hash160{})

	runtime.Log("bank contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the current authority.
func Update(nefFile, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	common.CheckAuthorityWitness(getAuthority(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("bank contract updated")
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// This is the only way to deposit into the bank: the transferred amount is
// credited to the sender, or to the account attached to the transfer as
// data. Transfers of anything but GAS and deposits breaking the bank rules
// (non-positive or below-minimum amount, balance over [MaxBalanceAmount])
// are aborted together with the whole transaction.
//
// It produces Deposited notification.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	if amount <= 0 {
		common.AbortWithMessage(ErrNonPositiveDeposit)
	}

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		common.AbortWithMessage(ErrOnlyGAS)
	}

	account := from
	if data != nil {
		account = data.(interop.Hash160)
	}
	switch len(account) {
	case interop.Hash160Len:
	case 0:
		account = from
	default:
		common.AbortWithMessage(ErrInvalidBeneficiary)
	}
	if common.IsZeroHash(account) {
		common.AbortWithMessage(ErrInvalidBeneficiary)
	}

	ctx := storage.GetContext()
	if storage.Get(ctx, withdrawalLockKey) != nil {
		common.AbortWithMessage(ErrWithdrawalInProgress)
	}

	if amount < storage.Get(ctx, minDepositKey).(int) {
		common.AbortWithMessage(ErrBelowMinimumDeposit)
	}

	balance := balanceOf(ctx, account) + amount
	if MaxBalanceAmountGAS < int64(balance) {
		common.AbortWithMessage(ErrBalanceOverflow)
	}

	storage.Put(ctx, accountKey(account), balance)
	updateLeaderboard(ctx, account)

	runtime.Notify("Deposited", account, amount)
}

// WithdrawPooled transfers amount of pooled GAS to the authority. It can be
// invoked only by the current authority: either with its witness or by the
// authority contract calling directly.
//
// It produces Withdrawn notification.
func WithdrawPooled(amount int) {
	ctx := storage.GetContext()

	authority := getAuthority(ctx)
	common.CheckAuthorityWitness(authority)

	if amount <= 0 {
		panic(ErrNonPositiveWithdrawal)
	}
	if amount > gas.BalanceOf(runtime.GetExecutingScriptHash()) {
		panic(ErrInsufficientPool)
	}

	takeWithdrawalLock(ctx)
	common.TransferGAS(authority, amount, nil)
	releaseWithdrawalLock(ctx)

	runtime.Notify("Withdrawn", authority, amount)
}

// TransferAuthority assigns the authority role to the new holder. It can be
// invoked only by the current authority.
//
// It produces AuthorityTransferred notification.
func TransferAuthority(newAuthority interop.Hash160) {
	ctx := storage.GetContext()

	authority := getAuthority(ctx)
	common.CheckAuthorityWitness(authority)

	checkNoWithdrawal(ctx)

	if len(newAuthority) != interop.Hash160Len || common.IsZeroHash(newAuthority) {
		panic(ErrInvalidAuthority)
	}
	if newAuthority.Equals(authority) {
		panic(ErrSameAuthority)
	}

	storage.Put(ctx, authorityKey, newAuthority)

	runtime.Notify("AuthorityTransferred", authority, newAuthority)
	runtime.Log("bank authority has been transferred")
}

// GetAuthority returns the script hash of the current withdrawal authority.
func GetAuthority() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getAuthority(ctx)
}

// GetPooledBalance returns the total amount of GAS held by the contract. It
// is a live value: deposits raise it and pooled withdrawals lower it, while
// recorded account balances stay intact.
func GetPooledBalance() int {
	return gas.BalanceOf(runtime.GetExecutingScriptHash())
}

// BalanceOf returns the recorded balance of the account or 0 if the account
// has never deposited.
func BalanceOf(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return balanceOf(ctx, account)
}

// GetMinimumDeposit returns the smallest deposit amount the bank accepts.
func GetMinimumDeposit() int {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, minDepositKey).(int)
}

// GetLeaderboard returns the current leaderboard entries in rank order with
// live balances attached. The list is at most leaderboardCapacity long.
func GetLeaderboard() []LeaderboardEntry {
	ctx := storage.GetReadOnlyContext()
	board := common.GetHash160List(ctx, leaderboardKey)

	entries := []LeaderboardEntry{}
	for i := range board {
		entries = append(entries, LeaderboardEntry{
			Account: board[i],
			Balance: balanceOf(ctx, board[i]),
		})
	}

	return entries
}

// GetRank returns 1-based leaderboard position of the account or 0 if the
// account is not ranked.
func GetRank(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	board := common.GetHash160List(ctx, leaderboardKey)

	for i := range board {
		if board[i].Equals(account) {
			return i + 1
		}
	}

	return 0
}

// IterateAccounts returns an iterator over all bank accounts. Iteration is
// through key-value pairs, where key is the account script hash and value is
// its recorded balance.
func IterateAccounts() iterator.Iterator {
	return storage.Find(storage.GetReadOnlyContext(), []byte{accountPrefix}, storage.RemovePrefix)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// updateLeaderboard recalculates the leaderboard after a deposit to the
// account. An already ranked account is re-sorted in place, an unranked one
// takes a free slot or displaces the first ranked account with a strictly
// smaller balance. On equal balances the account ranked earlier wins, both
// in sorting and in displacement.
func updateLeaderboard(ctx storage.Context, account interop.Hash160) {
	board := common.GetHash160List(ctx, leaderboardKey)

	pos := -1
	for i := range board {
		if board[i].Equals(account) {
			pos = i
			break
		}
	}
	if pos < 0 && len(board) < leaderboardCapacity {
		board = append(board, account)
		pos = len(board) - 1
	}

	if pos >= 0 {
		board = sortLeaderboard(ctx, board)
		common.SetSerialized(ctx, leaderboardKey, board)
		return
	}

	balance := balanceOf(ctx, account)
	ins := -1
	for i := range board {
		if balanceOf(ctx, board[i]) < balance {
			ins = i
			break
		}
	}
	if ins < 0 {
		return
	}

	for i := len(board) - 1; i > ins; i-- {
		board[i] = board[i-1]
	}
	board[ins] = account
	common.SetSerialized(ctx, leaderboardKey, board)
}

// sortLeaderboard reorders entries by their current balances in descending
// order. Sort is stable, so on equal balances the leading entry keeps its
// rank.
func sortLeaderboard(ctx storage.Context, board []interop.Hash160) []interop.Hash160 {
	for i := 1; i < len(board); i++ {
		account := board[i]
		balance := balanceOf(ctx, account)

		j := i - 1
		for j >= 0 && balanceOf(ctx, board[j]) < balance {
			board[j+1] = board[j]
			j--
		}
		board[j+1] = account
	}

	return board
}

func accountKey(account interop.Hash160) []byte {
	return append([]byte{accountPrefix}, account...)
}

func balanceOf(ctx storage.Context, account interop.Hash160) int {
	balance := storage.Get(ctx, accountKey(account))
	if balance != nil {
		return balance.(int)
	}

	return 0
}

func getAuthority(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, authorityKey).(interop.Hash160)
}

// takeWithdrawalLock marks a pooled withdrawal as being in progress. All
// bank state mutations check the lock, so nothing can interleave with the
// withdrawal's external transfer.
func takeWithdrawalLock(ctx storage.Context) {
	checkNoWithdrawal(ctx)
	storage.Put(ctx, withdrawalLockKey, 1)
}

func releaseWithdrawalLock(ctx storage.Context) {
	storage.Delete(ctx, withdrawalLockKey)
}

func checkNoWithdrawal(ctx storage.Context) {
	if storage.Get(ctx, withdrawalLockKey) != nil {
		panic(ErrWithdrawalInProgress)
	}
}
