// Package deploy provides functions to deploy the GAS Bank contracts to the
// Neo blockchain.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"

	"github.com/xmadz/gasbank-contract/common"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the GAS Bank contracts deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to the
	// blockchain.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest

	// OnChainAddress is the address of the contract previously deployed to the
	// chain. Zero value means the contract is not expected on the chain yet and
	// its address is computed from the deployment transaction sender.
	OnChainAddress util.Uint160
}

// BankContractPrm groups deployment parameters of the GAS Bank contract.
type BankContractPrm struct {
	Common CommonDeployPrm

	// Account authorized to withdraw pooled GAS. Zero value defaults to the
	// address of the admin contract deployed along.
	Authority util.Uint160

	// Minimum accepted deposit amount in GAS fractions.
	MinimumDeposit int64
}

// AdminContractPrm groups deployment parameters of the GAS Bank Admin contract.
type AdminContractPrm struct {
	Common CommonDeployPrm

	// Account managing the admin contract. Zero value defaults to the local
	// account.
	Owner util.Uint160
}

// Prm groups all parameters of the GAS Bank deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance the contracts are deployed to.
	Blockchain Blockchain

	// Local account used for transaction signing (must be unlocked).
	LocalAccount *wallet.Account

	AdminContract AdminContractPrm
	BankContract  BankContractPrm
}

// Deploy sets the GAS Bank contract pair up on the Neo network represented by
// given Prm.Blockchain. The admin contract is synchronized first so that its
// address can serve as the default bank authority. For each contract, Deploy
// either deploys the local version or updates the on-chain one if it is
// older. Deploy aborts by context or when a fatal error occurs, deployment
// progress is logged in detail.
func Deploy(ctx context.Context, prm Prm) error {
	switch {
	case prm.Logger == nil:
		return errors.New("missing logger")
	case prm.Blockchain == nil:
		return errors.New("missing blockchain client")
	case prm.LocalAccount == nil:
		return errors.New("missing local account")
	case prm.BankContract.MinimumDeposit < 0:
		return errors.New("negative minimum deposit")
	}

	localActor, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return fmt.Errorf("init transaction sender from single local account: %w", err)
	}

	syncPrm := syncContractPrm{
		logger:     prm.Logger,
		blockchain: prm.Blockchain,
		localActor: localActor,
		mgmt:       management.New(localActor),
	}

	owner := prm.AdminContract.Owner
	if owner.Equals(util.Uint160{}) {
		owner = prm.LocalAccount.ScriptHash()
	}

	syncPrm.localNEF = prm.AdminContract.Common.NEF
	syncPrm.localManifest = prm.AdminContract.Common.Manifest
	syncPrm.onChainAddress = prm.AdminContract.Common.OnChainAddress
	syncPrm.deployArgs = []any{owner}

	prm.Logger.Info("synchronizing admin contract with the chain...")

	adminContractAddress, err := syncContract(ctx, syncPrm)
	if err != nil {
		return fmt.Errorf("sync admin contract with the chain: %w", err)
	}

	prm.Logger.Info("admin contract successfully synchronized", zap.Stringer("address", adminContractAddress))

	authority := prm.BankContract.Authority
	if authority.Equals(util.Uint160{}) {
		authority = adminContractAddress
	}

	syncPrm.localNEF = prm.BankContract.Common.NEF
	syncPrm.localManifest = prm.BankContract.Common.Manifest
	syncPrm.onChainAddress = prm.BankContract.Common.OnChainAddress
	syncPrm.deployArgs = []any{authority, prm.BankContract.MinimumDeposit}

	prm.Logger.Info("synchronizing bank contract with the chain...")

	bankContractAddress, err := syncContract(ctx, syncPrm)
	if err != nil {
		return fmt.Errorf("sync bank contract with the chain: %w", err)
	}

	prm.Logger.Info("bank contract successfully synchronized", zap.Stringer("address", bankContractAddress),
		zap.Stringer("authority", authority))

	return nil
}

// syncContractPrm groups parameters of a single contract synchronization.
type syncContractPrm struct {
	logger *zap.Logger

	blockchain Blockchain

	localActor *actor.Actor
	mgmt       *management.Contract

	localNEF       nef.File
	localManifest  manifest.Manifest
	onChainAddress util.Uint160

	// passed to the _deploy method on initial deployment
	deployArgs []any
}

// syncContract deploys the contract described by given syncContractPrm or
// updates the on-chain version if the local build is newer. Returns the
// on-chain address of the contract.
func syncContract(ctx context.Context, prm syncContractPrm) (util.Uint160, error) {
	if err := ctx.Err(); err != nil {
		return util.Uint160{}, err
	}

	explicitAddress := !prm.onChainAddress.Equals(util.Uint160{})

	contractAddress := prm.onChainAddress
	if !explicitAddress {
		contractAddress = state.CreateContractHash(prm.localActor.Sender(), prm.localNEF.Checksum, prm.localManifest.Name)
	}

	onChainState, err := prm.blockchain.GetContractStateByHash(contractAddress)
	if err != nil && !strings.Contains(err.Error(), "Unknown contract") {
		return util.Uint160{}, fmt.Errorf("read on-chain state of the contract: %w", err)
	}

	if onChainState == nil {
		if explicitAddress {
			return util.Uint160{}, fmt.Errorf("contract is missing on the chain at the configured address %s", contractAddress)
		}

		prm.logger.Info("contract is missing on the chain, deploying...",
			zap.String("name", prm.localManifest.Name), zap.Stringer("address", contractAddress))

		txHash, vub, err := prm.mgmt.Deploy(&prm.localNEF, &prm.localManifest, prm.deployArgs)
		aer, err := prm.localActor.Wait(txHash, vub, err)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("deploy contract: %w", err)
		}
		if aer.VMState != vmstate.Halt {
			return util.Uint160{}, fmt.Errorf("deploy transaction failed: %s", aer.FaultException)
		}

		return contractAddress, nil
	}

	onChainVersion, err := unwrap.BigInt(prm.localActor.Call(contractAddress, "version"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("read version of the on-chain contract: %w", err)
	}

	switch {
	case onChainVersion.Int64() == int64(common.Version):
		prm.logger.Info("on-chain contract is up to date",
			zap.String("name", prm.localManifest.Name), zap.Int64("version", onChainVersion.Int64()))
	case onChainVersion.Int64() > int64(common.Version):
		prm.logger.Warn("on-chain contract is newer than the local build, update skipped",
			zap.String("name", prm.localManifest.Name),
			zap.Int64("on-chain version", onChainVersion.Int64()), zap.Int("local version", common.Version))
	default:
		prm.logger.Info("on-chain contract is outdated, updating...",
			zap.String("name", prm.localManifest.Name),
			zap.Int64("on-chain version", onChainVersion.Int64()), zap.Int("local version", common.Version))

		nefBytes, err := prm.localNEF.Bytes()
		if err != nil {
			return util.Uint160{}, fmt.Errorf("encode local NEF of the contract: %w", err)
		}

		manifestBytes, err := json.Marshal(prm.localManifest)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("encode local manifest of the contract: %w", err)
		}

		// the contract attaches its version to the update data itself
		txHash, vub, err := prm.localActor.SendCall(contractAddress, "update", nefBytes, manifestBytes, nil)
		aer, err := prm.localActor.Wait(txHash, vub, err)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("update contract: %w", err)
		}
		if aer.VMState != vmstate.Halt {
			return util.Uint160{}, fmt.Errorf("update transaction failed: %s", aer.FaultException)
		}
	}

	return contractAddress, nil
}
