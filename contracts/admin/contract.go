package admin

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/xmadz/gasbank-contract/common"
)

const (
	ownerKey         = "owner"
	operationLockKey = "operationLock"
)

// Failure causes of admin operations, they get into fault messages of
// rejected transactions.
const (
	ErrOnlyGAS              = "admin contract accepts GAS only"
	ErrInvalidBank          = "invalid bank contract script hash"
	ErrInvalidOwner         = "invalid new owner script hash"
	ErrSameOwner            = "new owner is the same as the current one"
	ErrNonPositiveAmount    = "withdrawal amount must be positive"
	ErrNotAuthority         = "contract is not the authority of the bank"
	ErrReportedInsufficient = "bank reports insufficient pooled funds"
	ErrReconciliation       = "received amount is less than requested"
	ErrInsufficientFunds    = "insufficient contract funds"
	ErrNothingToWithdraw    = "nothing to withdraw"
	ErrBatchLengthMismatch  = "banks and amounts length mismatch"
	ErrOperationInProgress  = "another withdrawal operation is in progress"
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
		owner interop.Hash160
	})

	if len(args.owner) != interop.Hash160Len || common.IsZeroHash(args.owner) {
		panic("incorrect owner script hash")
	}

	storage.Put(ctx, ownerKey, args.owner)

	runtime.Log("admin contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner.
func Update(nefFile, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	common.CheckOwnerWitness(getOwner(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("admin contract updated")
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// The admin contract accepts any incoming GAS, including the transfers made
// by banks during pooled withdrawals. Transfers of anything but GAS are
// aborted together with the whole transaction.
//
// It produces FundsReceived notification.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		common.AbortWithMessage(ErrOnlyGAS)
	}

	runtime.Notify("FundsReceived", from, amount)
}

// AdminWithdraw withdraws amount of pooled GAS from the bank to this
// contract. It can be invoked only by the contract owner and only for a bank
// that has this contract as its authority.
//
// The bank is not trusted: its pooled balance and authority are checked
// before the withdrawal, and the amount of GAS actually received is verified
// against the requested one afterwards. A bank delivering less than
// requested reverts the whole operation.
//
// It produces FundsWithdrawn notification with the amount actually received.
func AdminWithdraw(bank interop.Hash160, amount int) {
	ctx := storage.GetContext()
	common.CheckOwnerWitness(getOwner(ctx))

	if len(bank) != interop.Hash160Len {
		panic(ErrInvalidBank)
	}
	if amount <= 0 {
		panic(ErrNonPositiveAmount)
	}

	takeOperationLock(ctx)
	withdrawFromBank(bank, amount)
	releaseOperationLock(ctx)
}

// BatchAdminWithdraw performs AdminWithdraw for every bank in the list with
// the corresponding requested amount. It can be invoked only by the contract
// owner and requires banks and amounts to be of the same length.
//
// Banks not controlled by this contract are skipped silently, requested
// amounts are clamped down to the bank's pooled balance and pairs clamped to
// zero are skipped as well. Any failure of an attempted withdrawal reverts
// the whole batch.
func BatchAdminWithdraw(banks []interop.Hash160, amounts []int) {
	ctx := storage.GetContext()
	common.CheckOwnerWitness(getOwner(ctx))

	if len(banks) != len(amounts) {
		panic(ErrBatchLengthMismatch)
	}

	takeOperationLock(ctx)

	self := runtime.GetExecutingScriptHash()
	for i := range banks {
		bank := banks[i]
		if len(bank) != interop.Hash160Len {
			panic(ErrInvalidBank)
		}

		authority := contract.Call(bank, "getAuthority", contract.ReadOnly).(interop.Hash160)
		if !authority.Equals(self) {
			continue
		}

		amount := amounts[i]
		pooled := contract.Call(bank, "getPooledBalance", contract.ReadOnly).(int)
		if amount > pooled {
			amount = pooled
		}
		if amount == 0 {
			continue
		}
		if amount < 0 {
			panic(ErrNonPositiveAmount)
		}

		withdrawFromBank(bank, amount)
	}

	releaseOperationLock(ctx)
}

// WithdrawToOwner transfers amount of GAS held by this contract to the
// owner. It can be invoked only by the contract owner.
func WithdrawToOwner(amount int) {
	ctx := storage.GetContext()

	owner := getOwner(ctx)
	common.CheckOwnerWitness(owner)

	if amount <= 0 {
		panic(ErrNonPositiveAmount)
	}
	if amount > gas.BalanceOf(runtime.GetExecutingScriptHash()) {
		panic(ErrInsufficientFunds)
	}

	takeOperationLock(ctx)
	common.TransferGAS(owner, amount, nil)
	releaseOperationLock(ctx)
}

// EmergencyWithdrawAll transfers all GAS held by this contract to the owner.
// It can be invoked only by the contract owner.
func EmergencyWithdrawAll() {
	ctx := storage.GetContext()

	owner := getOwner(ctx)
	common.CheckOwnerWitness(owner)

	balance := gas.BalanceOf(runtime.GetExecutingScriptHash())
	if balance == 0 {
		panic(ErrNothingToWithdraw)
	}

	takeOperationLock(ctx)
	common.TransferGAS(owner, balance, nil)
	releaseOperationLock(ctx)
}

// TransferOwnership assigns the contract owner role to the new holder. It
// can be invoked only by the current owner.
//
// It produces OwnershipTransferred notification.
func TransferOwnership(newOwner interop.Hash160) {
	ctx := storage.GetContext()

	owner := getOwner(ctx)
	common.CheckOwnerWitness(owner)

	checkNoOperation(ctx)

	if len(newOwner) != interop.Hash160Len || common.IsZeroHash(newOwner) {
		panic(ErrInvalidOwner)
	}
	if newOwner.Equals(owner) {
		panic(ErrSameOwner)
	}

	storage.Put(ctx, ownerKey, newOwner)

	runtime.Notify("OwnershipTransferred", owner, newOwner)
	runtime.Log("admin ownership has been transferred")
}

// GetOwner returns the script hash of the current contract owner.
func GetOwner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getOwner(ctx)
}

// IsAuthorityOf returns true if this contract is the current withdrawal
// authority of the bank. It does not fail on a bank of unexpected hash
// length.
func IsAuthorityOf(bank interop.Hash160) bool {
	if len(bank) != interop.Hash160Len {
		return false
	}

	authority := contract.Call(bank, "getAuthority", contract.ReadOnly).(interop.Hash160)
	return authority.Equals(runtime.GetExecutingScriptHash())
}

// GetWithdrawableBalance returns the pooled balance of the bank if this
// contract is its current withdrawal authority, 0 otherwise.
func GetWithdrawableBalance(bank interop.Hash160) int {
	if !IsAuthorityOf(bank) {
		return 0
	}

	return contract.Call(bank, "getPooledBalance", contract.ReadOnly).(int)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// withdrawFromBank performs a single verified withdrawal: check the reported
// pooled balance covers the amount, check the bank is controlled by this
// contract, record own GAS balance, call the bank, verify the received
// delta. The delta may exceed the requested amount, but never be less.
func withdrawFromBank(bank interop.Hash160, amount int) {
	pooled := contract.Call(bank, "getPooledBalance", contract.ReadOnly).(int)
	if pooled < amount {
		panic(ErrReportedInsufficient)
	}

	self := runtime.GetExecutingScriptHash()
	authority := contract.Call(bank, "getAuthority", contract.ReadOnly).(interop.Hash160)
	if !authority.Equals(self) {
		panic(ErrNotAuthority)
	}

	before := gas.BalanceOf(self)
	contract.Call(bank, "withdrawPooled", contract.All, amount)
	received := gas.BalanceOf(self) - before
	if received < amount {
		panic(ErrReconciliation)
	}

	runtime.Notify("FundsWithdrawn", bank, received)
}

func getOwner(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}

// takeOperationLock marks a withdrawal operation as being in progress. Every
// value-moving method of the contract checks the lock first, so a bank
// called during a withdrawal cannot re-enter any of them.
func takeOperationLock(ctx storage.Context) {
	checkNoOperation(ctx)
	storage.Put(ctx, operationLockKey, 1)
}

func releaseOperationLock(ctx storage.Context) {
	storage.Delete(ctx, operationLockKey)
}

func checkNoOperation(ctx storage.Context) {
	if storage.Get(ctx, operationLockKey) != nil {
		panic(ErrOperationInProgress)
	}
}
