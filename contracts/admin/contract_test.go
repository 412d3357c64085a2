package admin_test

import (
	"encoding/json"
	"path"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
	"github.com/xmadz/gasbank-contract/common"
	"github.com/xmadz/gasbank-contract/contracts/admin"
)

const (
	adminPath         = "."
	bankPath          = "../bank"
	faultyBankPath    = "../../internal/testcontracts/faultybank"
	reentrantBankPath = "../../internal/testcontracts/reentrantbank"
)

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

func deployAdminContract(t *testing.T, e *neotest.Executor, owner util.Uint160) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, adminPath, path.Join(adminPath, "config.yml"))
	e.DeployContract(t, c, []interface{}{owner})
	return c.Hash
}

func deployBankContract(t *testing.T, e *neotest.Executor, authority util.Uint160, minDeposit int64) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, bankPath, path.Join(bankPath, "config.yml"))
	e.DeployContract(t, c, []interface{}{authority, minDeposit})
	return c.Hash
}

// deployBankContractBy deploys one more bank on behalf of the deployer, the
// committee can not deploy the same contract twice.
func deployBankContractBy(t *testing.T, e *neotest.Executor, deployer neotest.Signer, authority util.Uint160, minDeposit int64) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, bankPath, path.Join(bankPath, "config.yml"))
	e.DeployContractBy(t, deployer, c, []interface{}{authority, minDeposit})
	return state.CreateContractHash(deployer.ScriptHash(), c.NEF.Checksum, c.Manifest.Name)
}

func deployAuxContract(t *testing.T, e *neotest.Executor, srcPath string, authority util.Uint160) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, srcPath, path.Join(srcPath, "config.yml"))
	e.DeployContract(t, c, []interface{}{authority})
	return c.Hash
}

func transferGAS(t *testing.T, e *neotest.Executor, from neotest.Signer, to util.Uint160, amount int64) util.Uint256 {
	gasInvoker := e.CommitteeInvoker(e.NativeHash(t, nativenames.Gas)).WithSigners(from)
	return gasInvoker.Invoke(t, stackitem.NewBool(true), "transfer", from.ScriptHash(), to, amount, nil)
}

func gasBalance(t *testing.T, e *neotest.Executor, acc util.Uint160) int64 {
	gasInvoker := e.CommitteeInvoker(e.NativeHash(t, nativenames.Gas))
	res, err := gasInvoker.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return res.Top().BigInt().Int64()
}

func bankPool(t *testing.T, e *neotest.Executor, bankHash util.Uint160) int64 {
	res, err := e.CommitteeInvoker(bankHash).TestInvoke(t, "getPooledBalance")
	require.NoError(t, err)
	return res.Top().BigInt().Int64()
}

func eventsByName(aer *state.AppExecResult, name string) [][]stackitem.Item {
	var evs [][]stackitem.Item
	for _, ev := range aer.Events {
		if ev.Name == name {
			evs = append(evs, ev.Item.Value().([]stackitem.Item))
		}
	}
	return evs
}

func requireHash160Item(t *testing.T, expected util.Uint160, item stackitem.Item) {
	actual, err := item.TryBytes()
	require.NoError(t, err)
	require.Equal(t, expected.BytesBE(), actual)
}

func requireIntItem(t *testing.T, expected int64, item stackitem.Item) {
	actual, err := item.TryInteger()
	require.NoError(t, err)
	require.EqualValues(t, expected, actual.Int64())
}

func TestAdmin_Deploy(t *testing.T) {
	e := newExecutor(t)
	c := neotest.CompileFile(t, e.CommitteeHash, adminPath, path.Join(adminPath, "config.yml"))

	e.DeployContractCheckFAULT(t, c, []interface{}{util.Uint160{}}, "incorrect owner script hash")
	e.DeployContractCheckFAULT(t, c, []interface{}{[]byte{1, 2, 3}}, "incorrect owner script hash")

	e.DeployContract(t, c, []interface{}{e.CommitteeHash})
}

func TestAdmin_AdminWithdraw(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	bankHash := deployBankContract(t, e, adminHash, 0)

	c := e.CommitteeInvoker(adminHash)
	cOwner := c.WithSigners(owner)

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, bankHash, 10_0000_0000)

	c.WithSigners(acc).InvokeFail(t, common.ErrOwnerWitnessFailed, "adminWithdraw", bankHash, int64(4_0000_0000))
	cOwner.InvokeFail(t, admin.ErrInvalidBank, "adminWithdraw", []byte{1, 2, 3}, int64(1_0000_0000))
	cOwner.InvokeFail(t, admin.ErrNonPositiveAmount, "adminWithdraw", bankHash, int64(0))
	cOwner.InvokeFail(t, admin.ErrNonPositiveAmount, "adminWithdraw", bankHash, int64(-1))
	cOwner.InvokeFail(t, admin.ErrReportedInsufficient, "adminWithdraw", bankHash, int64(11_0000_0000))

	h := cOwner.Invoke(t, stackitem.Null{}, "adminWithdraw", bankHash, int64(4_0000_0000))

	require.EqualValues(t, 4_0000_0000, gasBalance(t, e, adminHash))
	require.EqualValues(t, 6_0000_0000, bankPool(t, e, bankHash))

	// Deposit records are untouched by pooled withdrawals.
	res, err := e.CommitteeInvoker(bankHash).TestInvoke(t, "balanceOf", acc.ScriptHash())
	require.NoError(t, err)
	require.EqualValues(t, 10_0000_0000, res.Top().BigInt().Int64())

	aer := c.CheckHalt(t, h)

	withdrawn := eventsByName(aer, "FundsWithdrawn")
	require.Len(t, withdrawn, 1)
	requireHash160Item(t, bankHash, withdrawn[0][0])
	requireIntItem(t, 4_0000_0000, withdrawn[0][1])

	received := eventsByName(aer, "FundsReceived")
	require.Len(t, received, 1)
	requireHash160Item(t, bankHash, received[0][0])
	requireIntItem(t, 4_0000_0000, received[0][1])

	// A funded bank controlled by someone else: rejected after the balance
	// check, before any value moves.
	deployer := e.NewAccount(t)
	alienHash := deployBankContractBy(t, e, deployer, owner.ScriptHash(), 0)
	transferGAS(t, e, acc, alienHash, 2_0000_0000)

	cOwner.InvokeFail(t, admin.ErrNotAuthority, "adminWithdraw", alienHash, int64(1_0000_0000))
	require.EqualValues(t, 2_0000_0000, bankPool(t, e, alienHash))
	require.EqualValues(t, 4_0000_0000, gasBalance(t, e, adminHash))
}

func TestAdmin_AdminWithdrawReconciliation(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	faultyHash := deployAuxContract(t, e, faultyBankPath, adminHash)

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, faultyHash, 10_0000_0000)

	cOwner := e.CommitteeInvoker(adminHash).WithSigners(owner)
	cOwner.InvokeFail(t, admin.ErrReconciliation, "adminWithdraw", faultyHash, int64(4_0000_0000))

	// The half-transfer of the faulty bank was rolled back together with
	// the whole operation.
	require.EqualValues(t, 10_0000_0000, gasBalance(t, e, faultyHash))
	require.EqualValues(t, 0, gasBalance(t, e, adminHash))
}

func TestAdmin_AdminWithdrawReentrancy(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	reentrantHash := deployAuxContract(t, e, reentrantBankPath, adminHash)

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, reentrantHash, 5_0000_0000)

	// The nested adminWithdraw is witnessed by the same owner signature,
	// only the operation lock stops it.
	cOwner := e.CommitteeInvoker(adminHash).WithSigners(owner)
	cOwner.InvokeFail(t, admin.ErrOperationInProgress, "adminWithdraw", reentrantHash, int64(2_0000_0000))

	require.EqualValues(t, 5_0000_0000, gasBalance(t, e, reentrantHash))
	require.EqualValues(t, 0, gasBalance(t, e, adminHash))
}

func TestAdmin_BatchAdminWithdraw(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	bank1 := deployBankContract(t, e, adminHash, 0)
	bank2 := deployBankContractBy(t, e, e.NewAccount(t), adminHash, 0)
	bankAlien := deployBankContractBy(t, e, e.NewAccount(t), owner.ScriptHash(), 0)
	bankEmpty := deployBankContractBy(t, e, e.NewAccount(t), adminHash, 0)

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, bank1, 5_0000_0000)
	transferGAS(t, e, acc, bank2, 4_0000_0000)
	transferGAS(t, e, acc, bankAlien, 6_0000_0000)

	c := e.CommitteeInvoker(adminHash)
	cOwner := c.WithSigners(owner)

	banks := []interface{}{bank1, bankAlien, bankEmpty, bank2}
	amounts := []interface{}{int64(3_0000_0000), int64(5_0000_0000), int64(7_0000_0000), int64(100_0000_0000)}

	c.WithSigners(acc).InvokeFail(t, common.ErrOwnerWitnessFailed, "batchAdminWithdraw", banks, amounts)
	cOwner.InvokeFail(t, admin.ErrBatchLengthMismatch, "batchAdminWithdraw",
		[]interface{}{bank1}, []interface{}{int64(1), int64(2)})
	cOwner.InvokeFail(t, admin.ErrNonPositiveAmount, "batchAdminWithdraw",
		[]interface{}{bank1}, []interface{}{int64(-1)})

	// Uncontrolled and empty banks are skipped, over-requests are clamped.
	h := cOwner.Invoke(t, stackitem.Null{}, "batchAdminWithdraw", banks, amounts)

	require.EqualValues(t, 7_0000_0000, gasBalance(t, e, adminHash))
	require.EqualValues(t, 2_0000_0000, bankPool(t, e, bank1))
	require.EqualValues(t, 0, bankPool(t, e, bank2))
	require.EqualValues(t, 6_0000_0000, bankPool(t, e, bankAlien))
	require.EqualValues(t, 0, bankPool(t, e, bankEmpty))

	aer := c.CheckHalt(t, h)
	withdrawn := eventsByName(aer, "FundsWithdrawn")
	require.Len(t, withdrawn, 2)
	requireHash160Item(t, bank1, withdrawn[0][0])
	requireIntItem(t, 3_0000_0000, withdrawn[0][1])
	requireHash160Item(t, bank2, withdrawn[1][0])
	requireIntItem(t, 4_0000_0000, withdrawn[1][1])

	// Empty batch is a no-op.
	cOwner.Invoke(t, stackitem.Null{}, "batchAdminWithdraw", []interface{}{}, []interface{}{})

	// A failure of an attempted pair reverts the whole batch.
	faultyHash := deployAuxContract(t, e, faultyBankPath, adminHash)
	transferGAS(t, e, acc, faultyHash, 3_0000_0000)

	cOwner.InvokeFail(t, admin.ErrReconciliation, "batchAdminWithdraw",
		[]interface{}{bank1, faultyHash},
		[]interface{}{int64(1_0000_0000), int64(2_0000_0000)})

	require.EqualValues(t, 2_0000_0000, bankPool(t, e, bank1))
	require.EqualValues(t, 3_0000_0000, gasBalance(t, e, faultyHash))
	require.EqualValues(t, 7_0000_0000, gasBalance(t, e, adminHash))
}

func TestAdmin_WithdrawToOwner(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	c := e.CommitteeInvoker(adminHash)
	cOwner := c.WithSigners(owner)

	acc := e.NewAccount(t)
	h := transferGAS(t, e, acc, adminHash, 5_0000_0000)

	aer := c.CheckHalt(t, h)
	received := eventsByName(aer, "FundsReceived")
	require.Len(t, received, 1)
	requireHash160Item(t, acc.ScriptHash(), received[0][0])
	requireIntItem(t, 5_0000_0000, received[0][1])

	c.WithSigners(acc).InvokeFail(t, common.ErrOwnerWitnessFailed, "withdrawToOwner", int64(1_0000_0000))
	cOwner.InvokeFail(t, admin.ErrNonPositiveAmount, "withdrawToOwner", int64(0))
	cOwner.InvokeFail(t, admin.ErrNonPositiveAmount, "withdrawToOwner", int64(-1))
	cOwner.InvokeFail(t, admin.ErrInsufficientFunds, "withdrawToOwner", int64(6_0000_0000))

	cOwner.Invoke(t, stackitem.Null{}, "withdrawToOwner", int64(2_0000_0000))
	require.EqualValues(t, 3_0000_0000, gasBalance(t, e, adminHash))
}

func TestAdmin_EmergencyWithdrawAll(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	c := e.CommitteeInvoker(adminHash)
	cOwner := c.WithSigners(owner)

	cOwner.InvokeFail(t, admin.ErrNothingToWithdraw, "emergencyWithdrawAll")

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, adminHash, 3_0000_0000)

	c.WithSigners(acc).InvokeFail(t, common.ErrOwnerWitnessFailed, "emergencyWithdrawAll")

	cOwner.Invoke(t, stackitem.Null{}, "emergencyWithdrawAll")
	require.EqualValues(t, 0, gasBalance(t, e, adminHash))
}

func TestAdmin_TransferOwnership(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	c := e.CommitteeInvoker(adminHash)
	cOwner := c.WithSigners(owner)

	newOwner := e.NewAccount(t)
	cNew := c.WithSigners(newOwner)

	cNew.InvokeFail(t, common.ErrOwnerWitnessFailed, "transferOwnership", newOwner.ScriptHash())
	cOwner.InvokeFail(t, admin.ErrInvalidOwner, "transferOwnership", util.Uint160{})
	cOwner.InvokeFail(t, admin.ErrInvalidOwner, "transferOwnership", []byte{1, 2, 3})
	cOwner.InvokeFail(t, admin.ErrSameOwner, "transferOwnership", owner.ScriptHash())

	h := cOwner.Invoke(t, stackitem.Null{}, "transferOwnership", newOwner.ScriptHash())

	aer := c.CheckHalt(t, h)
	transferred := eventsByName(aer, "OwnershipTransferred")
	require.Len(t, transferred, 1)
	requireHash160Item(t, owner.ScriptHash(), transferred[0][0])
	requireHash160Item(t, newOwner.ScriptHash(), transferred[0][1])

	c.Invoke(t, stackitem.NewByteArray(newOwner.ScriptHash().BytesBE()), "getOwner")

	// The role moved: old owner is rejected, new one drains.
	acc := e.NewAccount(t)
	transferGAS(t, e, acc, adminHash, 2_0000_0000)

	cOwner.InvokeFail(t, common.ErrOwnerWitnessFailed, "withdrawToOwner", int64(1_0000_0000))
	cNew.Invoke(t, stackitem.Null{}, "withdrawToOwner", int64(1_0000_0000))
}

func TestAdmin_Queries(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	bankHash := deployBankContract(t, e, adminHash, 0)
	alienHash := deployBankContractBy(t, e, e.NewAccount(t), owner.ScriptHash(), 0)

	acc := e.NewAccount(t)
	transferGAS(t, e, acc, bankHash, 5_0000_0000)
	transferGAS(t, e, acc, alienHash, 2_0000_0000)

	c := e.CommitteeInvoker(adminHash)

	c.Invoke(t, stackitem.NewBool(true), "isAuthorityOf", bankHash)
	c.Invoke(t, stackitem.NewBool(false), "isAuthorityOf", alienHash)
	c.Invoke(t, stackitem.NewBool(false), "isAuthorityOf", []byte{1, 2, 3})

	c.Invoke(t, stackitem.Make(5_0000_0000), "getWithdrawableBalance", bankHash)
	c.Invoke(t, stackitem.Make(0), "getWithdrawableBalance", alienHash)
	c.Invoke(t, stackitem.Make(0), "getWithdrawableBalance", []byte{1, 2, 3})
}

func TestAdmin_OnNEP17Payment(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	adminHash := deployAdminContract(t, e, owner.ScriptHash())
	c := e.CommitteeInvoker(adminHash)

	c.InvokeFail(t, "ABORT", "onNEP17Payment", owner.ScriptHash(), int64(1_0000_0000), nil)
}

func TestAdmin_Update(t *testing.T) {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	ctr := neotest.CompileFile(t, e.CommitteeHash, adminPath, path.Join(adminPath, "config.yml"))
	e.DeployContract(t, ctr, []interface{}{owner.ScriptHash()})
	c := e.CommitteeInvoker(ctr.Hash)

	nefBytes, err := ctr.NEF.Bytes()
	require.NoError(t, err)
	manifestBytes, err := json.Marshal(ctr.Manifest)
	require.NoError(t, err)

	c.InvokeFail(t, common.ErrOwnerWitnessFailed, "update", nefBytes, manifestBytes, nil)

	cOwner := c.WithSigners(owner)
	cOwner.InvokeFail(t, common.ErrAlreadyUpdated, "update", nefBytes, manifestBytes, nil)
}

func TestAdmin_Version(t *testing.T) {
	e := newExecutor(t)
	adminHash := deployAdminContract(t, e, e.CommitteeHash)
	e.CommitteeInvoker(adminHash).Invoke(t, stackitem.Make(common.Version), "version")
}
