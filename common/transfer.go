package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/util"
)

// ErrTransferFailed appears when the native GAS transfer initiated
// by the contract returns false.
var ErrTransferFailed = "failed to transfer GAS, aborting"

// TransferGAS sends amount of GAS from the executing contract to the "to"
// account attaching data to the transfer. It panics with ErrTransferFailed
// message if the native transfer returns false, reverting the operation.
func TransferGAS(to interop.Hash160, amount int, data interface{}) {
	transferred := gas.Transfer(runtime.GetExecutingScriptHash(), to, amount, data)
	if !transferred {
		panic(ErrTransferFailed)
	}
}

// AbortWithMessage calls `runtime.Log` with passed message
// and calls `ABORT` opcode.
func AbortWithMessage(msg string) {
	runtime.Log(msg)
	util.Abort()
}
