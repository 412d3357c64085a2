package faultybank

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const authorityKey = "authority"

// Contract mimics the bank withdrawal surface, but delivers only half of
// any requested amount.

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}
	args := data.(struct {
		authority interop.Hash160
	})
	storage.Put(storage.GetContext(), authorityKey, args.authority)
}

func OnNEP17Payment(from interop.Hash160, amount int, data any) {
}

func GetAuthority() interop.Hash160 {
	return storage.Get(storage.GetReadOnlyContext(), authorityKey).(interop.Hash160)
}

func GetPooledBalance() int {
	return gas.BalanceOf(runtime.GetExecutingScriptHash())
}

func WithdrawPooled(amount int) {
	authority := storage.Get(storage.GetContext(), authorityKey).(interop.Hash160)
	if !gas.Transfer(runtime.GetExecutingScriptHash(), authority, amount/2, nil) {
		panic("transfer failed")
	}
}
