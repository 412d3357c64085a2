package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

var (
	// ErrAuthorityWitnessFailed appears when the method must be
	// called by the bank authority but was not.
	ErrAuthorityWitnessFailed = "authority witness check failed"
	// ErrOwnerWitnessFailed appears when the method must be called
	// by the contract owner but was not.
	ErrOwnerWitnessFailed = "owner witness check failed"
)

// IsZeroHash returns true if h contains zero bytes only. Zero script hashes
// are not acceptable as role holders or deposit beneficiaries.
func IsZeroHash(h interop.Hash160) bool {
	for i := range h {
		if h[i] != 0 {
			return false
		}
	}
	return true
}

// HasRoleAccess returns true if the current invocation is authorized by the
// holder of some role: either the holder signed the transaction or the
// holder is a contract and is the direct caller.
func HasRoleAccess(holder interop.Hash160) bool {
	if len(holder) == interop.Hash160Len {
		if runtime.CheckWitness(holder) {
			return true
		}

		// Check if the role is held by the calling smart contract.
		callingScriptHash := runtime.GetCallingScriptHash()
		if callingScriptHash.Equals(holder) {
			return true
		}
	}

	return false
}

// CheckAuthorityWitness checks access of the current authority holder.
// It panics with ErrAuthorityWitnessFailed message on fail.
func CheckAuthorityWitness(holder interop.Hash160) {
	checkRoleWithPanic(holder, ErrAuthorityWitnessFailed)
}

// CheckOwnerWitness checks access of the current contract owner.
// It panics with ErrOwnerWitnessFailed message on fail.
func CheckOwnerWitness(holder interop.Hash160) {
	checkRoleWithPanic(holder, ErrOwnerWitnessFailed)
}

func checkRoleWithPanic(holder interop.Hash160, panicMsg string) {
	if !HasRoleAccess(holder) {
		panic(panicMsg)
	}
}
