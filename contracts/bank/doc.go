/*
Package bank implements Bank contract which is deployed to N3 chain.

Bank contract pools GAS deposits of its users. Deposits are made with plain
NEP-17 transfers to the contract address, so any N3 compatible wallet
software can be used. The contract keeps a per-account record of everything
ever deposited and maintains a small leaderboard of the top depositors.

Pooled GAS does not belong to depositors anymore: the configured authority
(an address or another contract, normally Admin contract) withdraws from the
pool without affecting the recorded balances. The authority role is
transferable by its current holder.

# Contract notifications

Deposited notification. Produced on every accepted deposit, the account is
the credited one which may differ from the transfer sender.

	Deposited:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer

Withdrawn notification. Produced on every pooled withdrawal.

	Withdrawn:
	  - name: authority
	    type: Hash160
	  - name: amount
	    type: Integer

AuthorityTransferred notification. Produced when the authority role changes
hands.

	AuthorityTransferred:
	  - name: previous
	    type: Hash160
	  - name: new
	    type: Hash160
*/
package bank

/*
Contract storage model.

# Summary
Key-value storage format:
 - 'authority' -> interop.Hash160
   script hash of the current withdrawal authority
 - 'minimumDeposit' -> int
   smallest accepted deposit amount in GAS fractions
 - 'leaderboard' -> std.Serialize([]interop.Hash160)
   account list of the leaderboard in rank order
 - 'withdrawalLock' -> int
   marker of a pooled withdrawal in progress, absent otherwise
 - b<interop.Hash160> -> int
   recorded balance of the account in GAS fractions

# Accounting
Contract only records what accounts have deposited, actual GAS is held on
the contract address itself and is managed by the native GAS contract.
*/
