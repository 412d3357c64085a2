/*
Package admin implements Admin contract which is deployed to N3 chain.

Admin contract manages a set of Bank contracts on behalf of its owner. It is
expected to be the withdrawal authority of every managed bank: the owner
tells the admin which bank to withdraw from, and the pooled GAS ends up on
the admin's address, available for owner drains.

Banks are not trusted. Before each withdrawal the admin verifies the bank's
reported pooled balance and authority, and after the call it reconciles its
own GAS balance delta with the requested amount, reverting the whole
operation if the bank delivered less. During a withdrawal all value-moving
methods of the admin are locked, so a malicious bank cannot re-enter them.

# Contract notifications

FundsWithdrawn notification. Produced on every successful withdrawal from a
bank, the amount is the one actually received.

	FundsWithdrawn:
	  - name: bank
	    type: Hash160
	  - name: amount
	    type: Integer

FundsReceived notification. Produced on every incoming GAS transfer.

	FundsReceived:
	  - name: from
	    type: Hash160
	  - name: amount
	    type: Integer

OwnershipTransferred notification. Produced when the owner role changes
hands.

	OwnershipTransferred:
	  - name: previous
	    type: Hash160
	  - name: new
	    type: Hash160
*/
package admin

/*
Contract storage model.

# Summary
Key-value storage format:
 - 'owner' -> interop.Hash160
   script hash of the current contract owner
 - 'operationLock' -> int
   marker of a withdrawal operation in progress, absent otherwise

# Accounting
Contract does not account withdrawn GAS per bank, it only holds the funds
until the owner drains them.
*/
