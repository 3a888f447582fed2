package domain

import "errors"

// Error taxonomy shared by every use case. Callers discriminate with
// errors.Is; layer boundaries wrap with fmt.Errorf("...: %w", err).
var (
	// ErrInvalidAmount rejects a non-positive or malformed amount before
	// any mutation.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNegativeResult is returned by checked arithmetic when an operation
	// would force a non-negative balance below zero.
	ErrNegativeResult = errors.New("result would be negative")

	// ErrNotFound is returned by write paths that require an existing
	// target. Read paths surface absence as a nil result instead.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientFunds rejects an outflow the source balance (or its
	// hold floor) cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBucketLocked rejects operations on a locked bucket.
	ErrBucketLocked = errors.New("bucket is locked")

	// ErrIndexConflict rejects a reorder whose resulting priority indexes
	// collide within the owner's bucket collection.
	ErrIndexConflict = errors.New("priority index conflict")

	// ErrImmutableRecord rejects any update to a ledger entry; ledgers are
	// append-only.
	ErrImmutableRecord = errors.New("ledger entries are immutable")

	// ErrTransactionFailed wraps storage-layer failures during a multi-row
	// commit. The whole operation was rolled back; callers should retry
	// from scratch.
	ErrTransactionFailed = errors.New("transaction failed")
)
