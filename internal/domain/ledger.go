package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BucketTransactionType classifies a bucket ledger entry.
type BucketTransactionType string

const (
	BucketTxDeposit        BucketTransactionType = "deposit"
	BucketTxWithdrawal     BucketTransactionType = "withdrawal"
	BucketTxTransfer       BucketTransactionType = "transfer"
	BucketTxRedistribution BucketTransactionType = "redistribution"
)

// MoneyBucketTransactionType classifies a money bucket ledger entry.
type MoneyBucketTransactionType string

const (
	MoneyBucketTxDeposit           MoneyBucketTransactionType = "deposit"
	MoneyBucketTxRedistributionOut MoneyBucketTransactionType = "redistribution_out"
)

// DepositEvent records one inbound deposit fanned out across the owner's
// buckets and money bucket. Immutable once created.
type DepositEvent struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	// OriginalAmount is the raw deposit; TotalProcessed is the sum actually
	// allocated. For a well-formed deposit the two are equal.
	OriginalAmount Money
	TotalProcessed Money

	// MoneyBucketAmount is the portion routed to the overflow account.
	MoneyBucketAmount Money

	CreatedAt time.Time
}

// BucketLedgerEntry records one balance change on a bucket. Immutable once
// created; repositories reject updates with ErrImmutableRecord. A deleted
// bucket leaves its entries behind with a dangling bucket reference.
type BucketLedgerEntry struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	// Amount is the signed delta; BalanceAfter = BalanceBefore + Amount.
	Amount        Money
	BalanceBefore Money
	BalanceAfter  Money

	// WasFilled is true iff this entry transitioned the bucket from
	// not-full to full.
	WasFilled bool

	Type           BucketTransactionType
	BucketID       uuid.UUID
	DepositEventID *uuid.UUID

	CreatedAt time.Time
}

// Validate checks the internal accounting contract of the entry.
func (e *BucketLedgerEntry) Validate() error {
	if !e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter) {
		return errors.New("balance after must equal balance before plus amount")
	}
	switch e.Type {
	case BucketTxDeposit, BucketTxWithdrawal, BucketTxTransfer, BucketTxRedistribution:
	default:
		return errors.New("bucket transaction type must be deposit, withdrawal, transfer or redistribution")
	}
	return nil
}

// MoneyBucketLedgerEntry records one balance change on the money bucket.
// Immutable once created. TargetBucketID is populated only for
// redistribution_out entries.
type MoneyBucketLedgerEntry struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Amount        Money
	BalanceBefore Money
	BalanceAfter  Money

	Type           MoneyBucketTransactionType
	MoneyBucketID  uuid.UUID
	DepositEventID *uuid.UUID
	TargetBucketID *uuid.UUID

	CreatedAt time.Time
}

// Validate checks the internal accounting contract of the entry.
func (e *MoneyBucketLedgerEntry) Validate() error {
	if !e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter) {
		return errors.New("balance after must equal balance before plus amount")
	}
	switch e.Type {
	case MoneyBucketTxDeposit, MoneyBucketTxRedistributionOut:
	default:
		return errors.New("money bucket transaction type must be deposit or redistribution_out")
	}
	if e.Type == MoneyBucketTxRedistributionOut && e.TargetBucketID == nil {
		return errors.New("redistribution_out entries must reference a target bucket")
	}
	return nil
}

// ReplayBucketLedger applies entries in creation order from a zero balance
// and returns the reconstructed balance. It fails if the chain is broken:
// every entry's BalanceBefore must equal the previous entry's BalanceAfter.
func ReplayBucketLedger(entries []*BucketLedgerEntry) (Money, error) {
	balance := ZeroMoney()
	for i, e := range entries {
		if !e.BalanceBefore.Equal(balance) {
			return Money{}, fmt.Errorf("ledger discontinuity at entry %d: balance before %s, expected %s",
				i, e.BalanceBefore, balance)
		}
		if err := e.Validate(); err != nil {
			return Money{}, fmt.Errorf("ledger entry %d invalid: %w", i, err)
		}
		balance = e.BalanceAfter
	}
	return balance, nil
}

// ReplayMoneyBucketLedger is ReplayBucketLedger for money bucket entries.
func ReplayMoneyBucketLedger(entries []*MoneyBucketLedgerEntry) (Money, error) {
	balance := ZeroMoney()
	for i, e := range entries {
		if !e.BalanceBefore.Equal(balance) {
			return Money{}, fmt.Errorf("ledger discontinuity at entry %d: balance before %s, expected %s",
				i, e.BalanceBefore, balance)
		}
		if err := e.Validate(); err != nil {
			return Money{}, fmt.Errorf("ledger entry %d invalid: %w", i, err)
		}
		balance = e.BalanceAfter
	}
	return balance, nil
}
