package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/metrics"
)

// Service handles explicit administrative movements out of buckets:
// withdrawals to the outside world and transfers between two buckets of the
// same owner. This is the only outflow path, and the only place the
// minimum-hold rule applies.
type Service struct {
	store domain.Store
	log   *slog.Logger
}

// NewService creates a new transfer Service instance.
func NewService(store domain.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Withdraw removes amount from a bucket, recording a withdrawal ledger
// entry. The bucket's hold floor may not be breached: only
// Bucket.Available is spendable.
func (s *Service) Withdraw(ctx context.Context, ownerID, bucketID uuid.UUID, amount domain.Money) (*domain.BucketLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}

	var entry *domain.BucketLedgerEntry
	err := s.store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		bucket, err := s.loadOwnedBucket(ctx, tx, ownerID, bucketID)
		if err != nil {
			return err
		}

		if amount.GreaterThan(bucket.Available()) {
			return fmt.Errorf("withdrawal of %s exceeds available %s (hold floor %s): %w",
				amount, bucket.Available(), bucket.HoldFloor(), domain.ErrInsufficientFunds)
		}

		entry, err = s.applyDelta(ctx, tx, bucket, amount.Neg(), domain.BucketTxWithdrawal)
		return err
	})
	if err != nil {
		s.log.ErrorContext(ctx, "withdrawal failed",
			"owner_id", ownerID, "bucket_id", bucketID, "amount", amount, "error", err)
		return nil, err
	}

	metrics.Transfers.Inc()
	s.log.InfoContext(ctx, "withdrawal recorded",
		"owner_id", ownerID, "bucket_id", bucketID, "amount", amount)
	return entry, nil
}

// TransferResult carries the two ledger entries a transfer produced.
type TransferResult struct {
	FromEntry *domain.BucketLedgerEntry
	ToEntry   *domain.BucketLedgerEntry
}

// Transfer moves amount between two buckets of the same owner, recording a
// transfer ledger entry on each side. The source's hold floor may not be
// breached; the destination is not clamped to its room (administrative
// moves may overfill).
func (s *Service) Transfer(ctx context.Context, ownerID, fromBucketID, toBucketID uuid.UUID, amount domain.Money) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}
	if fromBucketID == toBucketID {
		return nil, fmt.Errorf("cannot transfer from bucket %s to itself", fromBucketID)
	}

	var result *TransferResult
	err := s.store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		from, err := s.loadOwnedBucket(ctx, tx, ownerID, fromBucketID)
		if err != nil {
			return err
		}
		to, err := s.loadOwnedBucket(ctx, tx, ownerID, toBucketID)
		if err != nil {
			return err
		}

		if amount.GreaterThan(from.Available()) {
			return fmt.Errorf("transfer of %s exceeds available %s (hold floor %s): %w",
				amount, from.Available(), from.HoldFloor(), domain.ErrInsufficientFunds)
		}

		fromEntry, err := s.applyDelta(ctx, tx, from, amount.Neg(), domain.BucketTxTransfer)
		if err != nil {
			return err
		}
		toEntry, err := s.applyDelta(ctx, tx, to, amount, domain.BucketTxTransfer)
		if err != nil {
			return err
		}

		result = &TransferResult{FromEntry: fromEntry, ToEntry: toEntry}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "transfer failed",
			"owner_id", ownerID, "from", fromBucketID, "to", toBucketID,
			"amount", amount, "error", err)
		return nil, err
	}

	metrics.Transfers.Inc()
	s.log.InfoContext(ctx, "transfer recorded",
		"owner_id", ownerID, "from", fromBucketID, "to", toBucketID, "amount", amount)
	return result, nil
}

func (s *Service) loadOwnedBucket(ctx context.Context, tx domain.Store, ownerID, bucketID uuid.UUID) (*domain.Bucket, error) {
	bucket, err := tx.Buckets().FindByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if bucket == nil || bucket.OwnerID != ownerID {
		return nil, fmt.Errorf("bucket %s: %w", bucketID, domain.ErrNotFound)
	}
	if bucket.IsLocked {
		return nil, fmt.Errorf("bucket %s: %w", bucketID, domain.ErrBucketLocked)
	}
	return bucket, nil
}

// applyDelta updates the bucket balance and appends the matching ledger
// entry. delta is signed.
func (s *Service) applyDelta(ctx context.Context, tx domain.Store, bucket *domain.Bucket, delta domain.Money, txType domain.BucketTransactionType) (*domain.BucketLedgerEntry, error) {
	before := bucket.CurrentValue
	after := before.Add(delta)
	if after.IsNegative() {
		return nil, fmt.Errorf("bucket %s balance cannot go negative: %w", bucket.ID, domain.ErrNegativeResult)
	}
	wasFilled := before.LessThan(bucket.TargetValue) && after.Cmp(bucket.TargetValue) >= 0

	updated, err := tx.Buckets().SetBalance(ctx, bucket.ID, after)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket.ID, domain.ErrNotFound)
	}

	entry := &domain.BucketLedgerEntry{
		ID:            uuid.New(),
		OwnerID:       bucket.OwnerID,
		Amount:        delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		WasFilled:     wasFilled,
		Type:          txType,
		BucketID:      bucket.ID,
		CreatedAt:     time.Now(),
	}
	if err := tx.BucketLedger().Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
