package redistribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/metrics"
)

// Result carries the outcome of a redistribution. Entry and BucketEntry are
// nil when the target had no room and the run was a no-op.
type Result struct {
	Bucket      *domain.Bucket
	MoneyBucket *domain.MoneyBucket
	Entry       *domain.MoneyBucketLedgerEntry
	BucketEntry *domain.BucketLedgerEntry
	Moved       domain.Money
}

// Service moves funds from the owner's money bucket back into buckets that
// have room.
type Service struct {
	store domain.Store
	log   *slog.Logger
}

// NewService creates a new redistribution Service instance.
func NewService(store domain.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Redistribute moves up to the target bucket's remaining room from the
// money bucket into the bucket. A nil amount means "fill as much as
// possible"; otherwise the move is additionally capped by amount.
// Logic (single atomic unit of work, serialized per owner):
//  1. Load the target bucket; it must exist, belong to the owner and be
//     unlocked
//  2. Load the money bucket; a missing or empty money bucket is
//     InsufficientFunds
//  3. A target with no room is a no-op returning the unchanged bucket
//  4. Move min(room, money bucket balance, requested amount), appending a
//     redistribution_out entry on the money bucket ledger and a
//     redistribution entry on the bucket ledger, and incrementing
//     TotalRedistributed
func (s *Service) Redistribute(ctx context.Context, ownerID, targetBucketID uuid.UUID, amount *domain.Money) (*Result, error) {
	if amount != nil && !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}

	var result *Result
	err := s.store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		bucket, err := tx.Buckets().FindByID(ctx, targetBucketID)
		if err != nil {
			return err
		}
		if bucket == nil || bucket.OwnerID != ownerID {
			return fmt.Errorf("bucket %s: %w", targetBucketID, domain.ErrNotFound)
		}
		if bucket.IsLocked {
			return fmt.Errorf("bucket %s: %w", targetBucketID, domain.ErrBucketLocked)
		}

		moneyBucket, err := tx.MoneyBuckets().FindByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if moneyBucket == nil || !moneyBucket.CurrentValue.IsPositive() {
			return fmt.Errorf("money bucket for owner %s is empty: %w", ownerID, domain.ErrInsufficientFunds)
		}

		if !bucket.HasRoom() {
			result = &Result{Bucket: bucket, MoneyBucket: moneyBucket, Moved: domain.ZeroMoney()}
			return nil
		}

		move := domain.MinMoney(bucket.Room(), moneyBucket.CurrentValue)
		if amount != nil {
			move = domain.MinMoney(move, *amount)
		}

		bucketBefore := bucket.CurrentValue
		bucketAfter := bucketBefore.Add(move)
		wasFilled := bucketBefore.LessThan(bucket.TargetValue) && bucketAfter.Cmp(bucket.TargetValue) >= 0

		updatedBucket, err := tx.Buckets().SetBalance(ctx, bucket.ID, bucketAfter)
		if err != nil {
			return err
		}
		if updatedBucket == nil {
			return fmt.Errorf("bucket %s: %w", bucket.ID, domain.ErrNotFound)
		}

		moneyBefore := moneyBucket.CurrentValue
		moneyAfter, err := moneyBefore.SubChecked(move)
		if err != nil {
			return err
		}
		if _, err := tx.MoneyBuckets().SetBalance(ctx, ownerID, moneyAfter); err != nil {
			return err
		}
		updatedMoneyBucket, err := tx.MoneyBuckets().AddRedistributed(ctx, ownerID, move)
		if err != nil {
			return err
		}
		if updatedMoneyBucket == nil {
			return fmt.Errorf("money bucket for owner %s: %w", ownerID, domain.ErrNotFound)
		}

		moneyEntry := &domain.MoneyBucketLedgerEntry{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			Amount:         move.Neg(),
			BalanceBefore:  moneyBefore,
			BalanceAfter:   moneyAfter,
			Type:           domain.MoneyBucketTxRedistributionOut,
			MoneyBucketID:  moneyBucket.ID,
			TargetBucketID: &bucket.ID,
			CreatedAt:      time.Now(),
		}
		if err := tx.MoneyBucketLedger().Create(ctx, moneyEntry); err != nil {
			return err
		}

		bucketEntry := &domain.BucketLedgerEntry{
			ID:            uuid.New(),
			OwnerID:       ownerID,
			Amount:        move,
			BalanceBefore: bucketBefore,
			BalanceAfter:  bucketAfter,
			WasFilled:     wasFilled,
			Type:          domain.BucketTxRedistribution,
			BucketID:      bucket.ID,
			CreatedAt:     time.Now(),
		}
		if err := tx.BucketLedger().Create(ctx, bucketEntry); err != nil {
			return err
		}

		result = &Result{
			Bucket:      updatedBucket,
			MoneyBucket: updatedMoneyBucket,
			Entry:       moneyEntry,
			BucketEntry: bucketEntry,
			Moved:       move,
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "redistribution failed",
			"owner_id", ownerID, "target_bucket_id", targetBucketID, "error", err)
		return nil, err
	}

	if result.Moved.IsPositive() {
		metrics.Redistributions.Inc()
	}
	s.log.InfoContext(ctx, "redistribution completed",
		"owner_id", ownerID,
		"target_bucket_id", targetBucketID,
		"moved", result.Moved)
	return result, nil
}
