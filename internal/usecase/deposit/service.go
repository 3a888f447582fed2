package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/metrics"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/allocator"
)

// Result carries everything a deposit run created.
type Result struct {
	Event            *domain.DepositEvent
	BucketEntries    []*domain.BucketLedgerEntry
	MoneyBucketEntry *domain.MoneyBucketLedgerEntry
}

// Service is the allocation engine: it fans a deposit out across the
// owner's buckets in priority order and records every balance change in
// the ledger, all as one atomic unit of work.
type Service struct {
	store domain.Store
	log   *slog.Logger
}

// NewService creates a new deposit Service instance.
func NewService(store domain.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// ProcessDeposit allocates amount across the owner's buckets.
// Logic (single atomic unit of work, serialized per owner):
//  1. Load the owner's buckets in priority order; get or lazily create the
//     owner's money bucket
//  2. Compute the allocation plan (allocator.ComputePlan)
//  3. Create the DepositEvent, then apply each claim: update the bucket
//     balance and append a deposit ledger entry referencing the event
//  4. Route any overflow to the money bucket with its own ledger entry
//
// On any failure the whole run is rolled back: no partial balances and no
// partial ledger rows survive.
func (s *Service) ProcessDeposit(ctx context.Context, ownerID uuid.UUID, amount domain.Money) (*Result, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}

	var result *Result
	err := s.store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		buckets, err := tx.Buckets().FindByOwner(ctx, ownerID)
		if err != nil {
			return err
		}

		moneyBucket, err := s.getOrCreateMoneyBucket(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		plan, err := allocator.ComputePlan(amount, buckets)
		if err != nil {
			return err
		}

		event := &domain.DepositEvent{
			ID:                uuid.New(),
			OwnerID:           ownerID,
			OriginalAmount:    amount,
			TotalProcessed:    amount,
			MoneyBucketAmount: plan.Overflow,
			CreatedAt:         time.Now(),
		}
		if err := tx.DepositEvents().Create(ctx, event); err != nil {
			return err
		}

		entries := make([]*domain.BucketLedgerEntry, 0, len(plan.Claims))
		for _, claim := range plan.Claims {
			bucket := claim.Bucket
			before := bucket.CurrentValue
			after := before.Add(claim.Amount)
			wasFilled := before.LessThan(bucket.TargetValue) && after.Cmp(bucket.TargetValue) >= 0

			updated, err := tx.Buckets().SetBalance(ctx, bucket.ID, after)
			if err != nil {
				return err
			}
			if updated == nil {
				return fmt.Errorf("bucket %s: %w", bucket.ID, domain.ErrNotFound)
			}

			entries = append(entries, &domain.BucketLedgerEntry{
				ID:             uuid.New(),
				OwnerID:        ownerID,
				Amount:         claim.Amount,
				BalanceBefore:  before,
				BalanceAfter:   after,
				WasFilled:      wasFilled,
				Type:           domain.BucketTxDeposit,
				BucketID:       bucket.ID,
				DepositEventID: &event.ID,
				CreatedAt:      time.Now(),
			})
		}
		if err := tx.BucketLedger().CreateMany(ctx, entries); err != nil {
			return err
		}

		var moneyBucketEntry *domain.MoneyBucketLedgerEntry
		if plan.Overflow.IsPositive() {
			before := moneyBucket.CurrentValue
			after := before.Add(plan.Overflow)

			if _, err := tx.MoneyBuckets().SetBalance(ctx, ownerID, after); err != nil {
				return err
			}

			moneyBucketEntry = &domain.MoneyBucketLedgerEntry{
				ID:             uuid.New(),
				OwnerID:        ownerID,
				Amount:         plan.Overflow,
				BalanceBefore:  before,
				BalanceAfter:   after,
				Type:           domain.MoneyBucketTxDeposit,
				MoneyBucketID:  moneyBucket.ID,
				DepositEventID: &event.ID,
				CreatedAt:      time.Now(),
			}
			if err := tx.MoneyBucketLedger().Create(ctx, moneyBucketEntry); err != nil {
				return err
			}
		}

		result = &Result{
			Event:            event,
			BucketEntries:    entries,
			MoneyBucketEntry: moneyBucketEntry,
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "deposit failed",
			"owner_id", ownerID, "amount", amount, "error", err)
		return nil, err
	}

	metrics.DepositsProcessed.Inc()
	s.log.InfoContext(ctx, "deposit processed",
		"owner_id", ownerID,
		"amount", amount,
		"buckets_funded", len(result.BucketEntries),
		"overflow", result.Event.MoneyBucketAmount)
	return result, nil
}

// getOrCreateMoneyBucket returns the owner's money bucket, creating one
// with a zero balance on first deposit.
func (s *Service) getOrCreateMoneyBucket(ctx context.Context, tx domain.Store, ownerID uuid.UUID) (*domain.MoneyBucket, error) {
	moneyBucket, err := tx.MoneyBuckets().FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if moneyBucket != nil {
		return moneyBucket, nil
	}

	moneyBucket = &domain.MoneyBucket{
		ID:                 uuid.New(),
		OwnerID:            ownerID,
		CurrentValue:       domain.ZeroMoney(),
		TotalRedistributed: domain.ZeroMoney(),
	}
	if err := tx.MoneyBuckets().Create(ctx, moneyBucket); err != nil {
		return nil, err
	}
	return moneyBucket, nil
}
