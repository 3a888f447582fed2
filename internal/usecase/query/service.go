package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// Service exposes the read paths of the allocation core. Reads run outside
// the per-owner unit of work: listing and pagination tolerate ordinary
// row-level contention and never block writers.
type Service struct {
	store domain.Store
}

// NewService creates a new query Service instance.
func NewService(store domain.Store) *Service {
	return &Service{store: store}
}

// ListBuckets returns the owner's buckets in priority order.
func (s *Service) ListBuckets(ctx context.Context, ownerID uuid.UUID) ([]*domain.Bucket, error) {
	return s.store.Buckets().FindByOwner(ctx, ownerID)
}

// ListBucketsPage returns one page of the owner's buckets.
func (s *Service) ListBucketsPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.Bucket], error) {
	return s.store.Buckets().FindByOwnerPage(ctx, ownerID, p.Normalize())
}

// GetBucket returns one bucket, or nil if it does not exist.
func (s *Service) GetBucket(ctx context.Context, id uuid.UUID) (*domain.Bucket, error) {
	return s.store.Buckets().FindByID(ctx, id)
}

// GetMoneyBucket returns the owner's money bucket, or nil if none exists
// yet.
func (s *Service) GetMoneyBucket(ctx context.Context, ownerID uuid.UUID) (*domain.MoneyBucket, error) {
	return s.store.MoneyBuckets().FindByOwner(ctx, ownerID)
}

// ListBucketLedgerByBucket returns one reverse-chronological page of a
// bucket's ledger. Entries may reference a bucket that has since been
// deleted; history is permanent.
func (s *Service) ListBucketLedgerByBucket(ctx context.Context, bucketID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return s.store.BucketLedger().FindByBucketPage(ctx, bucketID, p.Normalize())
}

// ListBucketLedgerByOwner returns one reverse-chronological page of the
// owner's bucket ledger across all buckets.
func (s *Service) ListBucketLedgerByOwner(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return s.store.BucketLedger().FindByOwnerPage(ctx, ownerID, p.Normalize())
}

// ListMoneyBucketLedger returns one reverse-chronological page of the
// owner's money bucket ledger.
func (s *Service) ListMoneyBucketLedger(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	return s.store.MoneyBucketLedger().FindByOwnerPage(ctx, ownerID, p.Normalize())
}

// ListDepositEvents returns one reverse-chronological page of the owner's
// deposit events.
func (s *Service) ListDepositEvents(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.DepositEvent], error) {
	return s.store.DepositEvents().FindByOwnerPage(ctx, ownerID, p.Normalize())
}
