package domain

import (
	"context"

	"github.com/google/uuid"
)

// Pagination defaults shared by every paginated read path.
const (
	DefaultPageLimit  = 20
	DefaultPageOffset = 0
)

// Pagination carries the window and ordering of a paginated read.
type Pagination struct {
	Limit   int
	Offset  int
	OrderBy string
	Desc    bool
}

// Normalize applies the default window to unset or invalid values.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = DefaultPageOffset
	}
	return p
}

// Page is the result shape of every paginated read path.
type Page[T any] struct {
	Items   []T
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// NewPage assembles a page, deriving HasMore from the window and total.
func NewPage[T any](items []T, total int, p Pagination) *Page[T] {
	return &Page[T]{
		Items:   items,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+p.Limit < total,
	}
}

// IndexAssignment maps one bucket to its new priority index during a
// reorder.
type IndexAssignment struct {
	BucketID uuid.UUID
	NewIndex int
}

// BucketUpdate is a partial update; nil fields are left untouched. ID,
// OwnerID and CreatedAt are never mutated.
type BucketUpdate struct {
	Name           *string
	TargetValue    *Money
	PriorityIndex  *int
	FilterMethod   *FilterMethod
	FilterValue    *Money
	HasMinimumHold *bool
	HoldType       *HoldType
	HoldValue      *Money
	IsLocked       *bool
}

// MoneyBucketUpdate is a partial update for the overflow account.
type MoneyBucketUpdate struct {
	CurrentValue *Money
}

// BucketRepository defines persistence operations over buckets.
// Reads return (nil, nil) when the record is absent; write paths that
// require an existing target map that to ErrNotFound at the service layer.
type BucketRepository interface {
	// FindByID retrieves a bucket by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Bucket, error)

	// FindByOwner retrieves the owner's buckets ordered by ascending
	// priority index, ties broken by creation order.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Bucket, error)

	// FindActiveByOwner is FindByOwner excluding locked buckets.
	FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Bucket, error)

	// FindByOwnerPage retrieves one page of the owner's buckets.
	FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p Pagination) (*Page[*Bucket], error)

	// Create persists a new bucket, assigning its ID and timestamps.
	Create(ctx context.Context, bucket *Bucket) error

	// Update applies a partial update; returns (nil, nil) if the bucket
	// does not exist.
	Update(ctx context.Context, id uuid.UUID, update BucketUpdate) (*Bucket, error)

	// SetBalance sets CurrentValue and recomputes IsFull against the
	// stored target; returns (nil, nil) if the bucket does not exist.
	SetBalance(ctx context.Context, id uuid.UUID, newValue Money) (*Bucket, error)

	// Reorder atomically applies a batch of priority assignments: either
	// every listed bucket's index is updated or none are.
	Reorder(ctx context.Context, assignments []IndexAssignment) ([]*Bucket, error)

	// Delete removes a bucket. Its ledger entries are retained with a
	// dangling bucket reference.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// MoneyBucketRepository defines persistence operations over the single
// per-owner overflow account.
type MoneyBucketRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MoneyBucket, error)

	// FindByOwner returns the owner's money bucket, or (nil, nil) if none
	// has been created yet. At most one exists per owner.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*MoneyBucket, error)

	Create(ctx context.Context, mb *MoneyBucket) error

	Update(ctx context.Context, id uuid.UUID, update MoneyBucketUpdate) (*MoneyBucket, error)

	// SetBalance sets CurrentValue for the owner's money bucket; returns
	// (nil, nil) if the owner has none.
	SetBalance(ctx context.Context, ownerID uuid.UUID, newValue Money) (*MoneyBucket, error)

	// AddRedistributed increments TotalRedistributed and stamps
	// LastRedistributionAt; returns (nil, nil) if the owner has no money
	// bucket, so callers must create one first.
	AddRedistributed(ctx context.Context, ownerID uuid.UUID, amount Money) (*MoneyBucket, error)
}

// DepositEventRepository defines persistence for deposit events.
// Events are immutable; no update is exposed.
type DepositEventRepository interface {
	Create(ctx context.Context, event *DepositEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*DepositEvent, error)

	// FindByOwnerPage lists the owner's deposit events, newest first.
	FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p Pagination) (*Page[*DepositEvent], error)
}

// BucketLedgerRepository defines append-only persistence for bucket ledger
// entries. Paginated reads are reverse-chronological.
type BucketLedgerRepository interface {
	Create(ctx context.Context, entry *BucketLedgerEntry) error
	CreateMany(ctx context.Context, entries []*BucketLedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*BucketLedgerEntry, error)
	FindByBucketPage(ctx context.Context, bucketID uuid.UUID, p Pagination) (*Page[*BucketLedgerEntry], error)
	FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p Pagination) (*Page[*BucketLedgerEntry], error)
	FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*BucketLedgerEntry, error)

	// Update always fails with ErrImmutableRecord; the method exists so
	// the append-only contract is explicit and testable.
	Update(ctx context.Context, id uuid.UUID) (*BucketLedgerEntry, error)
}

// MoneyBucketLedgerRepository is BucketLedgerRepository for the overflow
// account's ledger.
type MoneyBucketLedgerRepository interface {
	Create(ctx context.Context, entry *MoneyBucketLedgerEntry) error
	CreateMany(ctx context.Context, entries []*MoneyBucketLedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*MoneyBucketLedgerEntry, error)
	FindByMoneyBucketPage(ctx context.Context, moneyBucketID uuid.UUID, p Pagination) (*Page[*MoneyBucketLedgerEntry], error)
	FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p Pagination) (*Page[*MoneyBucketLedgerEntry], error)
	FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*MoneyBucketLedgerEntry, error)

	// Update always fails with ErrImmutableRecord.
	Update(ctx context.Context, id uuid.UUID) (*MoneyBucketLedgerEntry, error)
}

// Store bundles the repositories with the atomic unit of work every
// multi-row mutation runs in.
type Store interface {
	Buckets() BucketRepository
	MoneyBuckets() MoneyBucketRepository
	DepositEvents() DepositEventRepository
	BucketLedger() BucketLedgerRepository
	MoneyBucketLedger() MoneyBucketLedgerRepository

	// WithinOwner runs fn against a store bound to one atomic transaction,
	// serialized per owner: two concurrent units of work for the same
	// owner never interleave their reads and writes, while different
	// owners proceed independently. On error nothing fn wrote survives and
	// the returned error wraps ErrTransactionFailed when the storage layer
	// itself failed.
	WithinOwner(ctx context.Context, ownerID uuid.UUID, fn func(Store) error) error
}
