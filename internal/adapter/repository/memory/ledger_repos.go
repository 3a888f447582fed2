package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// depositEventRepository implements domain.DepositEventRepository.
type depositEventRepository struct {
	s *Store
}

func (r *depositEventRepository) Create(ctx context.Context, event *domain.DepositEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	copied := *event
	r.s.depositEvents = append(r.s.depositEvents, &copied)
	return nil
}

func (r *depositEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DepositEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.depositEvents {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *depositEventRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.DepositEvent], error) {
	p = p.Normalize()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// Newest first: walk the append-ordered slice backwards.
	items := make([]*domain.DepositEvent, 0)
	for i := len(r.s.depositEvents) - 1; i >= 0; i-- {
		if r.s.depositEvents[i].OwnerID == ownerID {
			copied := *r.s.depositEvents[i]
			items = append(items, &copied)
		}
	}
	return paginate(items, p), nil
}

// bucketLedgerRepository implements domain.BucketLedgerRepository.
// Entries are append-only; Update always fails with ErrImmutableRecord and
// no delete exists, so ledger history is permanent.
type bucketLedgerRepository struct {
	s *Store
}

func (r *bucketLedgerRepository) Create(ctx context.Context, entry *domain.BucketLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.appendLocked(entry)
}

func (r *bucketLedgerRepository) CreateMany(ctx context.Context, entries []*domain.BucketLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, entry := range entries {
		if err := r.appendLocked(entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *bucketLedgerRepository) appendLocked(entry *domain.BucketLedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	copied := *entry
	r.s.bucketEntries = append(r.s.bucketEntries, &copied)
	return nil
}

func (r *bucketLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BucketLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.bucketEntries {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *bucketLedgerRepository) FindByBucketPage(ctx context.Context, bucketID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return r.page(p, func(e *domain.BucketLedgerEntry) bool { return e.BucketID == bucketID })
}

func (r *bucketLedgerRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return r.page(p, func(e *domain.BucketLedgerEntry) bool { return e.OwnerID == ownerID })
}

func (r *bucketLedgerRepository) page(p domain.Pagination, match func(*domain.BucketLedgerEntry) bool) (*domain.Page[*domain.BucketLedgerEntry], error) {
	p = p.Normalize()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.BucketLedgerEntry, 0)
	for i := len(r.s.bucketEntries) - 1; i >= 0; i-- {
		if match(r.s.bucketEntries[i]) {
			copied := *r.s.bucketEntries[i]
			items = append(items, &copied)
		}
	}
	return paginate(items, p), nil
}

func (r *bucketLedgerRepository) FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*domain.BucketLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.BucketLedgerEntry, 0)
	for _, e := range r.s.bucketEntries {
		if e.DepositEventID != nil && *e.DepositEventID == depositEventID {
			copied := *e
			items = append(items, &copied)
		}
	}
	return items, nil
}

func (r *bucketLedgerRepository) Update(ctx context.Context, id uuid.UUID) (*domain.BucketLedgerEntry, error) {
	return nil, domain.ErrImmutableRecord
}

// moneyBucketLedgerRepository implements domain.MoneyBucketLedgerRepository.
type moneyBucketLedgerRepository struct {
	s *Store
}

func (r *moneyBucketLedgerRepository) Create(ctx context.Context, entry *domain.MoneyBucketLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.appendLocked(entry)
}

func (r *moneyBucketLedgerRepository) CreateMany(ctx context.Context, entries []*domain.MoneyBucketLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, entry := range entries {
		if err := r.appendLocked(entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *moneyBucketLedgerRepository) appendLocked(entry *domain.MoneyBucketLedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	copied := *entry
	r.s.moneyBucketEntries = append(r.s.moneyBucketEntries, &copied)
	return nil
}

func (r *moneyBucketLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.MoneyBucketLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.moneyBucketEntries {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *moneyBucketLedgerRepository) FindByMoneyBucketPage(ctx context.Context, moneyBucketID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	return r.page(p, func(e *domain.MoneyBucketLedgerEntry) bool { return e.MoneyBucketID == moneyBucketID })
}

func (r *moneyBucketLedgerRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	return r.page(p, func(e *domain.MoneyBucketLedgerEntry) bool { return e.OwnerID == ownerID })
}

func (r *moneyBucketLedgerRepository) page(p domain.Pagination, match func(*domain.MoneyBucketLedgerEntry) bool) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	p = p.Normalize()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.MoneyBucketLedgerEntry, 0)
	for i := len(r.s.moneyBucketEntries) - 1; i >= 0; i-- {
		if match(r.s.moneyBucketEntries[i]) {
			copied := *r.s.moneyBucketEntries[i]
			items = append(items, &copied)
		}
	}
	return paginate(items, p), nil
}

func (r *moneyBucketLedgerRepository) FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*domain.MoneyBucketLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.MoneyBucketLedgerEntry, 0)
	for _, e := range r.s.moneyBucketEntries {
		if e.DepositEventID != nil && *e.DepositEventID == depositEventID {
			copied := *e
			items = append(items, &copied)
		}
	}
	return items, nil
}

func (r *moneyBucketLedgerRepository) Update(ctx context.Context, id uuid.UUID) (*domain.MoneyBucketLedgerEntry, error) {
	return nil, domain.ErrImmutableRecord
}
