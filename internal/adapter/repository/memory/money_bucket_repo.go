package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// moneyBucketRepository implements domain.MoneyBucketRepository.
type moneyBucketRepository struct {
	s *Store
}

func (r *moneyBucketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.MoneyBucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	mb, ok := r.s.moneyBuckets[id]
	if !ok {
		return nil, nil
	}
	copied := *mb
	return &copied, nil
}

func (r *moneyBucketRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.MoneyBucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	mb := r.byOwnerLocked(ownerID)
	if mb == nil {
		return nil, nil
	}
	copied := *mb
	return &copied, nil
}

// byOwnerLocked returns the owner's single money bucket. Caller holds a lock.
func (r *moneyBucketRepository) byOwnerLocked(ownerID uuid.UUID) *domain.MoneyBucket {
	for _, mb := range r.s.moneyBuckets {
		if mb.OwnerID == ownerID {
			return mb
		}
	}
	return nil
}

func (r *moneyBucketRepository) Create(ctx context.Context, mb *domain.MoneyBucket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if mb.ID == uuid.Nil {
		mb.ID = uuid.New()
	}
	now := time.Now()
	mb.CreatedAt = now
	mb.UpdatedAt = now

	copied := *mb
	r.s.moneyBuckets[mb.ID] = &copied
	return nil
}

func (r *moneyBucketRepository) Update(ctx context.Context, id uuid.UUID, update domain.MoneyBucketUpdate) (*domain.MoneyBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.moneyBuckets[id]
	if !ok {
		return nil, nil
	}

	updated := *existing
	if update.CurrentValue != nil {
		updated.CurrentValue = *update.CurrentValue
	}
	updated.UpdatedAt = time.Now()

	r.s.moneyBuckets[id] = &updated
	copied := updated
	return &copied, nil
}

func (r *moneyBucketRepository) SetBalance(ctx context.Context, ownerID uuid.UUID, newValue domain.Money) (*domain.MoneyBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing := r.byOwnerLocked(ownerID)
	if existing == nil {
		return nil, nil
	}

	updated := *existing
	updated.CurrentValue = newValue
	updated.UpdatedAt = time.Now()

	r.s.moneyBuckets[updated.ID] = &updated
	copied := updated
	return &copied, nil
}

func (r *moneyBucketRepository) AddRedistributed(ctx context.Context, ownerID uuid.UUID, amount domain.Money) (*domain.MoneyBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing := r.byOwnerLocked(ownerID)
	if existing == nil {
		return nil, nil
	}

	now := time.Now()
	updated := *existing
	updated.TotalRedistributed = updated.TotalRedistributed.Add(amount)
	updated.LastRedistributionAt = &now
	updated.UpdatedAt = now

	r.s.moneyBuckets[updated.ID] = &updated
	copied := updated
	return &copied, nil
}
