package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// bucketRepository implements domain.BucketRepository over the store maps.
type bucketRepository struct {
	s *Store
}

func (r *bucketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	bucket, ok := r.s.buckets[id]
	if !ok {
		return nil, nil
	}
	copied := *bucket
	return &copied, nil
}

func (r *bucketRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.ownedLocked(ownerID, false), nil
}

func (r *bucketRepository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.ownedLocked(ownerID, true), nil
}

func (r *bucketRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.Bucket], error) {
	p = p.Normalize()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.ownedLocked(ownerID, false)
	if p.OrderBy == "created_at" {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})
	}
	if p.Desc {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return paginate(items, p), nil
}

// ownedLocked returns copies of the owner's buckets ordered by ascending
// priority index, creation order on ties. Caller holds the read lock.
func (r *bucketRepository) ownedLocked(ownerID uuid.UUID, activeOnly bool) []*domain.Bucket {
	items := make([]*domain.Bucket, 0)
	for _, b := range r.s.buckets {
		if b.OwnerID != ownerID {
			continue
		}
		if activeOnly && b.IsLocked {
			continue
		}
		copied := *b
		items = append(items, &copied)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].PriorityIndex != items[j].PriorityIndex {
			return items[i].PriorityIndex < items[j].PriorityIndex
		}
		return r.s.bucketSeq[items[i].ID] < r.s.bucketSeq[items[j].ID]
	})
	return items
}

func (r *bucketRepository) Create(ctx context.Context, bucket *domain.Bucket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if bucket.ID == uuid.Nil {
		bucket.ID = uuid.New()
	}
	now := time.Now()
	bucket.CreatedAt = now
	bucket.UpdatedAt = now
	bucket.RecomputeFull()

	copied := *bucket
	r.s.buckets[bucket.ID] = &copied
	r.s.bucketSeq[bucket.ID] = r.s.nextSeq()
	return nil
}

func (r *bucketRepository) Update(ctx context.Context, id uuid.UUID, update domain.BucketUpdate) (*domain.Bucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.buckets[id]
	if !ok {
		return nil, nil
	}

	updated := *existing
	if update.Name != nil {
		updated.Name = *update.Name
	}
	if update.TargetValue != nil {
		updated.TargetValue = *update.TargetValue
	}
	if update.PriorityIndex != nil {
		updated.PriorityIndex = *update.PriorityIndex
	}
	if update.FilterMethod != nil {
		updated.FilterMethod = *update.FilterMethod
	}
	if update.FilterValue != nil {
		updated.FilterValue = *update.FilterValue
	}
	if update.HasMinimumHold != nil {
		updated.HasMinimumHold = *update.HasMinimumHold
	}
	if update.HoldType != nil {
		updated.HoldType = *update.HoldType
	}
	if update.HoldValue != nil {
		updated.HoldValue = *update.HoldValue
	}
	if update.IsLocked != nil {
		updated.IsLocked = *update.IsLocked
	}
	updated.RecomputeFull()
	updated.UpdatedAt = time.Now()

	r.s.buckets[id] = &updated
	copied := updated
	return &copied, nil
}

func (r *bucketRepository) SetBalance(ctx context.Context, id uuid.UUID, newValue domain.Money) (*domain.Bucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.buckets[id]
	if !ok {
		return nil, nil
	}

	updated := *existing
	updated.CurrentValue = newValue
	updated.RecomputeFull()
	updated.UpdatedAt = time.Now()

	r.s.buckets[id] = &updated
	copied := updated
	return &copied, nil
}

func (r *bucketRepository) Reorder(ctx context.Context, assignments []domain.IndexAssignment) ([]*domain.Bucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// All-or-nothing: verify the whole batch before touching any index.
	for _, a := range assignments {
		if _, ok := r.s.buckets[a.BucketID]; !ok {
			return nil, fmt.Errorf("bucket %s: %w", a.BucketID, domain.ErrNotFound)
		}
	}

	updated := make([]*domain.Bucket, 0, len(assignments))
	for _, a := range assignments {
		b := *r.s.buckets[a.BucketID]
		b.PriorityIndex = a.NewIndex
		b.UpdatedAt = time.Now()
		r.s.buckets[a.BucketID] = &b

		copied := b
		updated = append(updated, &copied)
	}
	return updated, nil
}

func (r *bucketRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.buckets[id]; !ok {
		return false, nil
	}
	delete(r.s.buckets, id)
	delete(r.s.bucketSeq, id)
	return true, nil
}
