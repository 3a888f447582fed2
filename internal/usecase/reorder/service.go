package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/metrics"
)

// Service atomically rewrites the priority index of a batch of buckets.
// Priority order determines which buckets claim deposit funds first, so a
// partially applied batch is a correctness violation, not a display glitch.
type Service struct {
	store domain.Store
	log   *slog.Logger
}

// NewService creates a new reorder Service instance.
func NewService(store domain.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// ReorderBuckets validates and applies a batch of priority assignments for
// one owner, returning the owner's buckets in their new order.
// Logic (single atomic unit of work, serialized per owner):
//  1. Every assignment must reference an existing bucket of this owner
//     (NotFound otherwise) and appear at most once
//  2. The resulting index set across the owner's whole collection must be
//     free of duplicates (IndexConflict otherwise)
//  3. Apply all assignments via the repository's atomic Reorder
func (s *Service) ReorderBuckets(ctx context.Context, ownerID uuid.UUID, assignments []domain.IndexAssignment) ([]*domain.Bucket, error) {
	if len(assignments) == 0 {
		return nil, errors.New("reorder batch cannot be empty")
	}

	var reordered []*domain.Bucket
	err := s.store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		buckets, err := tx.Buckets().FindByOwner(ctx, ownerID)
		if err != nil {
			return err
		}

		owned := make(map[uuid.UUID]*domain.Bucket, len(buckets))
		for _, b := range buckets {
			owned[b.ID] = b
		}

		assigned := make(map[uuid.UUID]int, len(assignments))
		for _, a := range assignments {
			if a.NewIndex < 0 {
				return fmt.Errorf("bucket %s: priority index cannot be negative", a.BucketID)
			}
			if _, ok := owned[a.BucketID]; !ok {
				return fmt.Errorf("bucket %s: %w", a.BucketID, domain.ErrNotFound)
			}
			if _, dup := assigned[a.BucketID]; dup {
				return fmt.Errorf("bucket %s assigned twice: %w", a.BucketID, domain.ErrIndexConflict)
			}
			assigned[a.BucketID] = a.NewIndex
		}

		// Check the resulting index set across the whole collection,
		// including buckets the batch does not touch.
		seen := make(map[int]uuid.UUID, len(buckets))
		for _, b := range buckets {
			index := b.PriorityIndex
			if newIndex, ok := assigned[b.ID]; ok {
				index = newIndex
			}
			if other, taken := seen[index]; taken {
				return fmt.Errorf("index %d claimed by both %s and %s: %w",
					index, other, b.ID, domain.ErrIndexConflict)
			}
			seen[index] = b.ID
		}

		if _, err := tx.Buckets().Reorder(ctx, assignments); err != nil {
			return err
		}

		reordered, err = tx.Buckets().FindByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		s.log.ErrorContext(ctx, "reorder failed",
			"owner_id", ownerID, "batch_size", len(assignments), "error", err)
		return nil, err
	}

	metrics.Reorders.Inc()
	s.log.InfoContext(ctx, "buckets reordered",
		"owner_id", ownerID, "batch_size", len(assignments))
	return reordered, nil
}
