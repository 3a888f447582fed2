package reorder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmcampos/bucketeer-backend/internal/adapter/repository/memory"
	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedBucket(t *testing.T, store domain.Store, ownerID uuid.UUID, name string, index int) *domain.Bucket {
	t.Helper()
	b := &domain.Bucket{
		OwnerID:       ownerID,
		Name:          name,
		TargetValue:   domain.NewMoneyFromInt(100),
		CurrentValue:  domain.ZeroMoney(),
		PriorityIndex: index,
		FilterMethod:  domain.FilterMethodFlatValue,
		FilterValue:   domain.NewMoneyFromInt(10),
	}
	require.NoError(t, store.Buckets().Create(context.Background(), b))
	return b
}

func indexes(t *testing.T, store domain.Store, ownerID uuid.UUID) map[string]int {
	t.Helper()
	buckets, err := store.Buckets().FindByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	out := make(map[string]int, len(buckets))
	for _, b := range buckets {
		out[b.Name] = b.PriorityIndex
	}
	return out
}

func TestReorderBuckets_SwapsAtomically(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	a := seedBucket(t, store, ownerID, "A", 0)
	b := seedBucket(t, store, ownerID, "B", 1)
	seedBucket(t, store, ownerID, "C", 2)

	reordered, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: 1},
		{BucketID: b.ID, NewIndex: 0},
	})
	require.NoError(t, err)

	// Returned in the new priority order.
	require.Len(t, reordered, 3)
	assert.Equal(t, "B", reordered[0].Name)
	assert.Equal(t, "A", reordered[1].Name)
	assert.Equal(t, "C", reordered[2].Name)
}

func TestReorderBuckets_DuplicateTargetIndexIsConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	a := seedBucket(t, store, ownerID, "A", 0)
	b := seedBucket(t, store, ownerID, "B", 1)

	_, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: 5},
		{BucketID: b.ID, NewIndex: 5},
	})
	assert.ErrorIs(t, err, domain.ErrIndexConflict)

	// Nothing moved.
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, indexes(t, store, ownerID))
}

func TestReorderBuckets_CollisionWithUnlistedBucketIsConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	a := seedBucket(t, store, ownerID, "A", 0)
	seedBucket(t, store, ownerID, "B", 1)

	// Moving A onto B's index without moving B collides.
	_, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: 1},
	})
	assert.ErrorIs(t, err, domain.ErrIndexConflict)
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, indexes(t, store, ownerID))
}

func TestReorderBuckets_SameBucketTwiceIsConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	a := seedBucket(t, store, ownerID, "A", 0)

	_, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: 1},
		{BucketID: a.ID, NewIndex: 2},
	})
	assert.ErrorIs(t, err, domain.ErrIndexConflict)
	assert.Equal(t, map[string]int{"A": 0}, indexes(t, store, ownerID))
}

func TestReorderBuckets_UnknownBucketIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	a := seedBucket(t, store, ownerID, "A", 0)

	// One bad assignment rejects the whole batch, including the valid move.
	_, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: 3},
		{BucketID: uuid.New(), NewIndex: 4},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, map[string]int{"A": 0}, indexes(t, store, ownerID))
}

func TestReorderBuckets_ForeignBucketIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	foreign := seedBucket(t, store, uuid.New(), "Foreign", 0)

	_, err := service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: foreign.ID, NewIndex: 1},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReorderBuckets_RejectsEmptyBatchAndNegativeIndex(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	_, err := service.ReorderBuckets(ctx, ownerID, nil)
	assert.Error(t, err)

	a := seedBucket(t, store, ownerID, "A", 0)
	_, err = service.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: a.ID, NewIndex: -1},
	})
	assert.Error(t, err)
}
