package deposit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
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

func createBucket(t *testing.T, store domain.Store, ownerID uuid.UUID, name string, index int, target, current int64, method domain.FilterMethod, filterValue string) *domain.Bucket {
	t.Helper()
	b := &domain.Bucket{
		OwnerID:       ownerID,
		Name:          name,
		TargetValue:   domain.NewMoneyFromInt(target),
		CurrentValue:  domain.NewMoneyFromInt(current),
		PriorityIndex: index,
		FilterMethod:  method,
		FilterValue:   domain.MustMoney(filterValue),
	}
	require.NoError(t, b.Validate())
	require.NoError(t, store.Buckets().Create(context.Background(), b))
	return b
}

func TestProcessDeposit_FanOutWithOverflow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	// A is 50 short of its target, so its flat claim of 100 is capped at
	// the room. B claims 10% of the original deposit.
	a := createBucket(t, store, ownerID, "A", 0, 500, 450, domain.FilterMethodFlatValue, "100")
	b := createBucket(t, store, ownerID, "B", 1, 1000, 0, domain.FilterMethodPercentage, "10")

	result, err := service.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(200))
	require.NoError(t, err)

	// Event accounting.
	assert.Equal(t, "200.00", result.Event.OriginalAmount.String())
	assert.Equal(t, "200.00", result.Event.TotalProcessed.String())
	assert.Equal(t, "130.00", result.Event.MoneyBucketAmount.String())

	// A was topped up to its target and marked filled by this entry.
	require.Len(t, result.BucketEntries, 2)
	assert.Equal(t, a.ID, result.BucketEntries[0].BucketID)
	assert.Equal(t, "50.00", result.BucketEntries[0].Amount.String())
	assert.True(t, result.BucketEntries[0].WasFilled)

	assert.Equal(t, b.ID, result.BucketEntries[1].BucketID)
	assert.Equal(t, "20.00", result.BucketEntries[1].Amount.String())
	assert.False(t, result.BucketEntries[1].WasFilled)

	// Overflow landed in the lazily created money bucket.
	require.NotNil(t, result.MoneyBucketEntry)
	assert.Equal(t, "130.00", result.MoneyBucketEntry.Amount.String())

	moneyBucket, err := store.MoneyBuckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, moneyBucket)
	assert.Equal(t, "130.00", moneyBucket.CurrentValue.String())

	// Persisted balances match, and A is now full.
	updatedA, err := store.Buckets().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", updatedA.CurrentValue.String())
	assert.True(t, updatedA.IsFull)

	updatedB, err := store.Buckets().FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", updatedB.CurrentValue.String())

	// All bucket entries reference the deposit event.
	linked, err := store.BucketLedger().FindByDepositEvent(ctx, result.Event.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)
}

func TestProcessDeposit_NoBucketsAllOverflow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	result, err := service.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(75))
	require.NoError(t, err)

	assert.Empty(t, result.BucketEntries)
	require.NotNil(t, result.MoneyBucketEntry)
	assert.Equal(t, "75.00", result.MoneyBucketEntry.Amount.String())

	moneyBucket, err := store.MoneyBuckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", moneyBucket.CurrentValue.String())
}

func TestProcessDeposit_NoOverflowNoMoneyBucketEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	createBucket(t, store, ownerID, "A", 0, 1000, 0, domain.FilterMethodFlatValue, "100")

	result, err := service.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(100))
	require.NoError(t, err)

	assert.Nil(t, result.MoneyBucketEntry)
	assert.True(t, result.Event.MoneyBucketAmount.IsZero())

	// The money bucket is still created lazily, at zero.
	moneyBucket, err := store.MoneyBuckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, moneyBucket)
	assert.True(t, moneyBucket.CurrentValue.IsZero())
}

func TestProcessDeposit_RejectsNonPositiveAmount(t *testing.T) {
	service := NewService(memory.NewStore(), testLogger())

	_, err := service.ProcessDeposit(context.Background(), uuid.New(), domain.ZeroMoney())
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = service.ProcessDeposit(context.Background(), uuid.New(), domain.NewMoneyFromInt(-5))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestProcessDeposit_LedgerReplaysToBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	bucket := createBucket(t, store, ownerID, "Savings", 0, 1000, 0, domain.FilterMethodPercentage, "33")

	for _, amount := range []string{"150.00", "99.99", "0.01"} {
		_, err := service.ProcessDeposit(ctx, ownerID, domain.MustMoney(amount))
		require.NoError(t, err)
	}

	// Replay the bucket's full history oldest-first and compare to the
	// stored balance.
	page, err := store.BucketLedger().FindByBucketPage(ctx, bucket.ID, domain.Pagination{Limit: 100})
	require.NoError(t, err)
	entries := make([]*domain.BucketLedgerEntry, len(page.Items))
	for i, e := range page.Items {
		entries[len(page.Items)-1-i] = e
	}

	replayed, err := domain.ReplayBucketLedger(entries)
	require.NoError(t, err)

	current, err := store.Buckets().FindByID(ctx, bucket.ID)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(current.CurrentValue),
		"replayed %s, stored %s", replayed, current.CurrentValue)
}

func TestProcessDeposit_ConcurrentDepositsConserveFunds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()
	service := NewService(store, testLogger())

	// Small flat claims so concurrent runs contend on the same balances.
	a := createBucket(t, store, ownerID, "A", 0, 500, 0, domain.FilterMethodFlatValue, "7")
	b := createBucket(t, store, ownerID, "B", 1, 500, 0, domain.FilterMethodPercentage, "13")

	const workers = 20
	depositEach := domain.NewMoneyFromInt(10)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.ProcessDeposit(ctx, ownerID, depositEach)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// No lost update: everything deposited is held somewhere.
	total := domain.ZeroMoney()
	for i := 0; i < workers; i++ {
		total = total.Add(depositEach)
	}

	held := domain.ZeroMoney()
	buckets, err := store.Buckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	for _, bucket := range buckets {
		held = held.Add(bucket.CurrentValue)
	}
	moneyBucket, err := store.MoneyBuckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	held = held.Add(moneyBucket.CurrentValue)

	assert.True(t, held.Equal(total), "held %s of %s deposited", held, total)

	// Interleaved runs would break the before/after chain; replay must
	// succeed on every ledger.
	for _, bucketID := range []uuid.UUID{a.ID, b.ID} {
		page, err := store.BucketLedger().FindByBucketPage(ctx, bucketID, domain.Pagination{Limit: workers})
		require.NoError(t, err)
		entries := make([]*domain.BucketLedgerEntry, len(page.Items))
		for i, e := range page.Items {
			entries[len(page.Items)-1-i] = e
		}
		_, err = domain.ReplayBucketLedger(entries)
		require.NoError(t, err)
	}
}

var errLedgerDown = errors.New("ledger unavailable")

// flakyStore wraps a store so the money bucket ledger fails inside the unit
// of work, exercising rollback.
type flakyStore struct {
	domain.Store
}

func (f *flakyStore) WithinOwner(ctx context.Context, ownerID uuid.UUID, fn func(domain.Store) error) error {
	return f.Store.WithinOwner(ctx, ownerID, func(tx domain.Store) error {
		return fn(&flakyTx{Store: tx})
	})
}

type flakyTx struct {
	domain.Store
}

func (f *flakyTx) MoneyBucketLedger() domain.MoneyBucketLedgerRepository {
	return &failingMoneyLedger{f.Store.MoneyBucketLedger()}
}

type failingMoneyLedger struct {
	domain.MoneyBucketLedgerRepository
}

func (r *failingMoneyLedger) Create(ctx context.Context, entry *domain.MoneyBucketLedgerEntry) error {
	return errLedgerDown
}

func TestProcessDeposit_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ownerID := uuid.New()

	bucket := createBucket(t, store, ownerID, "A", 0, 500, 450, domain.FilterMethodFlatValue, "100")

	service := NewService(&flakyStore{Store: store}, testLogger())

	// The deposit overflows, so the failing money bucket ledger aborts the
	// run after the bucket balance was already updated in the transaction.
	_, err := service.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(200))
	require.ErrorIs(t, err, errLedgerDown)

	// Nothing survived the rollback.
	unchanged, err := store.Buckets().FindByID(ctx, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, "450.00", unchanged.CurrentValue.String())

	moneyBucket, err := store.MoneyBuckets().FindByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Nil(t, moneyBucket)

	events, err := store.DepositEvents().FindByOwnerPage(ctx, ownerID, domain.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, events.Total)

	ledger, err := store.BucketLedger().FindByOwnerPage(ctx, ownerID, domain.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, ledger.Total)
}
