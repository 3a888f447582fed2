//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmcampos/bucketeer-backend/internal/adapter/repository/postgres"
	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/deposit"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/query"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/redistribution"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/reorder"
	"github.com/dmcampos/bucketeer-backend/internal/usecase/transfer"
)

var store *postgres.Store

// TestMain connects to the database and applies migrations. Each test uses a
// fresh owner ID, so runs are isolated without truncating tables.
func TestMain(m *testing.M) {
	db, err := postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		panic(fmt.Sprintf("Failed to run migrations: %v", err))
	}

	store = postgres.NewStore(db)
	os.Exit(m.Run())
}

func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return "host=localhost port=5432 user=postgres password=postgres dbname=bucketeer_test sslmode=disable"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createBucket(t *testing.T, ownerID uuid.UUID, name string, index int, target int64, method domain.FilterMethod, filterValue string) *domain.Bucket {
	t.Helper()
	b := &domain.Bucket{
		OwnerID:       ownerID,
		Name:          name,
		TargetValue:   domain.NewMoneyFromInt(target),
		CurrentValue:  domain.ZeroMoney(),
		PriorityIndex: index,
		FilterMethod:  method,
		FilterValue:   domain.MustMoney(filterValue),
	}
	require.NoError(t, b.Validate())
	require.NoError(t, store.Buckets().Create(context.Background(), b))
	return b
}

// TestDepositRedistributeWithdrawFlow drives one owner through the full
// lifecycle: deposit with overflow, redistribution back out of the money
// bucket, a held withdrawal, and a final ledger replay.
func TestDepositRedistributeWithdrawFlow(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	deposits := deposit.NewService(store, testLogger())
	redistributions := redistribution.NewService(store, testLogger())
	transfers := transfer.NewService(store, testLogger())
	queries := query.NewService(store)

	// Two buckets: a flat claim and a percentage claim.
	rent := createBucket(t, ownerID, "Rent", 0, 800, domain.FilterMethodFlatValue, "600")
	savings := createBucket(t, ownerID, "Savings", 1, 5000, domain.FilterMethodPercentage, "20")

	// Deposit 1000: Rent claims 600, Savings claims 200, 200 overflows.
	result, err := deposits.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "200.00", result.Event.MoneyBucketAmount.String())
	require.Len(t, result.BucketEntries, 2)

	moneyBucket, err := queries.GetMoneyBucket(ctx, ownerID)
	require.NoError(t, err)
	require.NotNil(t, moneyBucket)
	assert.Equal(t, "200.00", moneyBucket.CurrentValue.String())

	// Redistribute the overflow into Rent; its room is 200, so the money
	// bucket drains completely and Rent fills.
	redis, err := redistributions.Redistribute(ctx, ownerID, rent.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "200.00", redis.Moved.String())
	assert.True(t, redis.Bucket.IsFull)
	assert.True(t, redis.MoneyBucket.CurrentValue.IsZero())

	// Withdraw 100 from Savings.
	entry, err := transfers.Withdraw(ctx, ownerID, savings.ID, domain.NewMoneyFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "100.00", entry.BalanceAfter.String())

	// Replay each bucket's ledger oldest-first; it must land exactly on
	// the stored balance.
	for _, bucketID := range []uuid.UUID{rent.ID, savings.ID} {
		page, err := queries.ListBucketLedgerByBucket(ctx, bucketID, domain.Pagination{Limit: 100})
		require.NoError(t, err)

		entries := make([]*domain.BucketLedgerEntry, len(page.Items))
		for i, e := range page.Items {
			entries[len(page.Items)-1-i] = e
		}
		replayed, err := domain.ReplayBucketLedger(entries)
		require.NoError(t, err)

		current, err := queries.GetBucket(ctx, bucketID)
		require.NoError(t, err)
		assert.True(t, replayed.Equal(current.CurrentValue),
			"bucket %s: replayed %s, stored %s", bucketID, replayed, current.CurrentValue)
	}

	// The money bucket ledger replays too: one inflow, one outflow.
	moneyPage, err := queries.ListMoneyBucketLedger(ctx, ownerID, domain.Pagination{Limit: 100})
	require.NoError(t, err)
	require.Len(t, moneyPage.Items, 2)

	moneyEntries := make([]*domain.MoneyBucketLedgerEntry, len(moneyPage.Items))
	for i, e := range moneyPage.Items {
		moneyEntries[len(moneyPage.Items)-1-i] = e
	}
	moneyReplayed, err := domain.ReplayMoneyBucketLedger(moneyEntries)
	require.NoError(t, err)
	assert.True(t, moneyReplayed.IsZero())
}

// TestDepositConservation checks that over a series of deposits every cent
// is accounted for: bucket balances plus the money bucket equal the total
// deposited.
func TestDepositConservation(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	deposits := deposit.NewService(store, testLogger())
	queries := query.NewService(store)

	createBucket(t, ownerID, "A", 0, 300, domain.FilterMethodFlatValue, "125")
	createBucket(t, ownerID, "B", 1, 400, domain.FilterMethodPercentage, "33")
	createBucket(t, ownerID, "C", 2, 50, domain.FilterMethodPercentage, "7")

	total := domain.ZeroMoney()
	for _, amount := range []string{"199.99", "0.01", "333.33", "1000.00"} {
		m := domain.MustMoney(amount)
		_, err := deposits.ProcessDeposit(ctx, ownerID, m)
		require.NoError(t, err)
		total = total.Add(m)
	}

	held := domain.ZeroMoney()
	buckets, err := queries.ListBuckets(ctx, ownerID)
	require.NoError(t, err)
	for _, b := range buckets {
		held = held.Add(b.CurrentValue)
	}
	moneyBucket, err := queries.GetMoneyBucket(ctx, ownerID)
	require.NoError(t, err)
	held = held.Add(moneyBucket.CurrentValue)

	assert.True(t, held.Equal(total), "held %s of %s deposited", held, total)
}

// TestReorderChangesAllocationOrder reorders two buckets and checks the next
// deposit follows the new priority.
func TestReorderChangesAllocationOrder(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	deposits := deposit.NewService(store, testLogger())
	reorders := reorder.NewService(store, testLogger())

	first := createBucket(t, ownerID, "First", 0, 100, domain.FilterMethodFlatValue, "100")
	second := createBucket(t, ownerID, "Second", 1, 100, domain.FilterMethodFlatValue, "100")

	reordered, err := reorders.ReorderBuckets(ctx, ownerID, []domain.IndexAssignment{
		{BucketID: first.ID, NewIndex: 1},
		{BucketID: second.ID, NewIndex: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, reordered[0].ID)

	// A 100 deposit now lands entirely in Second.
	result, err := deposits.ProcessDeposit(ctx, ownerID, domain.NewMoneyFromInt(100))
	require.NoError(t, err)
	require.Len(t, result.BucketEntries, 1)
	assert.Equal(t, second.ID, result.BucketEntries[0].BucketID)
	assert.True(t, result.BucketEntries[0].WasFilled)
}
