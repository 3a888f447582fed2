package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
	"github.com/dmcampos/bucketeer-backend/internal/metrics"
)

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the repositories run unchanged inside and outside a unit of work.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store on PostgreSQL.
type Store struct {
	db *DB
	q  queryer
}

// NewStore creates a Postgres-backed store.
func NewStore(db *DB) *Store {
	return &Store{db: db, q: db.DB}
}

// Buckets returns the bucket repository.
func (s *Store) Buckets() domain.BucketRepository { return &bucketRepository{s} }

// MoneyBuckets returns the money bucket repository.
func (s *Store) MoneyBuckets() domain.MoneyBucketRepository { return &moneyBucketRepository{s} }

// DepositEvents returns the deposit event repository.
func (s *Store) DepositEvents() domain.DepositEventRepository { return &depositEventRepository{s} }

// BucketLedger returns the bucket ledger repository.
func (s *Store) BucketLedger() domain.BucketLedgerRepository { return &bucketLedgerRepository{s} }

// MoneyBucketLedger returns the money bucket ledger repository.
func (s *Store) MoneyBucketLedger() domain.MoneyBucketLedgerRepository {
	return &moneyBucketLedgerRepository{s}
}

// WithinOwner runs fn inside one serializable transaction holding a
// per-owner advisory lock, so two units of work for the same owner never
// interleave while different owners proceed independently. The lock is
// released with the transaction on every exit path.
func (s *Store) WithinOwner(ctx context.Context, ownerID uuid.UUID, fn func(domain.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ownerID.String(),
	); err != nil {
		metrics.TransactionRollbacks.Inc()
		return fmt.Errorf("%w: failed to acquire owner lock: %v", domain.ErrTransactionFailed, err)
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		metrics.TransactionRollbacks.Inc()
		return classifyStorageError(err)
	}

	if err := tx.Commit(); err != nil {
		metrics.TransactionRollbacks.Inc()
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrTransactionFailed, err)
	}
	return nil
}

// classifyStorageError surfaces storage-level failures raised inside a unit
// of work as ErrTransactionFailed, so callers see one retryable error for
// serialization conflicts (class 40) and lost connections (class 08) no
// matter which repository call hit them. Domain errors pass through
// untouched.
func classifyStorageError(err error) error {
	if errors.Is(err, domain.ErrTransactionFailed) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "40", "08":
			return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	return err
}

// withTx runs fn in the current transaction if the store is already bound
// to one, otherwise in a fresh transaction. Used by operations that must be
// atomic on their own, such as Reorder.
func (s *Store) withTx(ctx context.Context, fn func(queryer) error) error {
	if tx, ok := s.q.(*sql.Tx); ok {
		return fn(tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrTransactionFailed, err)
	}
	return nil
}
