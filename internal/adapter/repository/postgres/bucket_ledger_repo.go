package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

const bucketLedgerColumns = `id, owner_id, amount, balance_before, balance_after,
	was_filled, transaction_type, bucket_id, deposit_transaction_id, created_at`

// bucketLedgerRepository implements domain.BucketLedgerRepository.
// The table is append-only; Update always fails with ErrImmutableRecord
// and no delete is exposed.
type bucketLedgerRepository struct {
	s *Store
}

func scanBucketLedgerEntry(row interface{ Scan(...any) error }) (*domain.BucketLedgerEntry, error) {
	var entry domain.BucketLedgerEntry
	var depositEventID sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.WasFilled,
		&entry.Type,
		&entry.BucketID,
		&depositEventID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if depositEventID.Valid {
		parsed, err := uuid.Parse(depositEventID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse deposit_transaction_id: %w", err)
		}
		entry.DepositEventID = &parsed
	}
	return &entry, nil
}

func (r *bucketLedgerRepository) Create(ctx context.Context, entry *domain.BucketLedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO bucket_transactions (id, owner_id, amount, balance_before, balance_after,
			was_filled, transaction_type, bucket_id, deposit_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var depositEventID any
	if entry.DepositEventID != nil {
		depositEventID = *entry.DepositEventID
	}

	_, err := r.s.q.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.WasFilled,
		string(entry.Type),
		entry.BucketID,
		depositEventID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bucket ledger entry: %w", err)
	}
	return nil
}

func (r *bucketLedgerRepository) CreateMany(ctx context.Context, entries []*domain.BucketLedgerEntry) error {
	for _, entry := range entries {
		if err := r.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *bucketLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BucketLedgerEntry, error) {
	query := `SELECT ` + bucketLedgerColumns + ` FROM bucket_transactions WHERE id = $1`

	entry, err := scanBucketLedgerEntry(r.s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bucket ledger entry by ID: %w", err)
	}
	return entry, nil
}

func (r *bucketLedgerRepository) FindByBucketPage(ctx context.Context, bucketID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return r.page(ctx, p, `bucket_id`, bucketID)
}

func (r *bucketLedgerRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.BucketLedgerEntry], error) {
	return r.page(ctx, p, `owner_id`, ownerID)
}

func (r *bucketLedgerRepository) page(ctx context.Context, p domain.Pagination, column string, key uuid.UUID) (*domain.Page[*domain.BucketLedgerEntry], error) {
	p = p.Normalize()

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bucket_transactions WHERE %s = $1`, column)
	if err := r.s.q.QueryRowContext(ctx, countQuery, key).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count bucket ledger entries: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM bucket_transactions
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, bucketLedgerColumns, column)

	items, err := r.queryEntries(ctx, query, key, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(items, total, p), nil
}

func (r *bucketLedgerRepository) FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*domain.BucketLedgerEntry, error) {
	query := `SELECT ` + bucketLedgerColumns + ` FROM bucket_transactions
		WHERE deposit_transaction_id = $1
		ORDER BY created_at ASC`
	return r.queryEntries(ctx, query, depositEventID)
}

func (r *bucketLedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.BucketLedgerEntry, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket ledger entries: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.BucketLedgerEntry, 0)
	for rows.Next() {
		entry, err := scanBucketLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket ledger entry: %w", err)
		}
		items = append(items, entry)
	}
	return items, rows.Err()
}

func (r *bucketLedgerRepository) Update(ctx context.Context, id uuid.UUID) (*domain.BucketLedgerEntry, error) {
	return nil, domain.ErrImmutableRecord
}
