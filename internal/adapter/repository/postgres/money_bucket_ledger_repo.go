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

const moneyBucketLedgerColumns = `id, owner_id, amount, balance_before, balance_after,
	transaction_type, money_bucket_id, deposit_transaction_id, target_bucket_id, created_at`

// moneyBucketLedgerRepository implements domain.MoneyBucketLedgerRepository.
// Append-only, same contract as the bucket ledger.
type moneyBucketLedgerRepository struct {
	s *Store
}

func scanMoneyBucketLedgerEntry(row interface{ Scan(...any) error }) (*domain.MoneyBucketLedgerEntry, error) {
	var entry domain.MoneyBucketLedgerEntry
	var depositEventID, targetBucketID sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Type,
		&entry.MoneyBucketID,
		&depositEventID,
		&targetBucketID,
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
	if targetBucketID.Valid {
		parsed, err := uuid.Parse(targetBucketID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse target_bucket_id: %w", err)
		}
		entry.TargetBucketID = &parsed
	}
	return &entry, nil
}

func (r *moneyBucketLedgerRepository) Create(ctx context.Context, entry *domain.MoneyBucketLedgerEntry) error {
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
		INSERT INTO money_bucket_transactions (id, owner_id, amount, balance_before, balance_after,
			transaction_type, money_bucket_id, deposit_transaction_id, target_bucket_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var depositEventID, targetBucketID any
	if entry.DepositEventID != nil {
		depositEventID = *entry.DepositEventID
	}
	if entry.TargetBucketID != nil {
		targetBucketID = *entry.TargetBucketID
	}

	_, err := r.s.q.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		string(entry.Type),
		entry.MoneyBucketID,
		depositEventID,
		targetBucketID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create money bucket ledger entry: %w", err)
	}
	return nil
}

func (r *moneyBucketLedgerRepository) CreateMany(ctx context.Context, entries []*domain.MoneyBucketLedgerEntry) error {
	for _, entry := range entries {
		if err := r.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *moneyBucketLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.MoneyBucketLedgerEntry, error) {
	query := `SELECT ` + moneyBucketLedgerColumns + ` FROM money_bucket_transactions WHERE id = $1`

	entry, err := scanMoneyBucketLedgerEntry(r.s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get money bucket ledger entry by ID: %w", err)
	}
	return entry, nil
}

func (r *moneyBucketLedgerRepository) FindByMoneyBucketPage(ctx context.Context, moneyBucketID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	return r.page(ctx, p, `money_bucket_id`, moneyBucketID)
}

func (r *moneyBucketLedgerRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	return r.page(ctx, p, `owner_id`, ownerID)
}

func (r *moneyBucketLedgerRepository) page(ctx context.Context, p domain.Pagination, column string, key uuid.UUID) (*domain.Page[*domain.MoneyBucketLedgerEntry], error) {
	p = p.Normalize()

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM money_bucket_transactions WHERE %s = $1`, column)
	if err := r.s.q.QueryRowContext(ctx, countQuery, key).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count money bucket ledger entries: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM money_bucket_transactions
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, moneyBucketLedgerColumns, column)

	items, err := r.queryEntries(ctx, query, key, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(items, total, p), nil
}

func (r *moneyBucketLedgerRepository) FindByDepositEvent(ctx context.Context, depositEventID uuid.UUID) ([]*domain.MoneyBucketLedgerEntry, error) {
	query := `SELECT ` + moneyBucketLedgerColumns + ` FROM money_bucket_transactions
		WHERE deposit_transaction_id = $1
		ORDER BY created_at ASC`
	return r.queryEntries(ctx, query, depositEventID)
}

func (r *moneyBucketLedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.MoneyBucketLedgerEntry, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list money bucket ledger entries: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.MoneyBucketLedgerEntry, 0)
	for rows.Next() {
		entry, err := scanMoneyBucketLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan money bucket ledger entry: %w", err)
		}
		items = append(items, entry)
	}
	return items, rows.Err()
}

func (r *moneyBucketLedgerRepository) Update(ctx context.Context, id uuid.UUID) (*domain.MoneyBucketLedgerEntry, error) {
	return nil, domain.ErrImmutableRecord
}
