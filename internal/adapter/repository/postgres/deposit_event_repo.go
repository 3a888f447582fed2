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

const depositEventColumns = `id, owner_id, original_amount, total_processed,
	money_bucket_amount, created_at`

// depositEventRepository implements domain.DepositEventRepository
type depositEventRepository struct {
	s *Store
}

func scanDepositEvent(row interface{ Scan(...any) error }) (*domain.DepositEvent, error) {
	var event domain.DepositEvent
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.OriginalAmount,
		&event.TotalProcessed,
		&event.MoneyBucketAmount,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *depositEventRepository) Create(ctx context.Context, event *domain.DepositEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO deposit_transactions (id, owner_id, original_amount, total_processed,
			money_bucket_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.s.q.ExecContext(ctx, query,
		event.ID,
		event.OwnerID,
		event.OriginalAmount,
		event.TotalProcessed,
		event.MoneyBucketAmount,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deposit event: %w", err)
	}
	return nil
}

func (r *depositEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DepositEvent, error) {
	query := `SELECT ` + depositEventColumns + ` FROM deposit_transactions WHERE id = $1`

	event, err := scanDepositEvent(r.s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deposit event by ID: %w", err)
	}
	return event, nil
}

func (r *depositEventRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.DepositEvent], error) {
	p = p.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM deposit_transactions WHERE owner_id = $1`
	if err := r.s.q.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count deposit events: %w", err)
	}

	query := `SELECT ` + depositEventColumns + ` FROM deposit_transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.s.q.QueryContext(ctx, query, ownerID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit events: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.DepositEvent, 0)
	for rows.Next() {
		event, err := scanDepositEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit event: %w", err)
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NewPage(items, total, p), nil
}
