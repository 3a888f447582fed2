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

const moneyBucketColumns = `id, owner_id, current_value, total_redistributed,
	last_redistribution_at, created_at, updated_at`

// moneyBucketRepository implements domain.MoneyBucketRepository
type moneyBucketRepository struct {
	s *Store
}

func scanMoneyBucket(row interface{ Scan(...any) error }) (*domain.MoneyBucket, error) {
	var mb domain.MoneyBucket
	var lastRedistribution sql.NullTime

	err := row.Scan(
		&mb.ID,
		&mb.OwnerID,
		&mb.CurrentValue,
		&mb.TotalRedistributed,
		&lastRedistribution,
		&mb.CreatedAt,
		&mb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastRedistribution.Valid {
		t := lastRedistribution.Time
		mb.LastRedistributionAt = &t
	}
	return &mb, nil
}

func (r *moneyBucketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.MoneyBucket, error) {
	query := `SELECT ` + moneyBucketColumns + ` FROM money_buckets WHERE id = $1`

	mb, err := scanMoneyBucket(r.s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get money bucket by ID: %w", err)
	}
	return mb, nil
}

func (r *moneyBucketRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.MoneyBucket, error) {
	// owner_id is unique: at most one money bucket exists per owner.
	query := `SELECT ` + moneyBucketColumns + ` FROM money_buckets WHERE owner_id = $1`

	mb, err := scanMoneyBucket(r.s.q.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get money bucket by owner: %w", err)
	}
	return mb, nil
}

func (r *moneyBucketRepository) Create(ctx context.Context, mb *domain.MoneyBucket) error {
	if mb.ID == uuid.Nil {
		mb.ID = uuid.New()
	}
	now := time.Now()
	mb.CreatedAt = now
	mb.UpdatedAt = now

	query := `
		INSERT INTO money_buckets (id, owner_id, current_value, total_redistributed,
			last_redistribution_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var lastRedistribution any
	if mb.LastRedistributionAt != nil {
		lastRedistribution = *mb.LastRedistributionAt
	}

	_, err := r.s.q.ExecContext(ctx, query,
		mb.ID,
		mb.OwnerID,
		mb.CurrentValue,
		mb.TotalRedistributed,
		lastRedistribution,
		mb.CreatedAt,
		mb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create money bucket: %w", err)
	}
	return nil
}

func (r *moneyBucketRepository) Update(ctx context.Context, id uuid.UUID, update domain.MoneyBucketUpdate) (*domain.MoneyBucket, error) {
	if update.CurrentValue == nil {
		return r.FindByID(ctx, id)
	}

	query := `
		UPDATE money_buckets
		SET current_value = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + moneyBucketColumns

	mb, err := scanMoneyBucket(r.s.q.QueryRowContext(ctx, query, id, *update.CurrentValue))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update money bucket: %w", err)
	}
	return mb, nil
}

func (r *moneyBucketRepository) SetBalance(ctx context.Context, ownerID uuid.UUID, newValue domain.Money) (*domain.MoneyBucket, error) {
	query := `
		UPDATE money_buckets
		SET current_value = $2, updated_at = NOW()
		WHERE owner_id = $1
		RETURNING ` + moneyBucketColumns

	mb, err := scanMoneyBucket(r.s.q.QueryRowContext(ctx, query, ownerID, newValue))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set money bucket balance: %w", err)
	}
	return mb, nil
}

func (r *moneyBucketRepository) AddRedistributed(ctx context.Context, ownerID uuid.UUID, amount domain.Money) (*domain.MoneyBucket, error) {
	query := `
		UPDATE money_buckets
		SET total_redistributed = total_redistributed + $2::numeric,
			last_redistribution_at = NOW(),
			updated_at = NOW()
		WHERE owner_id = $1
		RETURNING ` + moneyBucketColumns

	mb, err := scanMoneyBucket(r.s.q.QueryRowContext(ctx, query, ownerID, amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to increment redistributed total: %w", err)
	}
	return mb, nil
}
