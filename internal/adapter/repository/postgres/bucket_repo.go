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

const bucketColumns = `id, owner_id, name, target_value, current_value, priority_index,
	filter_method, filter_value, has_minimum_hold, hold_type, hold_value,
	is_locked, is_full, created_at, updated_at`

// bucketRepository implements domain.BucketRepository
type bucketRepository struct {
	s *Store
}

func scanBucket(row interface{ Scan(...any) error }) (*domain.Bucket, error) {
	var bucket domain.Bucket
	var holdType sql.NullString

	err := row.Scan(
		&bucket.ID,
		&bucket.OwnerID,
		&bucket.Name,
		&bucket.TargetValue,
		&bucket.CurrentValue,
		&bucket.PriorityIndex,
		&bucket.FilterMethod,
		&bucket.FilterValue,
		&bucket.HasMinimumHold,
		&holdType,
		&bucket.HoldValue,
		&bucket.IsLocked,
		&bucket.IsFull,
		&bucket.CreatedAt,
		&bucket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if holdType.Valid {
		bucket.HoldType = domain.HoldType(holdType.String)
	}
	return &bucket, nil
}

func (r *bucketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets WHERE id = $1`

	bucket, err := scanBucket(r.s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bucket by ID: %w", err)
	}
	return bucket, nil
}

func (r *bucketRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets
		WHERE owner_id = $1
		ORDER BY priority_index ASC, created_at ASC`
	return r.queryBuckets(ctx, query, ownerID)
}

func (r *bucketRepository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets
		WHERE owner_id = $1 AND is_locked = FALSE
		ORDER BY priority_index ASC, created_at ASC`
	return r.queryBuckets(ctx, query, ownerID)
}

func (r *bucketRepository) queryBuckets(ctx context.Context, query string, args ...any) ([]*domain.Bucket, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]*domain.Bucket, 0)
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

func (r *bucketRepository) FindByOwnerPage(ctx context.Context, ownerID uuid.UUID, p domain.Pagination) (*domain.Page[*domain.Bucket], error) {
	p = p.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM buckets WHERE owner_id = $1`
	if err := r.s.q.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count buckets: %w", err)
	}

	orderColumn := "priority_index"
	switch p.OrderBy {
	case "created_at", "name":
		orderColumn = p.OrderBy
	}
	direction := "ASC"
	if p.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM buckets
		WHERE owner_id = $1
		ORDER BY %s %s, created_at ASC
		LIMIT $2 OFFSET $3`, bucketColumns, orderColumn, direction)

	items, err := r.queryBuckets(ctx, query, ownerID, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(items, total, p), nil
}

func (r *bucketRepository) Create(ctx context.Context, bucket *domain.Bucket) error {
	if bucket.ID == uuid.Nil {
		bucket.ID = uuid.New()
	}
	now := time.Now()
	bucket.CreatedAt = now
	bucket.UpdatedAt = now
	bucket.RecomputeFull()

	query := `
		INSERT INTO buckets (id, owner_id, name, target_value, current_value, priority_index,
			filter_method, filter_value, has_minimum_hold, hold_type, hold_value,
			is_locked, is_full, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var holdType any
	if bucket.HasMinimumHold {
		holdType = string(bucket.HoldType)
	}

	_, err := r.s.q.ExecContext(ctx, query,
		bucket.ID,
		bucket.OwnerID,
		bucket.Name,
		bucket.TargetValue,
		bucket.CurrentValue,
		bucket.PriorityIndex,
		string(bucket.FilterMethod),
		bucket.FilterValue,
		bucket.HasMinimumHold,
		holdType,
		bucket.HoldValue,
		bucket.IsLocked,
		bucket.IsFull,
		bucket.CreatedAt,
		bucket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Update reads the current row, applies the partial update in Go and writes
// the full row back, so the full flag is always recomputed against the
// effective target. ID, owner and creation time are never touched.
func (r *bucketRepository) Update(ctx context.Context, id uuid.UUID, update domain.BucketUpdate) (*domain.Bucket, error) {
	bucket, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		return nil, nil
	}

	if update.Name != nil {
		bucket.Name = *update.Name
	}
	if update.TargetValue != nil {
		bucket.TargetValue = *update.TargetValue
	}
	if update.PriorityIndex != nil {
		bucket.PriorityIndex = *update.PriorityIndex
	}
	if update.FilterMethod != nil {
		bucket.FilterMethod = *update.FilterMethod
	}
	if update.FilterValue != nil {
		bucket.FilterValue = *update.FilterValue
	}
	if update.HasMinimumHold != nil {
		bucket.HasMinimumHold = *update.HasMinimumHold
	}
	if update.HoldType != nil {
		bucket.HoldType = *update.HoldType
	}
	if update.HoldValue != nil {
		bucket.HoldValue = *update.HoldValue
	}
	if update.IsLocked != nil {
		bucket.IsLocked = *update.IsLocked
	}
	bucket.RecomputeFull()
	bucket.UpdatedAt = time.Now()

	query := `
		UPDATE buckets
		SET name = $2, target_value = $3, priority_index = $4, filter_method = $5,
			filter_value = $6, has_minimum_hold = $7, hold_type = $8, hold_value = $9,
			is_locked = $10, is_full = $11, updated_at = $12
		WHERE id = $1
	`

	var holdType any
	if bucket.HasMinimumHold {
		holdType = string(bucket.HoldType)
	}

	_, err = r.s.q.ExecContext(ctx, query,
		bucket.ID,
		bucket.Name,
		bucket.TargetValue,
		bucket.PriorityIndex,
		string(bucket.FilterMethod),
		bucket.FilterValue,
		bucket.HasMinimumHold,
		holdType,
		bucket.HoldValue,
		bucket.IsLocked,
		bucket.IsFull,
		bucket.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update bucket: %w", err)
	}
	return bucket, nil
}

func (r *bucketRepository) SetBalance(ctx context.Context, id uuid.UUID, newValue domain.Money) (*domain.Bucket, error) {
	query := `
		UPDATE buckets
		SET current_value = $2,
			is_full = ($2::numeric >= target_value),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bucketColumns

	bucket, err := scanBucket(r.s.q.QueryRowContext(ctx, query, id, newValue))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set bucket balance: %w", err)
	}
	return bucket, nil
}

// Reorder applies the batch inside one transaction: either every listed
// bucket's index is updated or none are.
func (r *bucketRepository) Reorder(ctx context.Context, assignments []domain.IndexAssignment) ([]*domain.Bucket, error) {
	updated := make([]*domain.Bucket, 0, len(assignments))

	err := r.s.withTx(ctx, func(q queryer) error {
		query := `
			UPDATE buckets
			SET priority_index = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + bucketColumns

		for _, a := range assignments {
			bucket, err := scanBucket(q.QueryRowContext(ctx, query, a.BucketID, a.NewIndex))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("bucket %s: %w", a.BucketID, domain.ErrNotFound)
				}
				return fmt.Errorf("failed to reorder bucket %s: %w", a.BucketID, err)
			}
			updated = append(updated, bucket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *bucketRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.s.q.ExecContext(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete bucket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete bucket: %w", err)
	}
	return affected > 0, nil
}
