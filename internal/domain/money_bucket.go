package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MoneyBucket is the owner's single overflow account. Deposit funds no
// bucket claims land here; redistributions move them back out into buckets
// with room. Exactly one exists per owner once created.
type MoneyBucket struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	CurrentValue Money

	// TotalRedistributed is the cumulative amount ever moved out to
	// buckets. Monotonically non-decreasing.
	TotalRedistributed   Money
	LastRedistributionAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the money bucket adheres to domain rules.
func (mb *MoneyBucket) Validate() error {
	if mb.CurrentValue.IsNegative() {
		return errors.New("money bucket current value cannot be negative")
	}
	if mb.TotalRedistributed.IsNegative() {
		return errors.New("money bucket total redistributed cannot be negative")
	}
	return nil
}
