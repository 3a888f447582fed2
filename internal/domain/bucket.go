package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FilterMethod determines how a bucket claims a share of an incoming deposit.
type FilterMethod string

const (
	FilterMethodFlatValue  FilterMethod = "flat_value"
	FilterMethodPercentage FilterMethod = "percentage"
)

// HoldType determines how the minimum-hold floor of a bucket is computed.
type HoldType string

const (
	HoldTypeFlatValue  HoldType = "flat_value"
	HoldTypePercentage HoldType = "percentage"
)

// Bucket represents one envelope: a named fill target with a priority
// position in the owner's allocation order.
type Bucket struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Name          string
	TargetValue   Money
	CurrentValue  Money
	PriorityIndex int

	// Filter configuration: how much of an incoming deposit this bucket
	// claims during allocation.
	FilterMethod FilterMethod
	FilterValue  Money

	// Hold configuration: the portion of the bucket's own balance that
	// outgoing transfers may not draw down. Holds never reduce incoming
	// deposit claims.
	HasMinimumHold bool
	HoldType       HoldType
	HoldValue      Money

	IsLocked bool
	// IsFull is derived: true iff CurrentValue >= TargetValue. It is
	// recomputed on every balance or target change, never set directly.
	IsFull bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the bucket adheres to domain rules.
func (b *Bucket) Validate() error {
	if b.Name == "" {
		return errors.New("bucket name cannot be empty")
	}
	if b.TargetValue.IsNegative() {
		return errors.New("bucket target value cannot be negative")
	}
	if b.CurrentValue.IsNegative() {
		return errors.New("bucket current value cannot be negative")
	}
	if b.PriorityIndex < 0 {
		return errors.New("bucket priority index cannot be negative")
	}

	switch b.FilterMethod {
	case FilterMethodFlatValue:
		if b.FilterValue.IsNegative() {
			return errors.New("flat_value filter value cannot be negative")
		}
	case FilterMethodPercentage:
		if b.FilterValue.IsNegative() || b.FilterValue.GreaterThan(NewMoneyFromInt(100)) {
			return errors.New("percentage filter value must be between 0 and 100")
		}
	default:
		return errors.New("filter method must be flat_value or percentage")
	}

	if b.HasMinimumHold {
		switch b.HoldType {
		case HoldTypeFlatValue:
			if b.HoldValue.IsNegative() {
				return errors.New("flat_value hold value cannot be negative")
			}
		case HoldTypePercentage:
			if b.HoldValue.IsNegative() || b.HoldValue.GreaterThan(NewMoneyFromInt(100)) {
				return errors.New("percentage hold value must be between 0 and 100")
			}
		default:
			return errors.New("hold type must be flat_value or percentage when a minimum hold is set")
		}
	}

	return nil
}

// RecomputeFull re-derives the full flag from the current and target values.
// Must be called after every mutation of either.
func (b *Bucket) RecomputeFull() {
	b.IsFull = b.CurrentValue.Cmp(b.TargetValue) >= 0
}

// Room returns the capacity left before the bucket reaches its target,
// floored at zero.
func (b *Bucket) Room() Money {
	room := b.TargetValue.Sub(b.CurrentValue)
	if room.IsNegative() {
		return ZeroMoney()
	}
	return room
}

// HasRoom reports whether the bucket can still receive allocated funds.
func (b *Bucket) HasRoom() bool {
	return b.Room().IsPositive()
}

// HoldFloor returns the balance floor outgoing transfers may not breach.
// Percentage holds are computed against the balance at the time of the
// check.
func (b *Bucket) HoldFloor() Money {
	if !b.HasMinimumHold {
		return ZeroMoney()
	}
	if b.HoldType == HoldTypePercentage {
		return b.CurrentValue.Percent(b.HoldValue)
	}
	return b.HoldValue
}

// Available returns the portion of the balance that outgoing transfers may
// draw on, floored at zero.
func (b *Bucket) Available() Money {
	avail := b.CurrentValue.Sub(b.HoldFloor())
	if avail.IsNegative() {
		return ZeroMoney()
	}
	return avail
}
