package allocator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// Claim is one bucket's share of a deposit.
type Claim struct {
	Bucket *domain.Bucket
	Amount domain.Money
}

// Plan is the computed fan-out of a deposit: per-bucket claims in priority
// order plus the overflow routed to the money bucket.
type Plan struct {
	Claims   []Claim
	Overflow domain.Money
}

// ComputePlan walks the owner's buckets in priority order and computes each
// bucket's claim on the deposit.
// Logic:
//  1. Sort buckets by PriorityIndex (lower = first), creation order on ties
//  2. Skip locked and full buckets
//  3. flat_value claim  = min(filterValue, remaining, room)
//     percentage claim  = min(filterValue% of the original amount, remaining, room)
//     Percentage shares are rounded down to cents; claims are floored at zero
//  4. Whatever remains after one full pass becomes the overflow
//
// Safety: claims plus overflow always equal the deposit exactly (no penny
// lost); ComputePlan fails rather than return an unbalanced plan.
func ComputePlan(amount domain.Money, buckets []*domain.Bucket) (*Plan, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", domain.ErrInvalidAmount, amount)
	}

	// Copy before sorting to avoid mutating the caller's slice.
	ordered := make([]*domain.Bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PriorityIndex != ordered[j].PriorityIndex {
			return ordered[i].PriorityIndex < ordered[j].PriorityIndex
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	plan := &Plan{Claims: make([]Claim, 0, len(ordered))}
	remaining := amount

	for _, bucket := range ordered {
		if remaining.IsZero() {
			break
		}
		if bucket.IsLocked || bucket.IsFull || !bucket.HasRoom() {
			continue
		}

		var share domain.Money
		switch bucket.FilterMethod {
		case domain.FilterMethodFlatValue:
			share = bucket.FilterValue
		case domain.FilterMethodPercentage:
			share = amount.Percent(bucket.FilterValue)
		default:
			return nil, errors.New("bucket filter method must be flat_value or percentage")
		}

		claim := domain.MinMoney(share, remaining, bucket.Room())
		if !claim.IsPositive() {
			continue
		}

		plan.Claims = append(plan.Claims, Claim{Bucket: bucket, Amount: claim})
		remaining = remaining.Sub(claim)
	}

	plan.Overflow = remaining

	// Conservation check: claims + overflow must equal the deposit exactly.
	allocated := plan.Overflow
	for _, c := range plan.Claims {
		allocated = allocated.Add(c.Amount)
	}
	if !allocated.Equal(amount) {
		return nil, fmt.Errorf("allocation plan does not conserve the deposit: allocated %s of %s", allocated, amount)
	}

	return plan, nil
}
