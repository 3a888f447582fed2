package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBucket() *Bucket {
	return &Bucket{
		Name:         "Emergency Fund",
		TargetValue:  NewMoneyFromInt(500),
		CurrentValue: NewMoneyFromInt(100),
		FilterMethod: FilterMethodFlatValue,
		FilterValue:  NewMoneyFromInt(50),
	}
}

func TestBucket_Validate(t *testing.T) {
	assert.NoError(t, validBucket().Validate())

	b := validBucket()
	b.Name = ""
	assert.Error(t, b.Validate())

	b = validBucket()
	b.TargetValue = NewMoneyFromInt(-1)
	assert.Error(t, b.Validate())

	b = validBucket()
	b.PriorityIndex = -1
	assert.Error(t, b.Validate())

	b = validBucket()
	b.FilterMethod = "weekly"
	assert.Error(t, b.Validate())

	b = validBucket()
	b.FilterMethod = FilterMethodPercentage
	b.FilterValue = MustMoney("100.01")
	assert.Error(t, b.Validate())

	b = validBucket()
	b.FilterMethod = FilterMethodPercentage
	b.FilterValue = NewMoneyFromInt(100)
	assert.NoError(t, b.Validate())

	// Hold config is only checked when a minimum hold is set.
	b = validBucket()
	b.HoldType = "bogus"
	assert.NoError(t, b.Validate())

	b = validBucket()
	b.HasMinimumHold = true
	b.HoldType = "bogus"
	assert.Error(t, b.Validate())

	b = validBucket()
	b.HasMinimumHold = true
	b.HoldType = HoldTypePercentage
	b.HoldValue = MustMoney("101.00")
	assert.Error(t, b.Validate())
}

func TestBucket_RecomputeFull(t *testing.T) {
	b := validBucket()
	b.RecomputeFull()
	assert.False(t, b.IsFull)

	b.CurrentValue = b.TargetValue
	b.RecomputeFull()
	assert.True(t, b.IsFull)

	// Overfilled stays full.
	b.CurrentValue = NewMoneyFromInt(600)
	b.RecomputeFull()
	assert.True(t, b.IsFull)
}

func TestBucket_Room(t *testing.T) {
	b := validBucket()
	assert.Equal(t, "400.00", b.Room().String())
	assert.True(t, b.HasRoom())

	b.CurrentValue = NewMoneyFromInt(600)
	assert.True(t, b.Room().IsZero())
	assert.False(t, b.HasRoom())
}

func TestBucket_HoldFloorAndAvailable(t *testing.T) {
	// No hold: everything is available.
	b := validBucket()
	assert.True(t, b.HoldFloor().IsZero())
	assert.Equal(t, "100.00", b.Available().String())

	// Flat hold of 30 leaves 70 available.
	b.HasMinimumHold = true
	b.HoldType = HoldTypeFlatValue
	b.HoldValue = NewMoneyFromInt(30)
	assert.Equal(t, "30.00", b.HoldFloor().String())
	assert.Equal(t, "70.00", b.Available().String())

	// Percentage hold is computed against the current balance.
	b.HoldType = HoldTypePercentage
	b.HoldValue = NewMoneyFromInt(25)
	assert.Equal(t, "25.00", b.HoldFloor().String())
	assert.Equal(t, "75.00", b.Available().String())

	// Flat hold above the balance floors available at zero.
	b.HoldType = HoldTypeFlatValue
	b.HoldValue = NewMoneyFromInt(150)
	assert.True(t, b.Available().IsZero())
}
