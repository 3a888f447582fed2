package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits carried by every Money
// value (currency minor units).
const MoneyScale = 2

// Money is a fixed-point decimal amount with two fractional digits.
// All balances, deltas and filter values in the system are Money; binary
// floating point is never used for storage or comparison.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money {
	return Money{d: decimal.Zero}
}

// NewMoneyFromString parses a canonical decimal string ("123.45").
// Parsing is exact and round-trips through String.
func NewMoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustMoney parses a decimal string and panics on failure. Test helper.
func MustMoney(s string) Money {
	m, err := NewMoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromInt returns a whole-unit amount.
func NewMoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other. The result may be negative; use SubChecked for
// balances that must stay non-negative.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// SubChecked returns m - other, failing with ErrNegativeResult if the
// subtraction would push a non-negative quantity below zero.
func (m Money) SubChecked(other Money) (Money, error) {
	r := m.d.Sub(other.d)
	if r.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m, other)
	}
	return Money{d: r}, nil
}

// Percent returns pct% of m, rounded down to cents so the caller can never
// allocate more than the rule allows.
func (m Money) Percent(pct Money) Money {
	return Money{d: m.d.Mul(pct.d).Div(decimal.NewFromInt(100)).RoundDown(MoneyScale)}
}

// Cmp compares m to other: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal reports whether m and other represent the same amount.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.d.GreaterThan(other.d)
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports m < 0.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// MinMoney returns the smaller of the given amounts.
func MinMoney(a Money, rest ...Money) Money {
	min := a
	for _, m := range rest {
		if m.LessThan(min) {
			min = m
		}
	}
	return min
}

// String renders the canonical fixed two-decimal form ("50.00").
func (m Money) String() string {
	return m.d.StringFixed(MoneyScale)
}

// Scan implements sql.Scanner so DECIMAL columns scan directly into Money.
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.d = decimal.Zero
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("failed to scan money: %w", err)
		}
		m.d = d
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("failed to scan money: %w", err)
		}
		m.d = d
		return nil
	case int64:
		m.d = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

// Value implements driver.Valuer; amounts are stored as decimal strings.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
