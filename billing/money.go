/*
money.go - Fixed-precision currency arithmetic

PURPOSE:

	Money is the single currency type used everywhere in the billing engine.
	It wraps decimal.Decimal so repeated arithmetic (week price times weeks,
	fee per day times days) never accumulates floating-point drift, and it
	rounds to 2 decimal places at every observable boundary (String, Float64,
	persistence).

DESIGN PRINCIPLES:
 1. Amounts are SIGNED: a positive customer balance is credit on file,
    a negative balance is money owed.
 2. No float arithmetic: floats only appear at construction and display.
 3. Constructors round to cents immediately; all intermediate math stays
    exact because multiplications are by integer counts (weeks, days).

USAGE:

	price := billing.NewMoney(300)           // 300.00
	cost := price.MulInt(2)                  // 600.00
	owed := cost.Sub(balance).FloorZero()    // never below zero

SEE ALSO:
  - calendar.go: The companion calendar-day primitive
  - types.go: Snapshot and result types built on Money
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Signed currency amount with cent precision
// =============================================================================

type Money struct {
	value decimal.Decimal
}

// NewMoney creates an amount from a float, rounded to cents.
func NewMoney(value float64) Money {
	return Money{value: decimal.NewFromFloat(value).Round(2)}
}

// NewMoneyFromInt creates a whole-unit amount.
func NewMoneyFromInt(value int) Money {
	return Money{value: decimal.NewFromInt(int64(value))}
}

// ParseMoney parses a decimal string like "123.45".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: d.Round(2)}, nil
}

// MustParseMoney parses a decimal string, returning zero on failure.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}
	}
	return m
}

func ZeroMoney() Money { return Money{value: decimal.Zero} }

// Arithmetic
func (m Money) Add(o Money) Money  { return Money{value: m.value.Add(o.value)} }
func (m Money) Sub(o Money) Money  { return Money{value: m.value.Sub(o.value)} }
func (m Money) Neg() Money         { return Money{value: m.value.Neg()} }
func (m Money) MulInt(n int) Money { return Money{value: m.value.Mul(decimal.NewFromInt(int64(n)))} }

// Comparison
func (m Money) IsNegative() bool            { return m.value.IsNegative() }
func (m Money) IsZero() bool                { return m.value.IsZero() }
func (m Money) IsPositive() bool            { return m.value.IsPositive() }
func (m Money) Equal(o Money) bool          { return m.value.Equal(o.value) }
func (m Money) GreaterThan(o Money) bool    { return m.value.GreaterThan(o.value) }
func (m Money) GreaterOrEqual(o Money) bool { return m.value.GreaterThanOrEqual(o.value) }
func (m Money) LessThan(o Money) bool       { return m.value.LessThan(o.value) }
func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}
func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// FloorZero clamps a negative amount to zero. Used where a credit may not
// push a charge below zero.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// WholeUnits returns how many times unit fits into m, truncated.
// Both amounts must be positive; returns 0 otherwise.
func (m Money) WholeUnits(unit Money) int {
	if unit.value.Sign() <= 0 || m.value.Sign() <= 0 {
		return 0
	}
	return int(m.value.Div(unit.value).IntPart())
}

// String formats with exactly two decimal places.
func (m Money) String() string { return m.value.StringFixed(2) }

// Float64 is the display/serialization escape hatch, rounded to cents first.
func (m Money) Float64() float64 {
	f, _ := m.value.Round(2).Float64()
	return f
}

// Decimal exposes the underlying value for persistence layers.
func (m Money) Decimal() decimal.Decimal { return m.value }
