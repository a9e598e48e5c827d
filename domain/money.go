/*
money.go - Monetary value object for premium amounts

PURPOSE:
  Amount wraps a decimal premium value with the validation rules every
  premium in the system must satisfy: strictly positive, at most 13 integer
  digits, and stored rounded half-up to exactly 2 fraction digits.

DESIGN PRINCIPLES:
  1. Construction is the only way to obtain an Amount; a zero-value Amount
     is detectable via IsZero and never produced by a constructor.
  2. Precision: shopspring/decimal throughout, never float64.
  3. Rounding: half-up (away from zero on the .5 boundary), applied once at
     construction. Arithmetic helpers re-validate through NewAmount.

SEE ALSO:
  - percent.go: Percentage value objects with the same construction rules
  - pricing.go: Final-premium computation using Amount
*/
package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Premium money
// =============================================================================

const (
	amountScale        = 2
	amountMaxIntDigits = 13
)

// Amount is a validated premium amount: positive, ≤13 integer digits,
// rounded half-up to 2 decimals.
type Amount struct {
	value decimal.Decimal
}

// NewAmount validates and rounds a raw decimal into an Amount.
func NewAmount(value decimal.Decimal) (Amount, error) {
	rounded := value.Round(amountScale)
	if !rounded.IsPositive() {
		return Amount{}, &ValidationError{
			Field:   "amount",
			Message: "premium amount must be strictly positive, got " + value.String(),
		}
	}
	if len(rounded.Truncate(0).Abs().String()) > amountMaxIntDigits {
		return Amount{}, &ValidationError{
			Field:   "amount",
			Message: "premium amount exceeds 13 integer digits: " + value.String(),
		}
	}
	return Amount{value: rounded}, nil
}

// NewAmountFromString parses and validates an Amount from its string form.
func NewAmountFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &ValidationError{Field: "amount", Message: "malformed amount: " + s}
	}
	return NewAmount(d)
}

// MustAmount panics on invalid input. Test and seed data only.
func MustAmount(s string) Amount {
	a, err := NewAmountFromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) IsZero() bool             { return a.value.IsZero() }
func (a Amount) Equal(b Amount) bool      { return a.value.Equal(b.value) }

// String renders with the fixed 2-digit scale (e.g. "1170.00").
func (a Amount) String() string { return a.value.StringFixed(amountScale) }

// ApplyTotalPercentage computes a × (1 + pct), rounded half-up to 2 decimals.
// A non-positive result fails Amount validation; the caller treats that as an
// invariant violation, not user input error.
func (a Amount) ApplyTotalPercentage(pct decimal.Decimal) (Amount, error) {
	return NewAmount(a.value.Mul(decimal.NewFromInt(1).Add(pct)))
}
