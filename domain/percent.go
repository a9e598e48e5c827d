package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PERCENTAGES - Bounded, fixed-scale fractional multipliers
// =============================================================================
// Percentages are fractional multipliers: 0.05 means 5%. Both kinds are
// stored rounded half-up to 4 fraction digits at construction.

const percentScale = 4

var (
	feePercentMin = decimal.Zero
	feePercentMax = decimal.New(50, -2) // 0.50

	riskPercentMin = decimal.New(-50, -2) // -0.50
	riskPercentMax = decimal.New(100, -2) // 1.00
)

// FeePercent is a fee-configuration percentage in [0, 0.50].
type FeePercent struct {
	value decimal.Decimal
}

// NewFeePercent validates and rounds a fee percentage.
func NewFeePercent(value decimal.Decimal) (FeePercent, error) {
	rounded := value.Round(percentScale)
	if rounded.LessThan(feePercentMin) || rounded.GreaterThan(feePercentMax) {
		return FeePercent{}, &ValidationError{
			Field:   "percentage",
			Message: "fee percentage must be between 0 and 0.50, got " + value.String(),
		}
	}
	return FeePercent{value: rounded}, nil
}

// MustFeePercent panics on invalid input. Test and seed data only.
func MustFeePercent(s string) FeePercent {
	p, err := NewFeePercent(mustDecimal(s))
	if err != nil {
		panic(err)
	}
	return p
}

func (p FeePercent) Decimal() decimal.Decimal { return p.value }
func (p FeePercent) String() string           { return p.value.StringFixed(percentScale) }

// RiskPercent is a risk-adjustment percentage in [-0.50, 1.00]. Negative
// values are discounts.
type RiskPercent struct {
	value decimal.Decimal
}

// NewRiskPercent validates and rounds a risk-adjustment percentage.
func NewRiskPercent(value decimal.Decimal) (RiskPercent, error) {
	rounded := value.Round(percentScale)
	if rounded.LessThan(riskPercentMin) || rounded.GreaterThan(riskPercentMax) {
		return RiskPercent{}, &ValidationError{
			Field:   "percentage",
			Message: "risk adjustment percentage must be between -0.50 and 1.00, got " + value.String(),
		}
	}
	return RiskPercent{value: rounded}, nil
}

// MustRiskPercent panics on invalid input. Test and seed data only.
func MustRiskPercent(s string) RiskPercent {
	p, err := NewRiskPercent(mustDecimal(s))
	if err != nil {
		panic(err)
	}
	return p
}

func (p RiskPercent) Decimal() decimal.Decimal { return p.value }
func (p RiskPercent) String() string           { return p.value.StringFixed(percentScale) }

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
