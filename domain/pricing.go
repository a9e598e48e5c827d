/*
pricing.go - Premium calculation engine

PURPOSE:
  Combines the broker commission, matching risk factors, and valid fee
  configurations into a final premium with a full audit trail. The engine is
  pure: it mutates nothing, and identical inputs always produce an identical
  final premium and an identical ordered adjustment list.

ALGORITHM (the contribution order is part of the contract - the trail is
surfaced for audit):
  1. Broker commission, if present
  2. Risk factors matching the building, sorted by (level, id)
  3. Base fees valid on the policy start date, sorted by (type, code)
  4. Risk-adjustment fees valid on the start date, sorted by code, each
     gated on the building's risk indicators via the code predicate table;
     skipped entirely when indicators are absent
  5. finalPremium = half-up(base × (1 + sum of contributed percentages), 2)

  A non-positive final premium is corrupt configuration data, not user
  input; it aborts the whole calculation with ErrPremiumInvariant.

DATA ACCESS:
  FeeSource and RiskFactorSource are read-only collaborators supplied by the
  surrounding system. Their errors propagate unchanged - the calculation
  either fully completes or fully fails.

SEE ALSO:
  - fee.go / riskfactor.go: The rule aggregates being combined
  - policy.go: Activate consumes the recalculated final premium
*/
package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ADJUSTMENTS - Audit trail entries
// =============================================================================

type AdjustmentSource string

const (
	SourceBrokerCommission  AdjustmentSource = "BROKER_COMMISSION"
	SourceRiskFactor        AdjustmentSource = "RISK_FACTOR"
	SourceFeeConfiguration  AdjustmentSource = "FEE_CONFIGURATION"
	SourceFeeRiskAdjustment AdjustmentSource = "FEE_RISK_ADJUSTMENT"
)

// Adjustment is one audit-trail entry contributing to the final premium.
type Adjustment struct {
	SourceType AdjustmentSource
	SourceID   string
	Name       string
	Percentage decimal.Decimal
}

// =============================================================================
// PRICING CONTEXT - Everything needed to resolve applicable rules
// =============================================================================

// RiskIndicators flag the hazards a building is exposed to. Absence of the
// whole struct means the indicators are unknown and risk-adjustment fees are
// not evaluated at all.
type RiskIndicators struct {
	FloodZone      bool
	EarthquakeZone bool
}

// BuildingContext locates the building being priced.
type BuildingContext struct {
	CountryID      uuid.UUID
	CountyID       uuid.UUID
	CityID         uuid.UUID
	BuildingType   BuildingType
	RiskIndicators *RiskIndicators
}

// PricingContext carries the broker and building inputs of a calculation.
// The broker commission is pre-resolved by the caller.
type PricingContext struct {
	BrokerID         uuid.UUID
	BrokerCommission *decimal.Decimal
	Building         BuildingContext
}

// =============================================================================
// RISK INDICATOR PREDICATES - fee code to building indicator
// =============================================================================
// Data-driven so new risk-adjustment fee codes can be added without touching
// the calculator's control flow.

var riskIndicatorPredicates = map[string]func(RiskIndicators) bool{
	"FLOOD_ZONE":      func(ri RiskIndicators) bool { return ri.FloodZone },
	"EARTHQUAKE_ZONE": func(ri RiskIndicators) bool { return ri.EarthquakeZone },
}

// =============================================================================
// READ COLLABORATORS
// =============================================================================

// FeeSource supplies fee configurations valid on a date, split by whether
// the type is RISK_ADJUSTMENT.
type FeeSource interface {
	// ValidBaseFees returns configurations valid on the date whose type is
	// NOT RISK_ADJUSTMENT.
	ValidBaseFees(ctx context.Context, on Date) ([]*FeeConfiguration, error)

	// ValidRiskAdjustmentFees returns configurations valid on the date whose
	// type IS RISK_ADJUSTMENT.
	ValidRiskAdjustmentFees(ctx context.Context, on Date) ([]*FeeConfiguration, error)
}

// RiskFactorSource supplies active risk factor configurations matching any
// of the building's geography ids or its building type.
type RiskFactorSource interface {
	ActiveMatching(ctx context.Context, countryID, countyID, cityID uuid.UUID, buildingType BuildingType) ([]*RiskFactorConfiguration, error)
}

// =============================================================================
// CALCULATOR
// =============================================================================

// CalculationResult is the outcome of a premium calculation.
type CalculationResult struct {
	FinalPremium    Amount
	TotalPercentage decimal.Decimal
	Adjustments     []Adjustment
}

// Calculator computes final premiums. Stateless; safe for concurrent use as
// long as its sources are.
type Calculator struct {
	Fees        FeeSource
	RiskFactors RiskFactorSource
}

func NewCalculator(fees FeeSource, riskFactors RiskFactorSource) *Calculator {
	return &Calculator{Fees: fees, RiskFactors: riskFactors}
}

// Calculate produces the final premium and the ordered adjustment trail for
// a base premium priced in the given context as of the policy start date.
// No matching rules is a valid outcome: the final premium equals the base.
func (c *Calculator) Calculate(ctx context.Context, base Amount, pctx PricingContext, startDate Date) (*CalculationResult, error) {
	var adjustments []Adjustment

	// 1. Broker commission
	if pctx.BrokerCommission != nil {
		adjustments = append(adjustments, Adjustment{
			SourceType: SourceBrokerCommission,
			SourceID:   pctx.BrokerID.String(),
			Name:       "BROKER_COMMISSION",
			Percentage: *pctx.BrokerCommission,
		})
	}

	// 2. Risk factors matching the building, by (level, id)
	factors, err := c.RiskFactors.ActiveMatching(ctx,
		pctx.Building.CountryID, pctx.Building.CountyID, pctx.Building.CityID, pctx.Building.BuildingType)
	if err != nil {
		return nil, fmt.Errorf("loading risk factors: %w", err)
	}
	sort.SliceStable(factors, func(i, j int) bool {
		li, lj := factors[i].Target().Level.Order(), factors[j].Target().Level.Order()
		if li != lj {
			return li < lj
		}
		return idString(factors[i].ID()) < idString(factors[j].ID())
	})
	for _, rf := range factors {
		adjustments = append(adjustments, Adjustment{
			SourceType: SourceRiskFactor,
			SourceID:   idString(rf.ID()),
			Name:       rf.Target().String(),
			Percentage: rf.Percentage().Decimal(),
		})
	}

	// 3. Base fees valid on the start date, by (type, code)
	baseFees, err := c.Fees.ValidBaseFees(ctx, startDate)
	if err != nil {
		return nil, fmt.Errorf("loading fee configurations: %w", err)
	}
	sort.SliceStable(baseFees, func(i, j int) bool {
		di, dj := baseFees[i].Details(), baseFees[j].Details()
		if di.Type != dj.Type {
			return di.Type < dj.Type
		}
		return di.Code < dj.Code
	})
	for _, fee := range baseFees {
		adjustments = append(adjustments, Adjustment{
			SourceType: SourceFeeConfiguration,
			SourceID:   idString(fee.ID()),
			Name:       fee.Details().Code,
			Percentage: fee.Details().Percentage.Decimal(),
		})
	}

	// 4. Risk-adjustment fees, by code, gated on the building's indicators.
	// Skipped entirely when the indicators are unknown.
	if pctx.Building.RiskIndicators != nil {
		riskFees, err := c.Fees.ValidRiskAdjustmentFees(ctx, startDate)
		if err != nil {
			return nil, fmt.Errorf("loading risk adjustment fees: %w", err)
		}
		sort.SliceStable(riskFees, func(i, j int) bool {
			return riskFees[i].Details().Code < riskFees[j].Details().Code
		})
		for _, fee := range riskFees {
			applies, ok := riskIndicatorPredicates[fee.Details().Code]
			if !ok || !applies(*pctx.Building.RiskIndicators) {
				continue
			}
			adjustments = append(adjustments, Adjustment{
				SourceType: SourceFeeRiskAdjustment,
				SourceID:   idString(fee.ID()),
				Name:       fee.Details().Code,
				Percentage: fee.Details().Percentage.Decimal(),
			})
		}
	}

	// 5. Sum and apply
	total := decimal.Zero
	for _, adj := range adjustments {
		total = total.Add(adj.Percentage)
	}

	final, err := base.ApplyTotalPercentage(total)
	if err != nil {
		// Post-condition: the final premium must be strictly positive.
		return nil, fmt.Errorf("final premium %s × (1 + %s): %w",
			base, total, ErrPremiumInvariant)
	}

	return &CalculationResult{
		FinalPremium:    final,
		TotalPercentage: total,
		Adjustments:     adjustments,
	}, nil
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
