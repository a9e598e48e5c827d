/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON pricing-schedule documents into validated fee and risk
  factor configuration aggregates. This enables schedule management without
  code changes - underwriting can define fee schedules in JSON, and the
  factory creates the proper aggregates through the domain constructors, so
  every invariant still applies.

JSON SCHEMA:
  {
    "fees": [
      {
        "code": "ADMIN",
        "name": "Administration fee",
        "type": "ADMINISTRATIVE",
        "percentage": "0.02",
        "effective_from": "2025-01-01",
        "effective_to": null
      }
    ],
    "risk_factors": [
      {"level": "CITY", "reference_id": "<uuid>", "percentage": "0.10"},
      {"level": "BUILDING_TYPE", "building_type": "WAREHOUSE", "percentage": "0.05"}
    ]
  }

USAGE:
  factory := NewScheduleFactory()
  schedule, err := factory.ParseSchedule(jsonStr)
  for _, fee := range schedule.Fees { store.SaveFee(ctx, fee) }

SEE ALSO:
  - domain/fee.go, domain/riskfactor.go: The aggregates being built
  - api/handlers.go: ImportSchedule endpoint
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aegis/policy-engine/domain"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a pricing schedule.
type ScheduleJSON struct {
	Fees        []FeeJSON        `json:"fees,omitempty"`
	RiskFactors []RiskFactorJSON `json:"risk_factors,omitempty"`
}

// FeeJSON represents one fee configuration.
type FeeJSON struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Percentage    string  `json:"percentage"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// RiskFactorJSON represents one risk factor configuration.
type RiskFactorJSON struct {
	Level        string  `json:"level"`
	ReferenceID  *string `json:"reference_id,omitempty"`
	BuildingType *string `json:"building_type,omitempty"`
	Percentage   string  `json:"percentage"`
}

// Schedule bundles the validated aggregates parsed from one document.
type Schedule struct {
	Fees        []*domain.FeeConfiguration
	RiskFactors []*domain.RiskFactorConfiguration
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

type ScheduleFactory struct{}

func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{}
}

// ParseSchedule converts a JSON document into validated aggregates. The
// whole document is rejected on the first invalid entry.
func (sf *ScheduleFactory) ParseSchedule(jsonStr string) (*Schedule, error) {
	var doc ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid schedule JSON: %w", err)
	}

	schedule := &Schedule{}
	for i, f := range doc.Fees {
		fee, err := sf.buildFee(f)
		if err != nil {
			return nil, fmt.Errorf("fees[%d]: %w", i, err)
		}
		schedule.Fees = append(schedule.Fees, fee)
	}
	for i, rf := range doc.RiskFactors {
		factor, err := sf.buildRiskFactor(rf)
		if err != nil {
			return nil, fmt.Errorf("risk_factors[%d]: %w", i, err)
		}
		schedule.RiskFactors = append(schedule.RiskFactors, factor)
	}
	return schedule, nil
}

func (sf *ScheduleFactory) buildFee(f FeeJSON) (*domain.FeeConfiguration, error) {
	pctDec, err := decimal.NewFromString(f.Percentage)
	if err != nil {
		return nil, fmt.Errorf("malformed percentage %q", f.Percentage)
	}
	pct, err := domain.NewFeePercent(pctDec)
	if err != nil {
		return nil, err
	}

	from, err := domain.ParseDate(f.EffectiveFrom)
	if err != nil {
		return nil, fmt.Errorf("malformed effective_from %q", f.EffectiveFrom)
	}
	var to *domain.Date
	if f.EffectiveTo != nil {
		t, err := domain.ParseDate(*f.EffectiveTo)
		if err != nil {
			return nil, fmt.Errorf("malformed effective_to %q", *f.EffectiveTo)
		}
		to = &t
	}
	period, err := domain.NewEffectivePeriod(from, to)
	if err != nil {
		return nil, err
	}

	return domain.NewFeeConfiguration(domain.FeeDetails{
		Code:            f.Code,
		Name:            f.Name,
		Type:            domain.FeeType(f.Type),
		Percentage:      pct,
		EffectivePeriod: period,
	})
}

func (sf *ScheduleFactory) buildRiskFactor(rf RiskFactorJSON) (*domain.RiskFactorConfiguration, error) {
	pctDec, err := decimal.NewFromString(rf.Percentage)
	if err != nil {
		return nil, fmt.Errorf("malformed percentage %q", rf.Percentage)
	}
	pct, err := domain.NewRiskPercent(pctDec)
	if err != nil {
		return nil, err
	}

	target := domain.RiskTarget{Level: domain.RiskLevel(rf.Level)}
	if rf.ReferenceID != nil {
		ref, err := uuid.Parse(*rf.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("malformed reference_id %q", *rf.ReferenceID)
		}
		target.ReferenceID = &ref
	}
	if rf.BuildingType != nil {
		bt := domain.BuildingType(*rf.BuildingType)
		target.BuildingType = &bt
	}

	return domain.NewRiskFactorConfiguration(target, pct)
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardScheduleJSON is a starter schedule: a 2% administration fee, a
// 1% regulatory levy, and the two hazard-gated risk-adjustment fees.
// Useful for seeding fresh environments and demos.
func StandardScheduleJSON(effectiveFrom string) string {
	doc := ScheduleJSON{
		Fees: []FeeJSON{
			{Code: "ADMIN", Name: "Administration fee", Type: string(domain.FeeTypeAdministrative),
				Percentage: "0.02", EffectiveFrom: effectiveFrom},
			{Code: "REG_LEVY", Name: "Regulatory levy", Type: string(domain.FeeTypeRegulatory),
				Percentage: "0.01", EffectiveFrom: effectiveFrom},
			{Code: "FLOOD_ZONE", Name: "Flood zone surcharge", Type: string(domain.FeeTypeRiskAdjustment),
				Percentage: "0.03", EffectiveFrom: effectiveFrom},
			{Code: "EARTHQUAKE_ZONE", Name: "Earthquake zone surcharge", Type: string(domain.FeeTypeRiskAdjustment),
				Percentage: "0.04", EffectiveFrom: effectiveFrom},
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
