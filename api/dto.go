/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface. These decouple the domain model
  from the wire contract: domain value objects render as fixed-scale
  strings (amounts "1170.00", percentages "0.0500"), dates as ISO days.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run the
  shared validator before touching the domain. Domain constructors remain
  the source of truth - the tags only reject obviously malformed payloads
  early.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/aegis/policy-engine/domain"
	"github.com/aegis/policy-engine/store/sqlite"
)

// =============================================================================
// POLICY REQUESTS / RESPONSES
// =============================================================================

// CreatePolicyRequest creates a draft policy. PolicyNumber is generated
// when omitted.
type CreatePolicyRequest struct {
	PolicyNumber string `json:"policy_number,omitempty"`
	ClientID     string `json:"client_id" validate:"required,uuid"`
	BuildingID   string `json:"building_id" validate:"required,uuid"`
	BrokerID     string `json:"broker_id" validate:"required,uuid"`
	CurrencyID   string `json:"currency_id" validate:"required,uuid"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"required,datetime=2006-01-02"`
	BasePremium  string `json:"base_premium" validate:"required"`
}

// CancelPolicyRequest carries the cancellation reason.
type CancelPolicyRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CancellationDTO is present only on cancelled policies.
type CancellationDTO struct {
	CancelledAt string `json:"cancelled_at"`
	Reason      string `json:"reason"`
}

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	ID           string           `json:"id"`
	PolicyNumber string           `json:"policy_number"`
	ClientID     string           `json:"client_id"`
	BuildingID   string           `json:"building_id"`
	BrokerID     string           `json:"broker_id"`
	CurrencyID   string           `json:"currency_id"`
	Status       string           `json:"status"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	BasePremium  string           `json:"base_premium"`
	FinalPremium string           `json:"final_premium"`
	Cancellation *CancellationDTO `json:"cancellation,omitempty"`
	Version      int              `json:"version"`
}

// AdjustmentDTO is one audit-trail entry of a premium calculation.
type AdjustmentDTO struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Name       string `json:"name"`
	Percentage string `json:"percentage"`
}

// QuoteDTO is the outcome of a premium calculation, with the ordered
// adjustment trail.
type QuoteDTO struct {
	BasePremium     string          `json:"base_premium"`
	FinalPremium    string          `json:"final_premium"`
	TotalPercentage string          `json:"total_percentage"`
	Adjustments     []AdjustmentDTO `json:"adjustments"`
}

// ActivatePolicyResponse returns the activated policy together with the
// calculation that produced its final premium.
type ActivatePolicyResponse struct {
	Policy PolicyDTO `json:"policy"`
	Quote  QuoteDTO  `json:"quote"`
}

// =============================================================================
// FEE CONFIGURATION REQUESTS / RESPONSES
// =============================================================================

// CreateFeeRequest creates an active fee configuration.
type CreateFeeRequest struct {
	Code          string  `json:"code" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Percentage    string  `json:"percentage" validate:"required"`
	EffectiveFrom string  `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   *string `json:"effective_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateFeeDetailsRequest replaces a fee's descriptive fields.
type UpdateFeeDetailsRequest struct {
	Code          string  `json:"code" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	EffectiveFrom string  `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   *string `json:"effective_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdatePercentageRequest replaces a configuration's percentage.
type UpdatePercentageRequest struct {
	Percentage string `json:"percentage" validate:"required"`
}

// FeeDTO represents a fee configuration in API responses.
type FeeDTO struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Percentage    string  `json:"percentage"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
	Active        bool    `json:"active"`
}

// =============================================================================
// RISK FACTOR REQUESTS / RESPONSES
// =============================================================================

// CreateRiskFactorRequest creates an active risk factor configuration.
// Exactly one of ReferenceID / BuildingType must be set, per the level.
type CreateRiskFactorRequest struct {
	Level        string  `json:"level" validate:"required"`
	ReferenceID  *string `json:"reference_id,omitempty" validate:"omitempty,uuid"`
	BuildingType *string `json:"building_type,omitempty"`
	Percentage   string  `json:"percentage" validate:"required"`
}

// RiskFactorDTO represents a risk factor configuration in API responses.
type RiskFactorDTO struct {
	ID           string  `json:"id"`
	Level        string  `json:"level"`
	ReferenceID  *string `json:"reference_id,omitempty"`
	BuildingType *string `json:"building_type,omitempty"`
	Percentage   string  `json:"percentage"`
	Active       bool    `json:"active"`
}

// =============================================================================
// REFERENCE DATA REQUESTS
// =============================================================================

// CreateBrokerRequest registers a broker with an optional commission.
type CreateBrokerRequest struct {
	Name       string  `json:"name" validate:"required"`
	Commission *string `json:"commission,omitempty"`
}

// CreateBuildingRequest registers a building with its geography and risk
// indicators.
type CreateBuildingRequest struct {
	Name           string `json:"name" validate:"required"`
	CountryID      string `json:"country_id" validate:"required,uuid"`
	CountyID       string `json:"county_id" validate:"required,uuid"`
	CityID         string `json:"city_id" validate:"required,uuid"`
	BuildingType   string `json:"building_type" validate:"required"`
	FloodZone      bool   `json:"flood_zone"`
	EarthquakeZone bool   `json:"earthquake_zone"`
}

// =============================================================================
// ADMIN RESPONSES
// =============================================================================

// SweepRunDTO is one recorded execution of the expiration sweep.
type SweepRunDTO struct {
	ID          string  `json:"id"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Status      string  `json:"status"`
	Expired     int     `json:"expired"`
	Skipped     int     `json:"skipped"`
	Failed      int     `json:"failed"`
	Error       string  `json:"error,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toPolicyDTO(p *domain.Policy) PolicyDTO {
	refs := p.References()
	prem := p.PremiumDetails()
	dto := PolicyDTO{
		PolicyNumber: p.PolicyNumber(),
		ClientID:     refs.ClientID.String(),
		BuildingID:   refs.BuildingID.String(),
		BrokerID:     refs.BrokerID.String(),
		CurrencyID:   refs.CurrencyID.String(),
		Status:       string(p.Status()),
		StartDate:    p.Period().Start().String(),
		EndDate:      p.Period().End().String(),
		BasePremium:  prem.Base.String(),
		FinalPremium: prem.Final.String(),
		Version:      p.Version(),
	}
	if id := p.ID(); id != nil {
		dto.ID = id.String()
	}
	if c := p.Cancellation(); c != nil {
		dto.Cancellation = &CancellationDTO{
			CancelledAt: c.CancelledAt.String(),
			Reason:      c.Reason,
		}
	}
	return dto
}

func toQuoteDTO(base domain.Amount, result *domain.CalculationResult) QuoteDTO {
	adjustments := make([]AdjustmentDTO, len(result.Adjustments))
	for i, adj := range result.Adjustments {
		adjustments[i] = AdjustmentDTO{
			SourceType: string(adj.SourceType),
			SourceID:   adj.SourceID,
			Name:       adj.Name,
			Percentage: adj.Percentage.String(),
		}
	}
	return QuoteDTO{
		BasePremium:     base.String(),
		FinalPremium:    result.FinalPremium.String(),
		TotalPercentage: result.TotalPercentage.String(),
		Adjustments:     adjustments,
	}
}

func toFeeDTO(f *domain.FeeConfiguration) FeeDTO {
	d := f.Details()
	dto := FeeDTO{
		Code:          d.Code,
		Name:          d.Name,
		Type:          string(d.Type),
		Percentage:    d.Percentage.String(),
		EffectiveFrom: d.EffectivePeriod.From().String(),
		Active:        f.IsActive(),
	}
	if id := f.ID(); id != nil {
		dto.ID = id.String()
	}
	if to := d.EffectivePeriod.To(); to != nil {
		s := to.String()
		dto.EffectiveTo = &s
	}
	return dto
}

func toRiskFactorDTO(r *domain.RiskFactorConfiguration) RiskFactorDTO {
	t := r.Target()
	dto := RiskFactorDTO{
		Level:      string(t.Level),
		Percentage: r.Percentage().String(),
		Active:     r.IsActive(),
	}
	if id := r.ID(); id != nil {
		dto.ID = id.String()
	}
	if t.ReferenceID != nil {
		s := t.ReferenceID.String()
		dto.ReferenceID = &s
	}
	if t.BuildingType != nil {
		s := string(*t.BuildingType)
		dto.BuildingType = &s
	}
	return dto
}

func toSweepRunDTO(run sqlite.SweepRun) SweepRunDTO {
	dto := SweepRunDTO{
		ID:        run.ID,
		StartedAt: run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		Status:    run.Status,
		Expired:   run.Expired,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
		dto.CompletedAt = &s
	}
	return dto
}
