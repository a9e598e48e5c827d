/*
fee.go - Fee configuration aggregate

PURPOSE:
  A FeeConfiguration is a time-bounded, named percentage rule. Ordinary fee
  types (administrative, regulatory, service) apply to every policy priced
  while the rule is valid. RISK_ADJUSTMENT fees apply only when the policy's
  building carries the matching risk indicator (see pricing.go for the
  code-to-indicator mapping).

VALIDITY:
  IsValidOn(date) = active AND effectivePeriod.Includes(date)

  Deactivating a configuration with an open-ended effective period closes the
  period at today's date before flipping the active flag. This prevents the
  rule from matching future-dated calculations while leaving the historical
  window intact. A period that already has an end date is left untouched.

IDENTITY:
  Equality is by id; configurations without an id are never equal.
*/
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// FEE TYPE
// =============================================================================

type FeeType string

const (
	FeeTypeAdministrative FeeType = "ADMINISTRATIVE"
	FeeTypeRegulatory     FeeType = "REGULATORY"
	FeeTypeService        FeeType = "SERVICE"
	FeeTypeRiskAdjustment FeeType = "RISK_ADJUSTMENT"
)

var feeTypes = map[FeeType]bool{
	FeeTypeAdministrative: true,
	FeeTypeRegulatory:     true,
	FeeTypeService:        true,
	FeeTypeRiskAdjustment: true,
}

// IsRiskAdjustment reports whether the fee applies only to buildings with a
// matching risk indicator.
func (t FeeType) IsRiskAdjustment() bool { return t == FeeTypeRiskAdjustment }

// =============================================================================
// FEE DETAILS
// =============================================================================

// FeeDetails are the descriptive fields of a fee configuration.
type FeeDetails struct {
	Code            string
	Name            string
	Type            FeeType
	Percentage      FeePercent
	EffectivePeriod EffectivePeriod
}

func (d FeeDetails) validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return &ValidationError{Field: "code", Message: "is required"}
	}
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if !feeTypes[d.Type] {
		return &ValidationError{Field: "type", Message: "unknown fee type " + string(d.Type)}
	}
	return nil
}

// =============================================================================
// FEE CONFIGURATION AGGREGATE
// =============================================================================

type FeeConfiguration struct {
	id      *uuid.UUID
	details FeeDetails
	active  bool
	audit   AuditInfo
}

// NewFeeConfiguration validates the details and creates an active
// configuration.
func NewFeeConfiguration(details FeeDetails) (*FeeConfiguration, error) {
	details.Code = strings.ToUpper(strings.TrimSpace(details.Code))
	details.Name = strings.TrimSpace(details.Name)
	if err := details.validate(); err != nil {
		return nil, err
	}
	return &FeeConfiguration{
		details: details,
		active:  true,
		audit:   newAuditInfo(),
	}, nil
}

// RestoreFeeConfiguration rehydrates a persisted configuration.
// Persistence layer only.
func RestoreFeeConfiguration(id uuid.UUID, details FeeDetails, active bool, audit AuditInfo) *FeeConfiguration {
	return &FeeConfiguration{id: &id, details: details, active: active, audit: audit}
}

// AssignID stamps the persistence identity. Only valid once.
func (f *FeeConfiguration) AssignID(id uuid.UUID) {
	if f.id == nil {
		f.id = &id
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// IsValidOn reports whether the fee applies to calculations dated d.
func (f *FeeConfiguration) IsValidOn(d Date) bool {
	return f.active && f.details.EffectivePeriod.Includes(d)
}

// Deactivate closes an open-ended effective period at today and flips the
// active flag.
func (f *FeeConfiguration) Deactivate() error {
	if !f.active {
		return &ValidationError{Field: "active", Message: "fee configuration is already inactive"}
	}
	if f.details.EffectivePeriod.IsOpenEnded() {
		closed, err := f.details.EffectivePeriod.ChangeEnd(Today())
		if err != nil {
			return err
		}
		f.details.EffectivePeriod = closed
	}
	f.active = false
	f.audit.touch()
	return nil
}

// Activate re-enables the configuration. The effective period is not
// reopened; extend it via UpdateDetails if needed.
func (f *FeeConfiguration) Activate() error {
	if f.active {
		return &ValidationError{Field: "active", Message: "fee configuration is already active"}
	}
	f.active = true
	f.audit.touch()
	return nil
}

// UpdateDetails replaces the descriptive fields after validation.
func (f *FeeConfiguration) UpdateDetails(details FeeDetails) error {
	details.Code = strings.ToUpper(strings.TrimSpace(details.Code))
	details.Name = strings.TrimSpace(details.Name)
	if err := details.validate(); err != nil {
		return err
	}
	f.details = details
	f.audit.touch()
	return nil
}

// UpdatePercentage replaces only the percentage.
func (f *FeeConfiguration) UpdatePercentage(p FeePercent) {
	f.details.Percentage = p
	f.audit.touch()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID returns the persistence identity, or nil before the first save.
func (f *FeeConfiguration) ID() *uuid.UUID {
	if f.id == nil {
		return nil
	}
	id := *f.id
	return &id
}

func (f *FeeConfiguration) Details() FeeDetails { return f.details }
func (f *FeeConfiguration) IsActive() bool      { return f.active }
func (f *FeeConfiguration) Audit() AuditInfo    { return f.audit }

// Equals implements identity equality by id.
func (f *FeeConfiguration) Equals(other *FeeConfiguration) bool {
	if f == nil || other == nil {
		return false
	}
	if f.id == nil || other.id == nil {
		return false
	}
	return *f.id == *other.id
}
