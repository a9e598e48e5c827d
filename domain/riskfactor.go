/*
riskfactor.go - Risk factor configuration aggregate

PURPOSE:
  A RiskFactorConfiguration attaches a percentage adjustment to a risk
  target: either a geography (country, county, or city, addressed by id) or
  a building type. The premium calculator picks up every active rule whose
  target matches the building being priced.

TARGET INVARIANT:
  level == BUILDING_TYPE  =>  buildingType set, referenceId nil
  geographic level        =>  referenceId set, buildingType nil

LEVEL ORDER:
  Adjustments are surfaced in the audit trail sorted by level then id. The
  total order is COUNTRY < COUNTY < CITY < BUILDING_TYPE, broadest scope
  first with building type last.
*/
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// RISK LEVEL
// =============================================================================

type RiskLevel string

const (
	RiskLevelCountry      RiskLevel = "COUNTRY"
	RiskLevelCounty       RiskLevel = "COUNTY"
	RiskLevelCity         RiskLevel = "CITY"
	RiskLevelBuildingType RiskLevel = "BUILDING_TYPE"
)

var riskLevelOrder = map[RiskLevel]int{
	RiskLevelCountry:      1,
	RiskLevelCounty:       2,
	RiskLevelCity:         3,
	RiskLevelBuildingType: 4,
}

// Order returns the position of the level in the adjustment-trail sort.
// Unknown levels sort last.
func (l RiskLevel) Order() int {
	if o, ok := riskLevelOrder[l]; ok {
		return o
	}
	return len(riskLevelOrder) + 1
}

func (l RiskLevel) isValid() bool {
	_, ok := riskLevelOrder[l]
	return ok
}

// =============================================================================
// BUILDING TYPE
// =============================================================================

type BuildingType string

const (
	BuildingTypeResidential BuildingType = "RESIDENTIAL"
	BuildingTypeCommercial  BuildingType = "COMMERCIAL"
	BuildingTypeIndustrial  BuildingType = "INDUSTRIAL"
	BuildingTypeWarehouse   BuildingType = "WAREHOUSE"
)

// =============================================================================
// RISK TARGET
// =============================================================================

// RiskTarget is the scope a risk factor applies to. Exactly one of
// ReferenceID / BuildingType is set, depending on the level.
type RiskTarget struct {
	Level        RiskLevel
	ReferenceID  *uuid.UUID
	BuildingType *BuildingType
}

// NewGeographicTarget builds a target addressing a country, county, or city
// by id.
func NewGeographicTarget(level RiskLevel, referenceID uuid.UUID) (RiskTarget, error) {
	if !level.isValid() || level == RiskLevelBuildingType {
		return RiskTarget{}, &ValidationError{Field: "level", Message: "geographic level required, got " + string(level)}
	}
	if referenceID == uuid.Nil {
		return RiskTarget{}, &ValidationError{Field: "reference_id", Message: "is required for geographic targets"}
	}
	id := referenceID
	return RiskTarget{Level: level, ReferenceID: &id}, nil
}

// NewBuildingTypeTarget builds a target addressing a building type.
func NewBuildingTypeTarget(buildingType BuildingType) (RiskTarget, error) {
	if buildingType == "" {
		return RiskTarget{}, &ValidationError{Field: "building_type", Message: "is required for building type targets"}
	}
	bt := buildingType
	return RiskTarget{Level: RiskLevelBuildingType, BuildingType: &bt}, nil
}

func (t RiskTarget) validate() error {
	if !t.Level.isValid() {
		return &ValidationError{Field: "level", Message: "unknown risk level " + string(t.Level)}
	}
	if t.Level == RiskLevelBuildingType {
		if t.BuildingType == nil {
			return &ValidationError{Field: "building_type", Message: "is required when level is BUILDING_TYPE"}
		}
		if t.ReferenceID != nil {
			return &ValidationError{Field: "reference_id", Message: "must be empty when level is BUILDING_TYPE"}
		}
		return nil
	}
	if t.ReferenceID == nil {
		return &ValidationError{Field: "reference_id", Message: "is required for geographic targets"}
	}
	if t.BuildingType != nil {
		return &ValidationError{Field: "building_type", Message: "must be empty for geographic targets"}
	}
	return nil
}

// Reference renders the target's scope: the geography id or the building
// type. Used in adjustment names ("CITY:<id>", "BUILDING_TYPE:WAREHOUSE").
func (t RiskTarget) Reference() string {
	if t.Level == RiskLevelBuildingType && t.BuildingType != nil {
		return string(*t.BuildingType)
	}
	if t.ReferenceID != nil {
		return t.ReferenceID.String()
	}
	return ""
}

func (t RiskTarget) String() string {
	return fmt.Sprintf("%s:%s", t.Level, t.Reference())
}

// =============================================================================
// RISK FACTOR CONFIGURATION AGGREGATE
// =============================================================================

type RiskFactorConfiguration struct {
	id         *uuid.UUID
	target     RiskTarget
	percentage RiskPercent
	active     bool
	audit      AuditInfo
}

// NewRiskFactorConfiguration validates the target and creates an active
// configuration.
func NewRiskFactorConfiguration(target RiskTarget, percentage RiskPercent) (*RiskFactorConfiguration, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	return &RiskFactorConfiguration{
		target:     target,
		percentage: percentage,
		active:     true,
		audit:      newAuditInfo(),
	}, nil
}

// RestoreRiskFactorConfiguration rehydrates a persisted configuration.
// Persistence layer only.
func RestoreRiskFactorConfiguration(id uuid.UUID, target RiskTarget, percentage RiskPercent, active bool, audit AuditInfo) *RiskFactorConfiguration {
	return &RiskFactorConfiguration{id: &id, target: target, percentage: percentage, active: active, audit: audit}
}

// AssignID stamps the persistence identity. Only valid once.
func (r *RiskFactorConfiguration) AssignID(id uuid.UUID) {
	if r.id == nil {
		r.id = &id
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Matches reports whether this rule applies to a building located in the
// given geography with the given type.
func (r *RiskFactorConfiguration) Matches(countryID, countyID, cityID uuid.UUID, buildingType BuildingType) bool {
	switch r.target.Level {
	case RiskLevelCountry:
		return r.target.ReferenceID != nil && *r.target.ReferenceID == countryID
	case RiskLevelCounty:
		return r.target.ReferenceID != nil && *r.target.ReferenceID == countyID
	case RiskLevelCity:
		return r.target.ReferenceID != nil && *r.target.ReferenceID == cityID
	case RiskLevelBuildingType:
		return r.target.BuildingType != nil && *r.target.BuildingType == buildingType
	default:
		return false
	}
}

// UpdatePercentage replaces the adjustment percentage.
func (r *RiskFactorConfiguration) UpdatePercentage(p RiskPercent) {
	r.percentage = p
	r.audit.touch()
}

// Deactivate removes the rule from future calculations.
func (r *RiskFactorConfiguration) Deactivate() error {
	if !r.active {
		return &ValidationError{Field: "active", Message: "risk factor configuration is already inactive"}
	}
	r.active = false
	r.audit.touch()
	return nil
}

// Activate re-enables the rule.
func (r *RiskFactorConfiguration) Activate() error {
	if r.active {
		return &ValidationError{Field: "active", Message: "risk factor configuration is already active"}
	}
	r.active = true
	r.audit.touch()
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID returns the persistence identity, or nil before the first save.
func (r *RiskFactorConfiguration) ID() *uuid.UUID {
	if r.id == nil {
		return nil
	}
	id := *r.id
	return &id
}

func (r *RiskFactorConfiguration) Target() RiskTarget      { return r.target }
func (r *RiskFactorConfiguration) Percentage() RiskPercent { return r.percentage }
func (r *RiskFactorConfiguration) IsActive() bool          { return r.active }
func (r *RiskFactorConfiguration) Audit() AuditInfo        { return r.audit }

// Equals implements identity equality by id.
func (r *RiskFactorConfiguration) Equals(other *RiskFactorConfiguration) bool {
	if r == nil || other == nil {
		return false
	}
	if r.id == nil || other.id == nil {
		return false
	}
	return *r.id == *other.id
}
