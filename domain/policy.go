/*
policy.go - Policy aggregate and lifecycle state machine

PURPOSE:
  Policy is the aggregate root of the system. It holds immutable references
  (client, building, broker, currency), the coverage period, and the premium,
  and enforces every lifecycle invariant:

    DRAFT ──activate──▶ ACTIVE ──cancel──▶ CANCELLED
                           │
                           └───expire──▶ EXPIRED

  No transition leaves ACTIVE except cancel/expire; no transition re-enters
  DRAFT; CANCELLED and EXPIRED are terminal.

TRANSITION RULES:
  CreateDraft: base premium = final premium = supplied base (final not yet
               meaningful until activation recalculates it)
  Activate:    DRAFT only; start date must be today or later AT CALL TIME
               (a draft created with a then-future date can still fail here
               if activation is delayed past the start date); requires the
               recalculated final premium
  Cancel:      ACTIVE only; non-blank trimmed reason ≤500 chars; stamps
               cancellation date = today
  Expire:      ACTIVE only; not idempotent - expiring twice fails

IDENTITY:
  Equality is by id once assigned. Two policies without ids are never equal,
  not even a policy with itself loaded twice. Never use == on the struct.

SEE ALSO:
  - pricing.go: Recalculates the final premium consumed by Activate
  - errors.go: TransitionError / ValidationError kinds raised here
*/
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// STATUS - Lifecycle states
// =============================================================================

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

const maxCancellationReasonLen = 500

// =============================================================================
// OWNED VALUES
// =============================================================================

// References are the four required foreign identifiers of a policy.
// Immutable after creation.
type References struct {
	ClientID   uuid.UUID
	BuildingID uuid.UUID
	BrokerID   uuid.UUID
	CurrencyID uuid.UUID
}

func (r References) validate() error {
	fields := []struct {
		name string
		id   uuid.UUID
	}{
		{"client_id", r.ClientID},
		{"building_id", r.BuildingID},
		{"broker_id", r.BrokerID},
		{"currency_id", r.CurrencyID},
	}
	for _, f := range fields {
		if f.id == uuid.Nil {
			return &ValidationError{Field: f.name, Message: "is required"}
		}
	}
	return nil
}

// Premium pairs the base premium supplied at draft creation with the final
// premium recomputed at activation.
type Premium struct {
	Base  Amount
	Final Amount
}

// CancellationInfo is present only on cancelled policies.
type CancellationInfo struct {
	CancelledAt Date
	Reason      string
}

// =============================================================================
// POLICY AGGREGATE
// =============================================================================

// Policy is mutated only through its named transition methods.
type Policy struct {
	id           *uuid.UUID
	policyNumber string
	references   References
	status       Status
	period       PolicyPeriod
	premium      Premium
	cancellation *CancellationInfo
	version      int
}

// CreateDraft builds a new policy in DRAFT state. The supplied base premium
// doubles as the final premium until activation recalculates it.
func CreateDraft(policyNumber string, refs References, period PolicyPeriod, base Amount) (*Policy, error) {
	policyNumber = strings.TrimSpace(policyNumber)
	if policyNumber == "" {
		return nil, &ValidationError{Field: "policy_number", Message: "is required"}
	}
	if err := refs.validate(); err != nil {
		return nil, err
	}
	if base.IsZero() {
		return nil, &ValidationError{Field: "premium", Message: "base premium is required"}
	}
	return &Policy{
		policyNumber: policyNumber,
		references:   refs,
		status:       StatusDraft,
		period:       period,
		premium:      Premium{Base: base, Final: base},
		version:      1,
	}, nil
}

// RestorePolicy rehydrates a persisted policy. Persistence layer only; no
// transition invariants are re-checked.
func RestorePolicy(id uuid.UUID, policyNumber string, refs References, status Status,
	period PolicyPeriod, premium Premium, cancellation *CancellationInfo, version int) *Policy {
	return &Policy{
		id:           &id,
		policyNumber: policyNumber,
		references:   refs,
		status:       status,
		period:       period,
		premium:      premium,
		cancellation: cancellation,
		version:      version,
	}
}

// AssignID stamps the persistence identity. Only valid once.
func (p *Policy) AssignID(id uuid.UUID) {
	if p.id == nil {
		p.id = &id
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Activate moves a DRAFT policy to ACTIVE with the recalculated final
// premium. The start-date check runs against the wall clock at call time.
func (p *Policy) Activate(recalculatedFinal Amount) error {
	if p.status != StatusDraft {
		return &TransitionError{From: p.status, Operation: "activate", Reason: "only draft policies can be activated"}
	}
	if p.period.Start().Before(Today()) {
		return &ValidationError{Field: "period.start", Message: "start date must not be in the past at activation time"}
	}
	if recalculatedFinal.IsZero() {
		return &ValidationError{Field: "premium", Message: "recalculated final premium is required"}
	}
	p.premium.Final = recalculatedFinal
	p.status = StatusActive
	return nil
}

// Cancel moves an ACTIVE policy to CANCELLED, stamping today's date and the
// normalized reason.
func (p *Policy) Cancel(reason string) error {
	if p.status != StatusActive {
		return &TransitionError{From: p.status, Operation: "cancel", Reason: "only active policies can be cancelled"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &ValidationError{Field: "reason", Message: "cancellation reason is required"}
	}
	if len(reason) > maxCancellationReasonLen {
		return &ValidationError{Field: "reason", Message: "cancellation reason exceeds 500 characters"}
	}
	p.cancellation = &CancellationInfo{CancelledAt: Today(), Reason: reason}
	p.status = StatusCancelled
	return nil
}

// Expire moves an ACTIVE policy to EXPIRED. Re-invoking on an already
// expired policy fails; the sweep discards those rejections.
func (p *Policy) Expire() error {
	if p.status != StatusActive {
		return &TransitionError{From: p.status, Operation: "expire", Reason: "only active policies can expire"}
	}
	p.status = StatusExpired
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID returns the persistence identity, or nil before the first save.
func (p *Policy) ID() *uuid.UUID {
	if p.id == nil {
		return nil
	}
	id := *p.id
	return &id
}

func (p *Policy) PolicyNumber() string    { return p.policyNumber }
func (p *Policy) References() References  { return p.references }
func (p *Policy) Status() Status          { return p.status }
func (p *Policy) Period() PolicyPeriod    { return p.period }
func (p *Policy) PremiumDetails() Premium { return p.premium }
func (p *Policy) Version() int            { return p.version }

// Cancellation returns a copy of the cancellation info, or nil unless the
// policy is cancelled.
func (p *Policy) Cancellation() *CancellationInfo {
	if p.cancellation == nil {
		return nil
	}
	c := *p.cancellation
	return &c
}

// Equals implements identity equality: true only when both policies carry an
// id and the ids match. Unsaved policies are never equal to anything.
func (p *Policy) Equals(other *Policy) bool {
	if p == nil || other == nil {
		return false
	}
	if p.id == nil || other.id == nil {
		return false
	}
	return *p.id == *other.id
}
