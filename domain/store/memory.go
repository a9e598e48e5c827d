// Package store provides an in-memory implementation of the pricing lookup
// interfaces and simple aggregate storage for tests and development.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aegis/policy-engine/domain"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	policies    map[uuid.UUID]*domain.Policy
	fees        map[uuid.UUID]*domain.FeeConfiguration
	riskFactors map[uuid.UUID]*domain.RiskFactorConfiguration
}

func NewMemory() *Memory {
	return &Memory{
		policies:    make(map[uuid.UUID]*domain.Policy),
		fees:        make(map[uuid.UUID]*domain.FeeConfiguration),
		riskFactors: make(map[uuid.UUID]*domain.RiskFactorConfiguration),
	}
}

// Compile-time checks that Memory satisfies the calculator's collaborators.
var (
	_ domain.FeeSource        = (*Memory)(nil)
	_ domain.RiskFactorSource = (*Memory)(nil)
)

// =============================================================================
// POLICIES
// =============================================================================

// SavePolicy stores a policy, assigning an id on first save.
func (m *Memory) SavePolicy(_ context.Context, p *domain.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID() == nil {
		p.AssignID(uuid.New())
	}
	m.policies[*p.ID()] = p
	return nil
}

func (m *Memory) GetPolicy(_ context.Context, id uuid.UUID) (*domain.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "policy", ID: id.String()}
	}
	return p, nil
}

// ListActivePoliciesEndedBefore returns active policies whose coverage ended
// strictly before the date. Used by the expiration sweep.
func (m *Memory) ListActivePoliciesEndedBefore(_ context.Context, d domain.Date) ([]*domain.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Policy
	for _, p := range m.policies {
		if p.Status() == domain.StatusActive && p.Period().EndedBefore(d) {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// FEE CONFIGURATIONS
// =============================================================================

// SaveFee stores a fee configuration, assigning an id on first save.
func (m *Memory) SaveFee(_ context.Context, f *domain.FeeConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID() == nil {
		f.AssignID(uuid.New())
	}
	m.fees[*f.ID()] = f
	return nil
}

func (m *Memory) GetFee(_ context.Context, id uuid.UUID) (*domain.FeeConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fees[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "fee configuration", ID: id.String()}
	}
	return f, nil
}

func (m *Memory) ValidBaseFees(_ context.Context, on domain.Date) ([]*domain.FeeConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FeeConfiguration
	for _, f := range m.fees {
		if f.IsValidOn(on) && !f.Details().Type.IsRiskAdjustment() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) ValidRiskAdjustmentFees(_ context.Context, on domain.Date) ([]*domain.FeeConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FeeConfiguration
	for _, f := range m.fees {
		if f.IsValidOn(on) && f.Details().Type.IsRiskAdjustment() {
			out = append(out, f)
		}
	}
	return out, nil
}

// =============================================================================
// RISK FACTOR CONFIGURATIONS
// =============================================================================

// SaveRiskFactor stores a risk factor configuration, assigning an id on
// first save.
func (m *Memory) SaveRiskFactor(_ context.Context, r *domain.RiskFactorConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID() == nil {
		r.AssignID(uuid.New())
	}
	m.riskFactors[*r.ID()] = r
	return nil
}

func (m *Memory) GetRiskFactor(_ context.Context, id uuid.UUID) (*domain.RiskFactorConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.riskFactors[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "risk factor configuration", ID: id.String()}
	}
	return r, nil
}

func (m *Memory) ActiveMatching(_ context.Context, countryID, countyID, cityID uuid.UUID, buildingType domain.BuildingType) ([]*domain.RiskFactorConfiguration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.RiskFactorConfiguration
	for _, r := range m.riskFactors {
		if r.IsActive() && r.Matches(countryID, countyID, cityID, buildingType) {
			out = append(out, r)
		}
	}
	return out, nil
}
