package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/aegis/policy-engine/domain"
)

func TestMemory_PolicyRoundTrip(t *testing.T) {
	// GIVEN: A draft policy
	m := NewMemory()
	ctx := context.Background()

	start := domain.Today().AddDays(1)
	period, err := domain.NewPolicyPeriod(start, start.AddDays(365))
	if err != nil {
		t.Fatalf("building period: %v", err)
	}
	refs := domain.References{
		ClientID:   uuid.New(),
		BuildingID: uuid.New(),
		BrokerID:   uuid.New(),
		CurrencyID: uuid.New(),
	}
	p, err := domain.CreateDraft("POL-MEM-1", refs, period, domain.MustAmount("1000.00"))
	if err != nil {
		t.Fatalf("creating draft: %v", err)
	}

	// WHEN: Saving and reloading
	if err := m.SavePolicy(ctx, p); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if p.ID() == nil {
		t.Fatal("save must assign an id")
	}
	loaded, err := m.GetPolicy(ctx, *p.ID())
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	// THEN: The same aggregate comes back
	if !p.Equals(loaded) {
		t.Error("loaded policy must equal the saved one")
	}

	// Unknown ids are not found.
	if _, err := m.GetPolicy(ctx, uuid.New()); !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemory_ListActivePoliciesEndedBefore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	makeActive := func(number string, start, end domain.Date) *domain.Policy {
		period, err := domain.NewPolicyPeriod(start, end)
		if err != nil {
			t.Fatalf("building period: %v", err)
		}
		base := domain.MustAmount("1000.00")
		refs := domain.References{
			ClientID:   uuid.New(),
			BuildingID: uuid.New(),
			BrokerID:   uuid.New(),
			CurrencyID: uuid.New(),
		}
		return domain.RestorePolicy(uuid.New(), number, refs, domain.StatusActive,
			period, domain.Premium{Base: base, Final: base}, nil, 1)
	}

	overdue := makeActive("POL-OVERDUE", domain.Today().AddDays(-400), domain.Today().AddDays(-1))
	running := makeActive("POL-RUNNING", domain.Today().AddDays(-100), domain.Today().AddDays(100))
	if err := m.SavePolicy(ctx, overdue); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := m.SavePolicy(ctx, running); err != nil {
		t.Fatalf("saving: %v", err)
	}

	out, err := m.ListActivePoliciesEndedBefore(ctx, domain.Today())
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(out) != 1 || out[0].PolicyNumber() != "POL-OVERDUE" {
		t.Errorf("expected only the overdue policy, got %d", len(out))
	}
}
