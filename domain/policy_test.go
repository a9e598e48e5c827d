package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aegis/policy-engine/domain"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func validRefs() domain.References {
	return domain.References{
		ClientID:   uuid.New(),
		BuildingID: uuid.New(),
		BrokerID:   uuid.New(),
		CurrencyID: uuid.New(),
	}
}

func futurePeriod(t *testing.T) domain.PolicyPeriod {
	t.Helper()
	start := domain.Today().AddDays(1)
	p, err := domain.NewPolicyPeriod(start, start.AddDays(365))
	if err != nil {
		t.Fatalf("building period: %v", err)
	}
	return p
}

func draftPolicy(t *testing.T) *domain.Policy {
	t.Helper()
	p, err := domain.CreateDraft("POL-TEST-001", validRefs(), futurePeriod(t), domain.MustAmount("1000.00"))
	if err != nil {
		t.Fatalf("creating draft: %v", err)
	}
	return p
}

func activePolicy(t *testing.T) *domain.Policy {
	t.Helper()
	p := draftPolicy(t)
	if err := p.Activate(domain.MustAmount("1170.00")); err != nil {
		t.Fatalf("activating: %v", err)
	}
	return p
}

// =============================================================================
// DRAFT CREATION TESTS
// =============================================================================

func TestCreateDraft_StartsInDraftWithFinalEqualToBase(t *testing.T) {
	// GIVEN: Valid references, period, and base premium
	// WHEN: Creating a draft
	// THEN: Status is DRAFT and the final premium mirrors the base

	p := draftPolicy(t)

	if p.Status() != domain.StatusDraft {
		t.Errorf("expected DRAFT, got %s", p.Status())
	}
	premium := p.PremiumDetails()
	if !premium.Final.Equal(premium.Base) {
		t.Errorf("final premium %s should equal base %s before activation", premium.Final, premium.Base)
	}
	if p.ID() != nil {
		t.Error("a draft has no identity before the first save")
	}
}

func TestCreateDraft_RequiresPolicyNumberAndReferences(t *testing.T) {
	period := futurePeriod(t)
	base := domain.MustAmount("1000.00")

	if _, err := domain.CreateDraft("   ", validRefs(), period, base); !errors.Is(err, domain.ErrValidation) {
		t.Error("blank policy number should be rejected")
	}

	refs := validRefs()
	refs.BrokerID = uuid.Nil
	if _, err := domain.CreateDraft("POL-1", refs, period, base); !errors.Is(err, domain.ErrValidation) {
		t.Error("missing broker reference should be rejected")
	}
}

// =============================================================================
// ACTIVATION TESTS
// =============================================================================

func TestActivate_MovesDraftToActiveWithRecalculatedPremium(t *testing.T) {
	// GIVEN: A draft policy with base 1000.00
	// WHEN: Activating with the recalculated final premium 1170.00
	// THEN: Status is ACTIVE, base is preserved, final is replaced

	p := draftPolicy(t)

	if err := p.Activate(domain.MustAmount("1170.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status() != domain.StatusActive {
		t.Errorf("expected ACTIVE, got %s", p.Status())
	}
	premium := p.PremiumDetails()
	if premium.Base.String() != "1000.00" {
		t.Errorf("base premium must survive activation, got %s", premium.Base)
	}
	if premium.Final.String() != "1170.00" {
		t.Errorf("expected final 1170.00, got %s", premium.Final)
	}
}

func TestActivate_RejectsNonDraft(t *testing.T) {
	p := activePolicy(t)

	err := p.Activate(domain.MustAmount("1170.00"))
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected transition error, got %v", err)
	}
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.From != domain.StatusActive || te.Operation != "activate" {
		t.Errorf("transition error should carry from-state and operation, got %v", err)
	}
}

func TestActivate_RejectsStartDateInThePast(t *testing.T) {
	// GIVEN: A draft whose coverage already started (restored, so no
	// constructor re-check applies)
	// WHEN: Activating today
	// THEN: The wall-clock start date check rejects it

	start := domain.Today().AddDays(-10)
	period, err := domain.NewPolicyPeriod(start, start.AddDays(365))
	if err != nil {
		t.Fatalf("building period: %v", err)
	}
	base := domain.MustAmount("1000.00")
	p := domain.RestorePolicy(uuid.New(), "POL-PAST", validRefs(), domain.StatusDraft,
		period, domain.Premium{Base: base, Final: base}, nil, 1)

	if err := p.Activate(domain.MustAmount("1170.00")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if p.Status() != domain.StatusDraft {
		t.Error("failed activation must leave the policy in DRAFT")
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestCancel_StampsDateAndTrimmedReason(t *testing.T) {
	// GIVEN: An active policy
	// WHEN: Cancelling with a padded reason
	// THEN: Status is CANCELLED with today's date and the trimmed reason

	p := activePolicy(t)

	if err := p.Cancel("  client sold the building  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status() != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", p.Status())
	}
	info := p.Cancellation()
	if info == nil {
		t.Fatal("cancellation info must be present")
	}
	if info.Reason != "client sold the building" {
		t.Errorf("reason should be trimmed, got %q", info.Reason)
	}
	if !info.CancelledAt.Equal(domain.Today()) {
		t.Errorf("cancellation date should be today, got %s", info.CancelledAt)
	}
}

func TestCancel_ReasonRules(t *testing.T) {
	if err := activePolicy(t).Cancel("   "); !errors.Is(err, domain.ErrValidation) {
		t.Error("blank reason should be rejected")
	}
	if err := activePolicy(t).Cancel(strings.Repeat("x", 501)); !errors.Is(err, domain.ErrValidation) {
		t.Error("reason over 500 characters should be rejected")
	}
	if err := activePolicy(t).Cancel(strings.Repeat("x", 500)); err != nil {
		t.Errorf("reason of exactly 500 characters is allowed, got %v", err)
	}
}

func TestCancel_RejectsDraftAndTerminalStates(t *testing.T) {
	// Draft
	if err := draftPolicy(t).Cancel("reason"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Error("cancelling a draft should be rejected")
	}

	// Expired
	p := activePolicy(t)
	if err := p.Expire(); err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if err := p.Cancel("reason"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Error("cancelling an expired policy should be rejected")
	}

	// Already cancelled
	q := activePolicy(t)
	if err := q.Cancel("first"); err != nil {
		t.Fatalf("cancelling: %v", err)
	}
	if err := q.Cancel("second"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Error("cancelling twice should be rejected")
	}
}

// =============================================================================
// EXPIRATION TESTS
// =============================================================================

func TestExpire_IsNotIdempotent(t *testing.T) {
	// GIVEN: An active policy
	// WHEN: Expiring it twice
	// THEN: The first call succeeds, the second is a transition error

	p := activePolicy(t)

	if err := p.Expire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status() != domain.StatusExpired {
		t.Errorf("expected EXPIRED, got %s", p.Status())
	}

	err := p.Expire()
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected transition error on second expire, got %v", err)
	}
	if !domain.IsClientError(err) {
		t.Error("double expire must classify as a client error so the sweep can skip it")
	}
}

func TestExpire_RejectsDraft(t *testing.T) {
	if err := draftPolicy(t).Expire(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Error("expiring a draft should be rejected")
	}
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestEquals_IdentityById(t *testing.T) {
	// GIVEN: Two unsaved policies and two saved ones sharing an id
	// THEN: Equality holds only when both ids are set and match

	a := draftPolicy(t)
	b := draftPolicy(t)
	if a.Equals(b) || a.Equals(a) {
		t.Error("policies without ids are never equal, not even to themselves")
	}

	id := uuid.New()
	a.AssignID(id)
	b.AssignID(id)
	if !a.Equals(b) {
		t.Error("policies with the same id are equal")
	}

	c := draftPolicy(t)
	c.AssignID(uuid.New())
	if a.Equals(c) {
		t.Error("policies with different ids are not equal")
	}
}

func TestAssignID_OnlyOnce(t *testing.T) {
	p := draftPolicy(t)
	first := uuid.New()
	p.AssignID(first)
	p.AssignID(uuid.New())
	if *p.ID() != first {
		t.Error("a second AssignID must not overwrite the identity")
	}
}
