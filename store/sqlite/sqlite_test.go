package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis/policy-engine/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRefs() domain.References {
	return domain.References{
		ClientID:   uuid.New(),
		BuildingID: uuid.New(),
		BrokerID:   uuid.New(),
		CurrencyID: uuid.New(),
	}
}

func testDraft(t *testing.T, number string) *domain.Policy {
	t.Helper()
	start := domain.Today().AddDays(1)
	period, err := domain.NewPolicyPeriod(start, start.AddDays(365))
	require.NoError(t, err)
	p, err := domain.CreateDraft(number, testRefs(), period, domain.MustAmount("1000.00"))
	require.NoError(t, err)
	return p
}

// restoredActive fabricates an ACTIVE policy with an arbitrary period,
// bypassing the activation-time start date check.
func restoredActive(t *testing.T, number string, start, end domain.Date) *domain.Policy {
	t.Helper()
	period, err := domain.NewPolicyPeriod(start, end)
	require.NoError(t, err)
	base := domain.MustAmount("1000.00")
	return domain.RestorePolicy(uuid.New(), number, testRefs(), domain.StatusActive,
		period, domain.Premium{Base: base, Final: base}, nil, 1)
}

func testFeePercent(t *testing.T, raw string) domain.FeePercent {
	t.Helper()
	p, err := domain.NewFeePercent(decimal.RequireFromString(raw))
	require.NoError(t, err)
	return p
}

func testFee(t *testing.T, code string, feeType domain.FeeType, from domain.Date, to *domain.Date) *domain.FeeConfiguration {
	t.Helper()
	period, err := domain.NewEffectivePeriod(from, to)
	require.NoError(t, err)
	fee, err := domain.NewFeeConfiguration(domain.FeeDetails{
		Code:            code,
		Name:            code + " fee",
		Type:            feeType,
		Percentage:      testFeePercent(t, "0.02"),
		EffectivePeriod: period,
	})
	require.NoError(t, err)
	return fee
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestPolicyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testDraft(t, "POL-RT-1")
	require.NoError(t, s.CreatePolicy(ctx, p))
	require.NotNil(t, p.ID())

	loaded, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)

	assert.True(t, p.Equals(loaded))
	assert.Equal(t, "POL-RT-1", loaded.PolicyNumber())
	assert.Equal(t, domain.StatusDraft, loaded.Status())
	assert.Equal(t, p.References(), loaded.References())
	assert.Equal(t, "1000.00", loaded.PremiumDetails().Base.String())
	assert.Equal(t, 1, loaded.Version())
	assert.Nil(t, loaded.Cancellation())
}

func TestPolicyRoundTrip_Cancelled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testDraft(t, "POL-CXL-1")
	require.NoError(t, p.Activate(domain.MustAmount("1170.00")))
	require.NoError(t, p.Cancel("client request"))
	require.NoError(t, s.CreatePolicy(ctx, p))

	loaded, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, loaded.Status())
	assert.Equal(t, "1170.00", loaded.PremiumDetails().Final.String())
	require.NotNil(t, loaded.Cancellation())
	assert.Equal(t, "client request", loaded.Cancellation().Reason)
	assert.True(t, loaded.Cancellation().CancelledAt.Equal(domain.Today()))
}

func TestGetPolicy_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPolicy(context.Background(), uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdatePolicy_BumpsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testDraft(t, "POL-VER-1")
	require.NoError(t, s.CreatePolicy(ctx, p))

	loaded, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)
	require.NoError(t, loaded.Activate(domain.MustAmount("1170.00")))
	require.NoError(t, s.UpdatePolicy(ctx, loaded))

	reloaded, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, reloaded.Status())
	assert.Equal(t, 2, reloaded.Version())
}

func TestUpdatePolicy_VersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testDraft(t, "POL-RACE-1")
	require.NoError(t, s.CreatePolicy(ctx, p))

	// Two writers load the same version.
	first, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)
	second, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)

	require.NoError(t, first.Activate(domain.MustAmount("1170.00")))
	require.NoError(t, s.UpdatePolicy(ctx, first))

	// The slower writer's version is now stale.
	require.NoError(t, second.Activate(domain.MustAmount("1200.00")))
	err = s.UpdatePolicy(ctx, second)
	assert.True(t, domain.IsConflict(err))

	// The winner's transition stands.
	reloaded, err := s.GetPolicy(ctx, *p.ID())
	require.NoError(t, err)
	assert.Equal(t, "1170.00", reloaded.PremiumDetails().Final.String())
}

func TestUpdatePolicy_MissingPolicy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ghost := restoredActive(t, "POL-GHOST",
		domain.Today().AddDays(-400), domain.Today().AddDays(-35))
	require.NoError(t, ghost.Expire())

	err := s.UpdatePolicy(ctx, ghost)
	assert.True(t, domain.IsNotFound(err))
}

func TestListActivePoliciesEndedBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	overdue := restoredActive(t, "POL-OVERDUE",
		domain.Today().AddDays(-400), domain.Today().AddDays(-1))
	running := restoredActive(t, "POL-RUNNING",
		domain.Today().AddDays(-100), domain.Today().AddDays(100))
	require.NoError(t, s.CreatePolicy(ctx, overdue))
	require.NoError(t, s.CreatePolicy(ctx, running))

	// A draft with an elapsed period is not swept.
	draft := testDraft(t, "POL-DRAFT")
	require.NoError(t, s.CreatePolicy(ctx, draft))

	out, err := s.ListActivePoliciesEndedBefore(ctx, domain.Today())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "POL-OVERDUE", out[0].PolicyNumber())

	// The boundary is strict: a policy ending today is not overdue.
	boundary := restoredActive(t, "POL-TODAY",
		domain.Today().AddDays(-100), domain.Today())
	require.NoError(t, s.CreatePolicy(ctx, boundary))

	out, err = s.ListActivePoliciesEndedBefore(ctx, domain.Today())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

// =============================================================================
// FEE CONFIGURATION TESTS
// =============================================================================

func TestFeeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	end := domain.NewDate(2025, time.December, 31)
	fee := testFee(t, "ADMIN", domain.FeeTypeAdministrative, domain.NewDate(2025, time.January, 1), &end)
	require.NoError(t, s.SaveFee(ctx, fee))

	loaded, err := s.GetFee(ctx, *fee.ID())
	require.NoError(t, err)

	assert.True(t, fee.Equals(loaded))
	assert.Equal(t, "ADMIN", loaded.Details().Code)
	assert.Equal(t, domain.FeeTypeAdministrative, loaded.Details().Type)
	assert.Equal(t, "0.0200", loaded.Details().Percentage.String())
	assert.True(t, loaded.Details().EffectivePeriod.To().Equal(end))
	assert.True(t, loaded.IsActive())
}

func TestValidFees_SplitByTypeAndWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	jan1 := domain.NewDate(2025, time.January, 1)

	require.NoError(t, s.SaveFee(ctx, testFee(t, "ADMIN", domain.FeeTypeAdministrative, jan1, nil)))
	require.NoError(t, s.SaveFee(ctx, testFee(t, "FLOOD_ZONE", domain.FeeTypeRiskAdjustment, jan1, nil)))

	// A window that ended before the query date.
	closedEnd := domain.NewDate(2025, time.March, 31)
	require.NoError(t, s.SaveFee(ctx, testFee(t, "OLD_LEVY", domain.FeeTypeRegulatory, jan1, &closedEnd)))

	// An inactive fee inside its window.
	inactive := testFee(t, "SUSPENDED", domain.FeeTypeService, jan1, nil)
	require.NoError(t, inactive.Deactivate())
	require.NoError(t, s.SaveFee(ctx, inactive))

	on := domain.NewDate(2025, time.June, 1)

	base, err := s.ValidBaseFees(ctx, on)
	require.NoError(t, err)
	require.Len(t, base, 1)
	assert.Equal(t, "ADMIN", base[0].Details().Code)

	risk, err := s.ValidRiskAdjustmentFees(ctx, on)
	require.NoError(t, err)
	require.Len(t, risk, 1)
	assert.Equal(t, "FLOOD_ZONE", risk[0].Details().Code)

	// Window edges are inclusive.
	edge, err := s.ValidBaseFees(ctx, domain.NewDate(2025, time.March, 31))
	require.NoError(t, err)
	assert.Len(t, edge, 2) // ADMIN and OLD_LEVY on its last valid day
}

func TestUpdateFee_PersistsDeactivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fee := testFee(t, "ADMIN", domain.FeeTypeAdministrative, domain.NewDate(2025, time.January, 1), nil)
	require.NoError(t, s.SaveFee(ctx, fee))

	require.NoError(t, fee.Deactivate())
	require.NoError(t, s.UpdateFee(ctx, fee))

	loaded, err := s.GetFee(ctx, *fee.ID())
	require.NoError(t, err)
	assert.False(t, loaded.IsActive())
	require.NotNil(t, loaded.Details().EffectivePeriod.To())
	assert.True(t, loaded.Details().EffectivePeriod.To().Equal(domain.Today()))
}

// =============================================================================
// RISK FACTOR TESTS
// =============================================================================

func TestRiskFactorRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cityID := uuid.New()
	target, err := domain.NewGeographicTarget(domain.RiskLevelCity, cityID)
	require.NoError(t, err)
	pct, err := domain.NewRiskPercent(decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	rf, err := domain.NewRiskFactorConfiguration(target, pct)
	require.NoError(t, err)

	require.NoError(t, s.SaveRiskFactor(ctx, rf))

	loaded, err := s.GetRiskFactor(ctx, *rf.ID())
	require.NoError(t, err)
	assert.True(t, rf.Equals(loaded))
	assert.Equal(t, domain.RiskLevelCity, loaded.Target().Level)
	require.NotNil(t, loaded.Target().ReferenceID)
	assert.Equal(t, cityID, *loaded.Target().ReferenceID)
	assert.Equal(t, "0.1000", loaded.Percentage().String())
}

func TestActiveMatching(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	countryID, countyID, cityID := uuid.New(), uuid.New(), uuid.New()
	pct, err := domain.NewRiskPercent(decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	save := func(target domain.RiskTarget) *domain.RiskFactorConfiguration {
		rf, err := domain.NewRiskFactorConfiguration(target, pct)
		require.NoError(t, err)
		require.NoError(t, s.SaveRiskFactor(ctx, rf))
		return rf
	}

	cityTarget, err := domain.NewGeographicTarget(domain.RiskLevelCity, cityID)
	require.NoError(t, err)
	save(cityTarget)

	btTarget, err := domain.NewBuildingTypeTarget(domain.BuildingTypeWarehouse)
	require.NoError(t, err)
	save(btTarget)

	// Rules that must not match: another city, another type, an inactive one.
	otherCity, err := domain.NewGeographicTarget(domain.RiskLevelCity, uuid.New())
	require.NoError(t, err)
	save(otherCity)

	otherType, err := domain.NewBuildingTypeTarget(domain.BuildingTypeResidential)
	require.NoError(t, err)
	save(otherType)

	countryTarget, err := domain.NewGeographicTarget(domain.RiskLevelCountry, countryID)
	require.NoError(t, err)
	inactive, err := domain.NewRiskFactorConfiguration(countryTarget, pct)
	require.NoError(t, err)
	require.NoError(t, inactive.Deactivate())
	require.NoError(t, s.SaveRiskFactor(ctx, inactive))

	out, err := s.ActiveMatching(ctx, countryID, countyID, cityID, domain.BuildingTypeWarehouse)
	require.NoError(t, err)
	require.Len(t, out, 2)

	levels := map[domain.RiskLevel]bool{}
	for _, rf := range out {
		levels[rf.Target().Level] = true
	}
	assert.True(t, levels[domain.RiskLevelCity])
	assert.True(t, levels[domain.RiskLevelBuildingType])
}

// =============================================================================
// REFERENCE DATA TESTS
// =============================================================================

func TestBrokerRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	commission := decimal.RequireFromString("0.05")
	broker := Broker{ID: uuid.New(), Name: "Acme Brokerage", Commission: &commission}
	require.NoError(t, s.SaveBroker(ctx, broker))

	loaded, err := s.GetBroker(ctx, broker.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Brokerage", loaded.Name)
	require.NotNil(t, loaded.Commission)
	assert.True(t, loaded.Commission.Equal(commission))

	// Brokers without a commission stay nil.
	free := Broker{ID: uuid.New(), Name: "Direct Sales"}
	require.NoError(t, s.SaveBroker(ctx, free))
	loaded, err = s.GetBroker(ctx, free.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Commission)
}

func TestBuildingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := Building{
		ID:             uuid.New(),
		Name:           "Dockside warehouse",
		CountryID:      uuid.New(),
		CountyID:       uuid.New(),
		CityID:         uuid.New(),
		BuildingType:   domain.BuildingTypeWarehouse,
		FloodZone:      true,
		EarthquakeZone: false,
	}
	require.NoError(t, s.SaveBuilding(ctx, b))

	loaded, err := s.GetBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, *loaded)
}

// =============================================================================
// SWEEP RUN TESTS
// =============================================================================

func TestSweepRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	run := SweepRun{ID: "sweep-1", StartedAt: started, Status: "running"}
	require.NoError(t, s.SaveSweepRun(ctx, run))

	// The same id is replaced on completion.
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Status = "completed"
	run.Expired = 3
	run.Skipped = 1
	require.NoError(t, s.SaveSweepRun(ctx, run))

	runs, err := s.ListSweepRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 3, runs[0].Expired)
	assert.Equal(t, 1, runs[0].Skipped)
	require.NotNil(t, runs[0].CompletedAt)
}
