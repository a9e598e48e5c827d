/*
handlers.go - HTTP handlers for the policy engine

PURPOSE:
  Exposes policy lifecycle operations, premium quoting, and fee / risk
  factor configuration management over REST. Handlers parse and validate
  input, delegate to the domain, and map error kinds to HTTP statuses.

ENDPOINTS:
  Policies:
    POST   /api/policies                    Create draft
    GET    /api/policies                    List
    GET    /api/policies/{id}               Get
    POST   /api/policies/{id}/activate      Recalculate premium + activate
    POST   /api/policies/{id}/quote         Recalculate premium (read-only)
    POST   /api/policies/{id}/cancel        Cancel with reason
    POST   /api/policies/{id}/expire        Expire

  Fee configurations:
    POST   /api/fees                        Create
    GET    /api/fees                        List
    GET    /api/fees/{id}                   Get
    PUT    /api/fees/{id}/details           Update details
    PUT    /api/fees/{id}/percentage        Update percentage
    POST   /api/fees/{id}/activate          Re-enable
    POST   /api/fees/{id}/deactivate        Deactivate (closes open period)

  Risk factors:
    POST   /api/risk-factors                Create
    GET    /api/risk-factors                List
    GET    /api/risk-factors/{id}           Get
    PUT    /api/risk-factors/{id}/percentage  Update percentage
    POST   /api/risk-factors/{id}/activate    Re-enable
    POST   /api/risk-factors/{id}/deactivate  Deactivate

  Reference data:
    POST   /api/brokers                     Register broker
    POST   /api/buildings                   Register building

  Admin:
    POST   /api/admin/import                Import a JSON pricing schedule
    POST   /api/admin/sweep                 Trigger expiration sweep now
    GET    /api/admin/sweep-runs            List sweep runs

ERROR HANDLING:
  Domain validation / transition failures -> 400
  Missing aggregates                      -> 404
  Optimistic version conflicts            -> 409
  Premium invariant violations            -> 500 (corrupt data)
  Everything else                         -> 500

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
  - sweeper.go: The expiration sweep triggered by /api/admin/sweep
*/
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aegis/policy-engine/domain"
	"github.com/aegis/policy-engine/factory"
	"github.com/aegis/policy-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Calculator *domain.Calculator
	Sweeper    *ExpirationSweeper

	validate *validator.Validate
}

// NewHandler creates a handler backed by the given store. The store doubles
// as the calculator's fee and risk factor sources.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:      store,
		Calculator: domain.NewCalculator(store, store),
		validate:   validator.New(),
	}
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// CreatePolicy creates a draft policy.
// POST /api/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if !h.decode(w, r, &req) {
		return
	}

	refs := domain.References{}
	var err error
	if refs.ClientID, err = uuid.Parse(req.ClientID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client_id", err)
		return
	}
	if refs.BuildingID, err = uuid.Parse(req.BuildingID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid building_id", err)
		return
	}
	if refs.BrokerID, err = uuid.Parse(req.BrokerID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid broker_id", err)
		return
	}
	if refs.CurrencyID, err = uuid.Parse(req.CurrencyID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid currency_id", err)
		return
	}

	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	period, err := domain.NewPolicyPeriod(start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	base, err := domain.NewAmountFromString(req.BasePremium)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	number := req.PolicyNumber
	if strings.TrimSpace(number) == "" {
		number = generatePolicyNumber()
	}

	policy, err := domain.CreateDraft(number, refs, period, base)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.CreatePolicy(r.Context(), policy); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPolicyDTO(policy))
}

// ListPolicies returns all policies.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns one policy.
// GET /api/policies/{id}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// ActivatePolicy recalculates the final premium as of the policy start date
// and transitions the draft to ACTIVE. Premium and status commit together
// or not at all.
// POST /api/policies/{id}/activate
func (h *Handler) ActivatePolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}

	result, err := h.recalculate(r, policy)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := policy.Activate(result.FinalPremium); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdatePolicy(r.Context(), policy); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ActivatePolicyResponse{
		Policy: toPolicyDTO(policy),
		Quote:  toQuoteDTO(policy.PremiumDetails().Base, result),
	})
}

// QuotePolicy runs the premium calculation without transitioning the
// policy. Same code path as activation, read-only.
// POST /api/policies/{id}/quote
func (h *Handler) QuotePolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}

	result, err := h.recalculate(r, policy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(policy.PremiumDetails().Base, result))
}

// CancelPolicy cancels an active policy with a reason.
// POST /api/policies/{id}/cancel
func (h *Handler) CancelPolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}
	var req CancelPolicyRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := policy.Cancel(req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdatePolicy(r.Context(), policy); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// ExpirePolicy expires an active policy.
// POST /api/policies/{id}/expire
func (h *Handler) ExpirePolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}
	if err := policy.Expire(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdatePolicy(r.Context(), policy); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// recalculate assembles the pricing context from the policy's references
// and runs the calculator as of the policy start date.
func (h *Handler) recalculate(r *http.Request, policy *domain.Policy) (*domain.CalculationResult, error) {
	ctx := r.Context()
	refs := policy.References()

	building, err := h.Store.GetBuilding(ctx, refs.BuildingID)
	if err != nil {
		return nil, err
	}
	broker, err := h.Store.GetBroker(ctx, refs.BrokerID)
	if err != nil {
		return nil, err
	}

	pctx := domain.PricingContext{
		BrokerID:         broker.ID,
		BrokerCommission: broker.Commission,
		Building: domain.BuildingContext{
			CountryID:    building.CountryID,
			CountyID:     building.CountyID,
			CityID:       building.CityID,
			BuildingType: building.BuildingType,
			RiskIndicators: &domain.RiskIndicators{
				FloodZone:      building.FloodZone,
				EarthquakeZone: building.EarthquakeZone,
			},
		},
	}

	return h.Calculator.Calculate(ctx, policy.PremiumDetails().Base, pctx, policy.Period().Start())
}

// =============================================================================
// FEE CONFIGURATION HANDLERS
// =============================================================================

// CreateFee creates an active fee configuration.
// POST /api/fees
func (h *Handler) CreateFee(w http.ResponseWriter, r *http.Request) {
	var req CreateFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	details, err := h.feeDetails(req.Code, req.Name, req.Type, req.Percentage, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	fee, err := domain.NewFeeConfiguration(details)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.SaveFee(r.Context(), fee); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeeDTO(fee))
}

// ListFees returns all fee configurations.
// GET /api/fees
func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.Store.ListFees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee configurations", err)
		return
	}
	dtos := make([]FeeDTO, len(fees))
	for i, f := range fees {
		dtos[i] = toFeeDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFee returns one fee configuration.
// GET /api/fees/{id}
func (h *Handler) GetFee(w http.ResponseWriter, r *http.Request) {
	fee, ok := h.loadFee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFeeDTO(fee))
}

// UpdateFeeDetails replaces a fee's descriptive fields (percentage kept).
// PUT /api/fees/{id}/details
func (h *Handler) UpdateFeeDetails(w http.ResponseWriter, r *http.Request) {
	fee, ok := h.loadFee(w, r)
	if !ok {
		return
	}
	var req UpdateFeeDetailsRequest
	if !h.decode(w, r, &req) {
		return
	}

	details, err := h.feeDetails(req.Code, req.Name, req.Type, fee.Details().Percentage.String(), req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := fee.UpdateDetails(details); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdateFee(r.Context(), fee); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeDTO(fee))
}

// UpdateFeePercentage replaces only the percentage.
// PUT /api/fees/{id}/percentage
func (h *Handler) UpdateFeePercentage(w http.ResponseWriter, r *http.Request) {
	fee, ok := h.loadFee(w, r)
	if !ok {
		return
	}
	var req UpdatePercentageRequest
	if !h.decode(w, r, &req) {
		return
	}

	pct, err := parseFeePercent(req.Percentage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	fee.UpdatePercentage(pct)
	if err := h.Store.UpdateFee(r.Context(), fee); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeDTO(fee))
}

// ActivateFee re-enables a fee configuration.
// POST /api/fees/{id}/activate
func (h *Handler) ActivateFee(w http.ResponseWriter, r *http.Request) {
	h.mutateFee(w, r, func(f *domain.FeeConfiguration) error { return f.Activate() })
}

// DeactivateFee deactivates a fee configuration, closing an open-ended
// effective period at today.
// POST /api/fees/{id}/deactivate
func (h *Handler) DeactivateFee(w http.ResponseWriter, r *http.Request) {
	h.mutateFee(w, r, func(f *domain.FeeConfiguration) error { return f.Deactivate() })
}

func (h *Handler) mutateFee(w http.ResponseWriter, r *http.Request, op func(*domain.FeeConfiguration) error) {
	fee, ok := h.loadFee(w, r)
	if !ok {
		return
	}
	if err := op(fee); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdateFee(r.Context(), fee); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeDTO(fee))
}

func (h *Handler) feeDetails(code, name, feeType, percentage, from string, to *string) (domain.FeeDetails, error) {
	pct, err := parseFeePercent(percentage)
	if err != nil {
		return domain.FeeDetails{}, err
	}
	fromDate, err := domain.ParseDate(from)
	if err != nil {
		return domain.FeeDetails{}, &domain.ValidationError{Field: "effective_from", Message: "malformed date"}
	}
	var toDate *domain.Date
	if to != nil {
		t, err := domain.ParseDate(*to)
		if err != nil {
			return domain.FeeDetails{}, &domain.ValidationError{Field: "effective_to", Message: "malformed date"}
		}
		toDate = &t
	}
	period, err := domain.NewEffectivePeriod(fromDate, toDate)
	if err != nil {
		return domain.FeeDetails{}, err
	}
	return domain.FeeDetails{
		Code:            code,
		Name:            name,
		Type:            domain.FeeType(feeType),
		Percentage:      pct,
		EffectivePeriod: period,
	}, nil
}

// =============================================================================
// RISK FACTOR HANDLERS
// =============================================================================

// CreateRiskFactor creates an active risk factor configuration.
// POST /api/risk-factors
func (h *Handler) CreateRiskFactor(w http.ResponseWriter, r *http.Request) {
	var req CreateRiskFactorRequest
	if !h.decode(w, r, &req) {
		return
	}

	pct, err := parseRiskPercent(req.Percentage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	target := domain.RiskTarget{Level: domain.RiskLevel(req.Level)}
	if req.ReferenceID != nil {
		ref, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reference_id", err)
			return
		}
		target.ReferenceID = &ref
	}
	if req.BuildingType != nil {
		bt := domain.BuildingType(*req.BuildingType)
		target.BuildingType = &bt
	}

	rf, err := domain.NewRiskFactorConfiguration(target, pct)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.SaveRiskFactor(r.Context(), rf); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRiskFactorDTO(rf))
}

// ListRiskFactors returns all risk factor configurations.
// GET /api/risk-factors
func (h *Handler) ListRiskFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.Store.ListRiskFactors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list risk factor configurations", err)
		return
	}
	dtos := make([]RiskFactorDTO, len(factors))
	for i, rf := range factors {
		dtos[i] = toRiskFactorDTO(rf)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRiskFactor returns one configuration.
// GET /api/risk-factors/{id}
func (h *Handler) GetRiskFactor(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.loadRiskFactor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRiskFactorDTO(rf))
}

// UpdateRiskFactorPercentage replaces the percentage.
// PUT /api/risk-factors/{id}/percentage
func (h *Handler) UpdateRiskFactorPercentage(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.loadRiskFactor(w, r)
	if !ok {
		return
	}
	var req UpdatePercentageRequest
	if !h.decode(w, r, &req) {
		return
	}

	pct, err := parseRiskPercent(req.Percentage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rf.UpdatePercentage(pct)
	if err := h.Store.UpdateRiskFactor(r.Context(), rf); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRiskFactorDTO(rf))
}

// ActivateRiskFactor re-enables a configuration.
// POST /api/risk-factors/{id}/activate
func (h *Handler) ActivateRiskFactor(w http.ResponseWriter, r *http.Request) {
	h.mutateRiskFactor(w, r, func(rf *domain.RiskFactorConfiguration) error { return rf.Activate() })
}

// DeactivateRiskFactor removes a configuration from future calculations.
// POST /api/risk-factors/{id}/deactivate
func (h *Handler) DeactivateRiskFactor(w http.ResponseWriter, r *http.Request) {
	h.mutateRiskFactor(w, r, func(rf *domain.RiskFactorConfiguration) error { return rf.Deactivate() })
}

func (h *Handler) mutateRiskFactor(w http.ResponseWriter, r *http.Request, op func(*domain.RiskFactorConfiguration) error) {
	rf, ok := h.loadRiskFactor(w, r)
	if !ok {
		return
	}
	if err := op(rf); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.UpdateRiskFactor(r.Context(), rf); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRiskFactorDTO(rf))
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// CreateBroker registers a broker.
// POST /api/brokers
func (h *Handler) CreateBroker(w http.ResponseWriter, r *http.Request) {
	var req CreateBrokerRequest
	if !h.decode(w, r, &req) {
		return
	}

	broker := sqlite.Broker{ID: uuid.New(), Name: req.Name}
	if req.Commission != nil {
		c, err := decimal.NewFromString(*req.Commission)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid commission", err)
			return
		}
		broker.Commission = &c
	}
	if err := h.Store.SaveBroker(r.Context(), broker); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": broker.ID.String()})
}

// CreateBuilding registers a building.
// POST /api/buildings
func (h *Handler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req CreateBuildingRequest
	if !h.decode(w, r, &req) {
		return
	}

	building := sqlite.Building{
		ID:             uuid.New(),
		Name:           req.Name,
		BuildingType:   domain.BuildingType(req.BuildingType),
		FloodZone:      req.FloodZone,
		EarthquakeZone: req.EarthquakeZone,
	}
	var err error
	if building.CountryID, err = uuid.Parse(req.CountryID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid country_id", err)
		return
	}
	if building.CountyID, err = uuid.Parse(req.CountyID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid county_id", err)
		return
	}
	if building.CityID, err = uuid.Parse(req.CityID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid city_id", err)
		return
	}
	if err := h.Store.SaveBuilding(r.Context(), building); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": building.ID.String()})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ImportSchedule parses a JSON pricing-schedule document and persists every
// fee and risk factor configuration in it. The whole document is rejected
// on the first invalid entry; nothing is saved in that case.
// POST /api/admin/import
func (h *Handler) ImportSchedule(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	schedule, err := factory.NewScheduleFactory().ParseSchedule(string(body))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	for _, fee := range schedule.Fees {
		if err := h.Store.SaveFee(ctx, fee); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	for _, rf := range schedule.RiskFactors {
		if err := h.Store.SaveRiskFactor(ctx, rf); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]int{
		"fees":         len(schedule.Fees),
		"risk_factors": len(schedule.RiskFactors),
	})
}

// TriggerSweep runs the expiration sweep immediately.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "Sweeper not configured", nil)
		return
	}
	run := h.Sweeper.RunNow(r.Context())
	writeJSON(w, http.StatusOK, toSweepRunDTO(run))
}

// ListSweepRuns lists recorded sweep runs, most recent first.
// GET /api/admin/sweep-runs
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListSweepRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}
	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) loadPolicy(w http.ResponseWriter, r *http.Request) (*domain.Policy, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy id", err)
		return nil, false
	}
	policy, err := h.Store.GetPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return policy, true
}

func (h *Handler) loadFee(w http.ResponseWriter, r *http.Request) (*domain.FeeConfiguration, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fee configuration id", err)
		return nil, false
	}
	fee, err := h.Store.GetFee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return fee, true
}

func (h *Handler) loadRiskFactor(w http.ResponseWriter, r *http.Request) (*domain.RiskFactorConfiguration, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid risk factor id", err)
		return nil, false
	}
	rf, err := h.Store.GetRiskFactor(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return rf, true
}

func parseFeePercent(s string) (domain.FeePercent, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.FeePercent{}, &domain.ValidationError{Field: "percentage", Message: "malformed percentage: " + s}
	}
	return domain.NewFeePercent(d)
}

func parseRiskPercent(s string) (domain.RiskPercent, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.RiskPercent{}, &domain.ValidationError{Field: "percentage", Message: "malformed percentage: " + s}
	}
	return domain.NewRiskPercent(d)
}

func generatePolicyNumber() string {
	return "POL-" + strings.ToUpper(uuid.New().String()[:8])
}

// writeDomainError maps core error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case domain.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case domain.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		// Includes premium invariant violations: corrupt data, not input.
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
