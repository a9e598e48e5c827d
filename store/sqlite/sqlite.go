/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Persists the three aggregates (policies, fee configurations, risk factor
  configurations), the reference records needed to assemble a pricing
  context (brokers, buildings), and expiration sweep run records. Implements
  the calculator's FeeSource and RiskFactorSource lookups with SQL filters
  matching the domain validity rules exactly.

OPTIMISTIC CONCURRENCY:
  The policies table carries a version column. UpdatePolicy compares and
  bumps it in a single statement; zero affected rows means another writer
  won the race and the caller gets ErrVersionConflict. This is the
  single-writer transition contract the lifecycle methods assume.

KEY TABLES:
  policies:                    Aggregate state incl. premium and cancellation
  fee_configurations:          Time-bounded percentage rules
  risk_factor_configurations:  Geography / building-type adjustments
  brokers, buildings:          Pricing-context reference data
  sweep_runs:                  Expiration sweep audit records

WAL MODE:
  Opened with WAL and foreign keys on, same as a single-writer service
  expects. Use ":memory:" for tests.

SEE ALSO:
  - domain/pricing.go: FeeSource / RiskFactorSource contracts
  - domain/store/memory.go: In-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/aegis/policy-engine/domain"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339Nano
)

// Store implements all persistence interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time checks for the calculator's collaborators.
var (
	_ domain.FeeSource        = (*Store)(nil)
	_ domain.RiskFactorSource = (*Store)(nil)
)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		policy_number TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL,
		building_id TEXT NOT NULL,
		broker_id TEXT NOT NULL,
		currency_id TEXT NOT NULL,
		status TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		premium_base TEXT NOT NULL,
		premium_final TEXT NOT NULL,
		cancelled_at TEXT,
		cancellation_reason TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_policies_status_end ON policies(status, period_end);

	CREATE TABLE IF NOT EXISTS fee_configurations (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		fee_type TEXT NOT NULL,
		percentage TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fees_active_window ON fee_configurations(active, effective_from, effective_to);

	CREATE TABLE IF NOT EXISTS risk_factor_configurations (
		id TEXT PRIMARY KEY,
		level TEXT NOT NULL,
		reference_id TEXT,
		building_type TEXT,
		percentage TEXT NOT NULL,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_risk_factors_target ON risk_factor_configurations(active, level, reference_id, building_type);

	CREATE TABLE IF NOT EXISTS brokers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		commission TEXT
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country_id TEXT NOT NULL,
		county_id TEXT NOT NULL,
		city_id TEXT NOT NULL,
		building_type TEXT NOT NULL,
		flood_zone INTEGER NOT NULL DEFAULT 0,
		earthquake_zone INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		status TEXT NOT NULL,
		expired_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICIES
// =============================================================================

// CreatePolicy inserts a new policy and assigns its id. Version starts at 1.
func (s *Store) CreatePolicy(ctx context.Context, p *domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID() == nil {
		p.AssignID(uuid.New())
	}
	now := time.Now().UTC().Format(tsLayout)
	refs := p.References()
	prem := p.PremiumDetails()

	var cancelledAt, reason sql.NullString
	if c := p.Cancellation(); c != nil {
		cancelledAt = sql.NullString{String: c.CancelledAt.String(), Valid: true}
		reason = sql.NullString{String: c.Reason, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, policy_number, client_id, building_id, broker_id, currency_id,
			status, period_start, period_end, premium_base, premium_final,
			cancelled_at, cancellation_reason, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID().String(), p.PolicyNumber(),
		refs.ClientID.String(), refs.BuildingID.String(), refs.BrokerID.String(), refs.CurrencyID.String(),
		string(p.Status()), p.Period().Start().String(), p.Period().End().String(),
		prem.Base.String(), prem.Final.String(),
		cancelledAt, reason, p.Version(), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

// UpdatePolicy persists a transition. The stored version must match the
// version the policy was loaded with; otherwise ErrVersionConflict.
func (s *Store) UpdatePolicy(ctx context.Context, p *domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID() == nil {
		return &domain.ValidationError{Field: "id", Message: "cannot update an unsaved policy"}
	}
	prem := p.PremiumDetails()

	var cancelledAt, reason sql.NullString
	if c := p.Cancellation(); c != nil {
		cancelledAt = sql.NullString{String: c.CancelledAt.String(), Valid: true}
		reason = sql.NullString{String: c.Reason, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies
		SET status = ?, premium_final = ?, cancelled_at = ?, cancellation_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(p.Status()), prem.Final.String(), cancelledAt, reason,
		time.Now().UTC().Format(tsLayout), p.ID().String(), p.Version())
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the policy vanished or another writer bumped the version.
		var exists int
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM policies WHERE id = ?`, p.ID().String())
		if scanErr := row.Scan(&exists); scanErr == nil && exists == 0 {
			return &domain.NotFoundError{Kind: "policy", ID: p.ID().String()}
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// GetPolicy loads a policy by id.
func (s *Store) GetPolicy(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, policySelect+` WHERE id = ?`, id.String())
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "policy", ID: id.String()}
	}
	return p, err
}

// ListPolicies returns all policies ordered by policy number.
func (s *Store) ListPolicies(ctx context.Context) ([]*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, policySelect+` ORDER BY policy_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

// ListActivePoliciesEndedBefore returns active policies whose coverage ended
// strictly before the date. The expiration sweep's selection query.
func (s *Store) ListActivePoliciesEndedBefore(ctx context.Context, d domain.Date) ([]*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		policySelect+` WHERE status = ? AND period_end < ? ORDER BY period_end`,
		string(domain.StatusActive), d.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue policies: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

const policySelect = `
	SELECT id, policy_number, client_id, building_id, broker_id, currency_id,
		status, period_start, period_end, premium_base, premium_final,
		cancelled_at, cancellation_reason, version
	FROM policies`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*domain.Policy, error) {
	var (
		idStr, number, clientStr, buildingStr, brokerStr, currencyStr string
		status, startStr, endStr, baseStr, finalStr                   string
		cancelledAt, reason                                           sql.NullString
		version                                                       int
	)
	if err := row.Scan(&idStr, &number, &clientStr, &buildingStr, &brokerStr, &currencyStr,
		&status, &startStr, &endStr, &baseStr, &finalStr, &cancelledAt, &reason, &version); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt policy id %q: %w", idStr, err)
	}
	refs := domain.References{}
	if refs.ClientID, err = uuid.Parse(clientStr); err != nil {
		return nil, fmt.Errorf("corrupt client id: %w", err)
	}
	if refs.BuildingID, err = uuid.Parse(buildingStr); err != nil {
		return nil, fmt.Errorf("corrupt building id: %w", err)
	}
	if refs.BrokerID, err = uuid.Parse(brokerStr); err != nil {
		return nil, fmt.Errorf("corrupt broker id: %w", err)
	}
	if refs.CurrencyID, err = uuid.Parse(currencyStr); err != nil {
		return nil, fmt.Errorf("corrupt currency id: %w", err)
	}

	start, err := domain.ParseDate(startStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt period start: %w", err)
	}
	end, err := domain.ParseDate(endStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt period end: %w", err)
	}
	period, err := domain.NewPolicyPeriod(start, end)
	if err != nil {
		return nil, fmt.Errorf("corrupt policy period: %w", err)
	}

	base, err := domain.NewAmountFromString(baseStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt base premium: %w", err)
	}
	final, err := domain.NewAmountFromString(finalStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt final premium: %w", err)
	}

	var cancellation *domain.CancellationInfo
	if cancelledAt.Valid {
		at, err := domain.ParseDate(cancelledAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt cancellation date: %w", err)
		}
		cancellation = &domain.CancellationInfo{CancelledAt: at, Reason: reason.String}
	}

	return domain.RestorePolicy(id, number, refs, domain.Status(status), period,
		domain.Premium{Base: base, Final: final}, cancellation, version), nil
}

func scanPolicies(rows *sql.Rows) ([]*domain.Policy, error) {
	var out []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// FEE CONFIGURATIONS
// =============================================================================

// SaveFee inserts a fee configuration, assigning its id.
func (s *Store) SaveFee(ctx context.Context, f *domain.FeeConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID() == nil {
		f.AssignID(uuid.New())
	}
	d := f.Details()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fee_configurations (id, code, name, fee_type, percentage,
			effective_from, effective_to, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID().String(), d.Code, d.Name, string(d.Type), d.Percentage.String(),
		d.EffectivePeriod.From().String(), nullableDate(d.EffectivePeriod.To()),
		boolInt(f.IsActive()),
		f.Audit().CreatedAt.Format(tsLayout), f.Audit().UpdatedAt.Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to insert fee configuration: %w", err)
	}
	return nil
}

// UpdateFee persists mutations of an existing fee configuration.
func (s *Store) UpdateFee(ctx context.Context, f *domain.FeeConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID() == nil {
		return &domain.ValidationError{Field: "id", Message: "cannot update an unsaved fee configuration"}
	}
	d := f.Details()
	res, err := s.db.ExecContext(ctx, `
		UPDATE fee_configurations
		SET code = ?, name = ?, fee_type = ?, percentage = ?,
			effective_from = ?, effective_to = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		d.Code, d.Name, string(d.Type), d.Percentage.String(),
		d.EffectivePeriod.From().String(), nullableDate(d.EffectivePeriod.To()),
		boolInt(f.IsActive()), f.Audit().UpdatedAt.Format(tsLayout), f.ID().String())
	if err != nil {
		return fmt.Errorf("failed to update fee configuration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "fee configuration", ID: f.ID().String()}
	}
	return nil
}

// GetFee loads a fee configuration by id.
func (s *Store) GetFee(ctx context.Context, id uuid.UUID) (*domain.FeeConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, feeSelect+` WHERE id = ?`, id.String())
	f, err := scanFee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "fee configuration", ID: id.String()}
	}
	return f, err
}

// ListFees returns all fee configurations ordered by type then code.
func (s *Store) ListFees(ctx context.Context) ([]*domain.FeeConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, feeSelect+` ORDER BY fee_type, code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee configurations: %w", err)
	}
	defer rows.Close()
	return scanFees(rows)
}

// ValidBaseFees implements domain.FeeSource: active non-risk-adjustment fees
// whose effective period includes the date.
func (s *Store) ValidBaseFees(ctx context.Context, on domain.Date) ([]*domain.FeeConfiguration, error) {
	return s.validFees(ctx, on, false)
}

// ValidRiskAdjustmentFees implements domain.FeeSource for the
// RISK_ADJUSTMENT type.
func (s *Store) ValidRiskAdjustmentFees(ctx context.Context, on domain.Date) ([]*domain.FeeConfiguration, error) {
	return s.validFees(ctx, on, true)
}

func (s *Store) validFees(ctx context.Context, on domain.Date, riskAdjustment bool) ([]*domain.FeeConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeFilter := `fee_type != ?`
	if riskAdjustment {
		typeFilter = `fee_type = ?`
	}
	rows, err := s.db.QueryContext(ctx,
		feeSelect+` WHERE active = 1 AND `+typeFilter+`
			AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)`,
		string(domain.FeeTypeRiskAdjustment), on.String(), on.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query valid fees: %w", err)
	}
	defer rows.Close()
	return scanFees(rows)
}

const feeSelect = `
	SELECT id, code, name, fee_type, percentage, effective_from, effective_to,
		active, created_at, updated_at
	FROM fee_configurations`

func scanFee(row rowScanner) (*domain.FeeConfiguration, error) {
	var (
		idStr, code, name, feeType, pctStr, fromStr string
		toStr                                       sql.NullString
		active                                      int
		createdStr, updatedStr                      string
	)
	if err := row.Scan(&idStr, &code, &name, &feeType, &pctStr, &fromStr, &toStr,
		&active, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt fee id %q: %w", idStr, err)
	}
	pctDec, err := decimal.NewFromString(pctStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt fee percentage: %w", err)
	}
	pct, err := domain.NewFeePercent(pctDec)
	if err != nil {
		return nil, fmt.Errorf("corrupt fee percentage: %w", err)
	}
	from, err := domain.ParseDate(fromStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt effective from: %w", err)
	}
	var to *domain.Date
	if toStr.Valid {
		t, err := domain.ParseDate(toStr.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt effective to: %w", err)
		}
		to = &t
	}
	period, err := domain.NewEffectivePeriod(from, to)
	if err != nil {
		return nil, fmt.Errorf("corrupt effective period: %w", err)
	}

	audit, err := scanAudit(createdStr, updatedStr)
	if err != nil {
		return nil, err
	}

	return domain.RestoreFeeConfiguration(id, domain.FeeDetails{
		Code:            code,
		Name:            name,
		Type:            domain.FeeType(feeType),
		Percentage:      pct,
		EffectivePeriod: period,
	}, active == 1, audit), nil
}

func scanFees(rows *sql.Rows) ([]*domain.FeeConfiguration, error) {
	var out []*domain.FeeConfiguration
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// =============================================================================
// RISK FACTOR CONFIGURATIONS
// =============================================================================

// SaveRiskFactor inserts a risk factor configuration, assigning its id.
func (s *Store) SaveRiskFactor(ctx context.Context, r *domain.RiskFactorConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID() == nil {
		r.AssignID(uuid.New())
	}
	t := r.Target()
	var refID, buildingType sql.NullString
	if t.ReferenceID != nil {
		refID = sql.NullString{String: t.ReferenceID.String(), Valid: true}
	}
	if t.BuildingType != nil {
		buildingType = sql.NullString{String: string(*t.BuildingType), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_factor_configurations (id, level, reference_id, building_type,
			percentage, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID().String(), string(t.Level), refID, buildingType,
		r.Percentage().String(), boolInt(r.IsActive()),
		r.Audit().CreatedAt.Format(tsLayout), r.Audit().UpdatedAt.Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to insert risk factor configuration: %w", err)
	}
	return nil
}

// UpdateRiskFactor persists mutations of an existing configuration.
func (s *Store) UpdateRiskFactor(ctx context.Context, r *domain.RiskFactorConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID() == nil {
		return &domain.ValidationError{Field: "id", Message: "cannot update an unsaved risk factor configuration"}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE risk_factor_configurations
		SET percentage = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		r.Percentage().String(), boolInt(r.IsActive()),
		r.Audit().UpdatedAt.Format(tsLayout), r.ID().String())
	if err != nil {
		return fmt.Errorf("failed to update risk factor configuration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "risk factor configuration", ID: r.ID().String()}
	}
	return nil
}

// GetRiskFactor loads a configuration by id.
func (s *Store) GetRiskFactor(ctx context.Context, id uuid.UUID) (*domain.RiskFactorConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, riskFactorSelect+` WHERE id = ?`, id.String())
	r, err := scanRiskFactor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "risk factor configuration", ID: id.String()}
	}
	return r, err
}

// ListRiskFactors returns all configurations ordered by level then id.
func (s *Store) ListRiskFactors(ctx context.Context) ([]*domain.RiskFactorConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, riskFactorSelect+` ORDER BY level, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk factor configurations: %w", err)
	}
	defer rows.Close()
	return scanRiskFactors(rows)
}

// ActiveMatching implements domain.RiskFactorSource: active rules whose
// target matches any of the geography ids or the building type.
func (s *Store) ActiveMatching(ctx context.Context, countryID, countyID, cityID uuid.UUID, buildingType domain.BuildingType) ([]*domain.RiskFactorConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, riskFactorSelect+`
		WHERE active = 1 AND (
			(level = ? AND reference_id = ?) OR
			(level = ? AND reference_id = ?) OR
			(level = ? AND reference_id = ?) OR
			(level = ? AND building_type = ?)
		)`,
		string(domain.RiskLevelCountry), countryID.String(),
		string(domain.RiskLevelCounty), countyID.String(),
		string(domain.RiskLevelCity), cityID.String(),
		string(domain.RiskLevelBuildingType), string(buildingType))
	if err != nil {
		return nil, fmt.Errorf("failed to query matching risk factors: %w", err)
	}
	defer rows.Close()
	return scanRiskFactors(rows)
}

const riskFactorSelect = `
	SELECT id, level, reference_id, building_type, percentage, active, created_at, updated_at
	FROM risk_factor_configurations`

func scanRiskFactor(row rowScanner) (*domain.RiskFactorConfiguration, error) {
	var (
		idStr, level, pctStr   string
		refID, buildingType    sql.NullString
		active                 int
		createdStr, updatedStr string
	)
	if err := row.Scan(&idStr, &level, &refID, &buildingType, &pctStr,
		&active, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt risk factor id %q: %w", idStr, err)
	}
	pctDec, err := decimal.NewFromString(pctStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt risk factor percentage: %w", err)
	}
	pct, err := domain.NewRiskPercent(pctDec)
	if err != nil {
		return nil, fmt.Errorf("corrupt risk factor percentage: %w", err)
	}

	target := domain.RiskTarget{Level: domain.RiskLevel(level)}
	if refID.Valid {
		ref, err := uuid.Parse(refID.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt risk factor reference id: %w", err)
		}
		target.ReferenceID = &ref
	}
	if buildingType.Valid {
		bt := domain.BuildingType(buildingType.String)
		target.BuildingType = &bt
	}

	audit, err := scanAudit(createdStr, updatedStr)
	if err != nil {
		return nil, err
	}

	return domain.RestoreRiskFactorConfiguration(id, target, pct, active == 1, audit), nil
}

func scanRiskFactors(rows *sql.Rows) ([]*domain.RiskFactorConfiguration, error) {
	var out []*domain.RiskFactorConfiguration
	for rows.Next() {
		r, err := scanRiskFactor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// REFERENCE DATA - brokers and buildings
// =============================================================================

// Broker is the pricing-relevant slice of a broker record. Commission is
// the pre-resolved fractional percentage, nil when the broker earns none.
type Broker struct {
	ID         uuid.UUID
	Name       string
	Commission *decimal.Decimal
}

// Building locates a building for pricing.
type Building struct {
	ID             uuid.UUID
	Name           string
	CountryID      uuid.UUID
	CountyID       uuid.UUID
	CityID         uuid.UUID
	BuildingType   domain.BuildingType
	FloodZone      bool
	EarthquakeZone bool
}

// SaveBroker inserts or replaces a broker record.
func (s *Store) SaveBroker(ctx context.Context, b Broker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var commission sql.NullString
	if b.Commission != nil {
		commission = sql.NullString{String: b.Commission.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO brokers (id, name, commission) VALUES (?, ?, ?)`,
		b.ID.String(), b.Name, commission)
	if err != nil {
		return fmt.Errorf("failed to save broker: %w", err)
	}
	return nil
}

// GetBroker loads a broker by id.
func (s *Store) GetBroker(ctx context.Context, id uuid.UUID) (*Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		idStr, name string
		commission  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, commission FROM brokers WHERE id = ?`, id.String()).
		Scan(&idStr, &name, &commission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "broker", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load broker: %w", err)
	}

	b := &Broker{ID: id, Name: name}
	if commission.Valid {
		c, err := decimal.NewFromString(commission.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt broker commission: %w", err)
		}
		b.Commission = &c
	}
	return b, nil
}

// SaveBuilding inserts or replaces a building record.
func (s *Store) SaveBuilding(ctx context.Context, b Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO buildings (id, name, country_id, county_id, city_id,
			building_type, flood_zone, earthquake_zone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.Name, b.CountryID.String(), b.CountyID.String(), b.CityID.String(),
		string(b.BuildingType), boolInt(b.FloodZone), boolInt(b.EarthquakeZone))
	if err != nil {
		return fmt.Errorf("failed to save building: %w", err)
	}
	return nil
}

// GetBuilding loads a building by id.
func (s *Store) GetBuilding(ctx context.Context, id uuid.UUID) (*Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		idStr, name, countryStr, countyStr, cityStr, buildingType string
		floodZone, earthquakeZone                                 int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, country_id, county_id, city_id, building_type, flood_zone, earthquake_zone
		FROM buildings WHERE id = ?`, id.String()).
		Scan(&idStr, &name, &countryStr, &countyStr, &cityStr, &buildingType, &floodZone, &earthquakeZone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "building", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load building: %w", err)
	}

	b := &Building{
		ID:             id,
		Name:           name,
		BuildingType:   domain.BuildingType(buildingType),
		FloodZone:      floodZone == 1,
		EarthquakeZone: earthquakeZone == 1,
	}
	if b.CountryID, err = uuid.Parse(countryStr); err != nil {
		return nil, fmt.Errorf("corrupt building country id: %w", err)
	}
	if b.CountyID, err = uuid.Parse(countyStr); err != nil {
		return nil, fmt.Errorf("corrupt building county id: %w", err)
	}
	if b.CityID, err = uuid.Parse(cityStr); err != nil {
		return nil, fmt.Errorf("corrupt building city id: %w", err)
	}
	return b, nil
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

// SweepRun records one execution of the expiration sweep.
type SweepRun struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string
	Expired     int
	Skipped     int
	Failed      int
	Error       string
}

// SaveSweepRun inserts or updates a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed, runErr sql.NullString
	if run.CompletedAt != nil {
		completed = sql.NullString{String: run.CompletedAt.UTC().Format(tsLayout), Valid: true}
	}
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sweep_runs (id, started_at, completed_at, status,
			expired_count, skipped_count, failed_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(tsLayout), completed, run.Status,
		run.Expired, run.Skipped, run.Failed, runErr)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns sweep runs, most recent first.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, status, expired_count, skipped_count, failed_count, error
		FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	defer rows.Close()

	var out []SweepRun
	for rows.Next() {
		var (
			run               SweepRun
			startedStr        string
			completed, runErr sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedStr, &completed, &run.Status,
			&run.Expired, &run.Skipped, &run.Failed, &runErr); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(tsLayout, startedStr); err != nil {
			return nil, fmt.Errorf("corrupt sweep run timestamp: %w", err)
		}
		if completed.Valid {
			t, err := time.Parse(tsLayout, completed.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt sweep run timestamp: %w", err)
			}
			run.CompletedAt = &t
		}
		run.Error = runErr.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableDate(d *domain.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanAudit(created, updated string) (domain.AuditInfo, error) {
	c, err := time.Parse(tsLayout, created)
	if err != nil {
		return domain.AuditInfo{}, fmt.Errorf("corrupt created_at: %w", err)
	}
	u, err := time.Parse(tsLayout, updated)
	if err != nil {
		return domain.AuditInfo{}, fmt.Errorf("corrupt updated_at: %w", err)
	}
	return domain.AuditInfo{CreatedAt: c, UpdatedAt: u}, nil
}
