package domain

// =============================================================================
// POLICY PERIOD - Closed coverage interval
// =============================================================================

// PolicyPeriod is the coverage interval of a policy. The end date is always
// strictly after the start date; construction is the only way to obtain one.
type PolicyPeriod struct {
	start Date
	end   Date
}

// NewPolicyPeriod validates that end is strictly after start.
func NewPolicyPeriod(start, end Date) (PolicyPeriod, error) {
	if start.IsZero() || end.IsZero() {
		return PolicyPeriod{}, &ValidationError{Field: "period", Message: "start and end dates are required"}
	}
	if !end.After(start) {
		return PolicyPeriod{}, ErrInvalidPeriod
	}
	return PolicyPeriod{start: start, end: end}, nil
}

func (p PolicyPeriod) Start() Date { return p.start }
func (p PolicyPeriod) End() Date   { return p.end }

// EndedBefore reports whether the coverage ended strictly before the given
// date. The expiration sweep uses this to select overdue policies.
func (p PolicyPeriod) EndedBefore(d Date) bool { return p.end.Before(d) }

func (p PolicyPeriod) String() string {
	return "[" + p.start.String() + ", " + p.end.String() + "]"
}

// =============================================================================
// EFFECTIVE PERIOD - Half-open validity window for fee configurations
// =============================================================================

// EffectivePeriod is the window during which a fee configuration may apply.
// The end is optional: a nil end means open-ended. EffectivePeriod is an
// immutable value; ChangeEnd produces a new period.
type EffectivePeriod struct {
	from Date
	to   *Date
}

// NewEffectivePeriod validates the window. A non-nil end must not be before
// the start.
func NewEffectivePeriod(from Date, to *Date) (EffectivePeriod, error) {
	if from.IsZero() {
		return EffectivePeriod{}, &ValidationError{Field: "effective_period", Message: "from date is required"}
	}
	if to != nil && to.Before(from) {
		return EffectivePeriod{}, ErrInvalidPeriod
	}
	return EffectivePeriod{from: from, to: copyDate(to)}, nil
}

func (p EffectivePeriod) From() Date { return p.from }

// To returns the end date, or nil when open-ended.
func (p EffectivePeriod) To() *Date { return copyDate(p.to) }

// IsOpenEnded reports whether the period has no end date.
func (p EffectivePeriod) IsOpenEnded() bool { return p.to == nil }

// Includes reports whether the date lies in [from, to], treating a nil end
// as unbounded.
func (p EffectivePeriod) Includes(d Date) bool {
	if d.Before(p.from) {
		return false
	}
	return p.to == nil || d.BeforeOrEqual(*p.to)
}

// ChangeEnd returns a new period with the given end date. The receiver is
// never mutated.
func (p EffectivePeriod) ChangeEnd(to Date) (EffectivePeriod, error) {
	return NewEffectivePeriod(p.from, &to)
}

func (p EffectivePeriod) String() string {
	if p.to == nil {
		return "[" + p.from.String() + ", )"
	}
	return "[" + p.from.String() + ", " + p.to.String() + "]"
}

func copyDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
