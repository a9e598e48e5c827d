package domain

import "time"

// AuditInfo tracks creation and last-modification instants on the
// configuration aggregates.
type AuditInfo struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newAuditInfo() AuditInfo {
	now := time.Now().UTC()
	return AuditInfo{CreatedAt: now, UpdatedAt: now}
}

func (a *AuditInfo) touch() {
	a.UpdatedAt = time.Now().UTC()
}
