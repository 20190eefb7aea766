package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session status values. PENDING_APPROVAL is the optional sub-state entered
// when the closing variance exceeds the configured tolerance; it still counts
// as "no longer active" for the one-active-session-per-location rule.
const (
	SessionOpen            = "OPEN"
	SessionSuspended       = "SUSPENDED"
	SessionPendingApproval = "PENDING_APPROVAL"
	SessionClosed          = "CLOSED"
)

// CashRegisterSession is one physical register's working period.
// Lifecycle: OPEN ⇄ SUSPENDED, then CLOSED exactly once (possibly through
// PENDING_APPROVAL). Closed sessions are historical record and never deleted.
type CashRegisterSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_tenant_location"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_tenant_location"`
	// SessionNumber is the formatted per-tenant, per-year sequence (e.g. CS-2026-00042).
	SessionNumber string `gorm:"type:varchar(20);uniqueIndex;not null"`
	Status        string `gorm:"type:varchar(20);not null;default:'OPEN'"`

	OpeningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Closing figures are set once at close and immutable afterwards.
	ClosingBalance  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedBalance *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Variance        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	VarianceNote    *string

	OpenedBy     uuid.UUID  `gorm:"type:uuid;not null"`
	ClosedBy     *uuid.UUID `gorm:"type:uuid"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	ApproverNote *string

	OpenedAt time.Time
	ClosedAt *time.Time

	// Version guards concurrent updates (optimistic locking).
	Version int `gorm:"not null;default:0"`
}

// Active reports whether the session still blocks opening another one
// on the same (tenant, location). A session awaiting variance approval has
// not released the register yet, so it counts as active too.
func (s *CashRegisterSession) Active() bool {
	return s.Status == SessionOpen || s.Status == SessionSuspended || s.Status == SessionPendingApproval
}
