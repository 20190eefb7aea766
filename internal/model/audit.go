package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an append-only record of a state transition
// (open/suspend/resume/close/approve/reject/void/refund/finalize).
type AuditEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType string    `gorm:"type:varchar(20);not null"` // session | transaction | payment | zreport
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Action     string    `gorm:"type:varchar(30);not null"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`
	Detail     string
	CreatedAt  time.Time
}
