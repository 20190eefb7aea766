package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Z-report render states used by the async PDF worker.
const (
	RenderPending = "pending"
	RenderDone    = "rendered"
	RenderFailed  = "failed"
	// RenderAbandoned is terminal: the retry cron gave up and the job sits
	// in the dead letter queue for manual handling.
	RenderAbandoned = "abandoned"
)

// MethodTotal is one row of the per-payment-method breakdown.
type MethodTotal struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// TaxTotal is one row of the per-tax-rate breakdown.
type TaxTotal struct {
	Rate int64           `json:"rate"`
	Net  decimal.Decimal `json:"net"`
	Tax  decimal.Decimal `json:"tax"`
}

// MethodTotals stores the breakdown as a JSONB column.
type MethodTotals []MethodTotal

func (m MethodTotals) Value() (driver.Value, error) { return json.Marshal(m) }

func (m *MethodTotals) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("method totals: unexpected type %T", src)
	}
	return json.Unmarshal(b, m)
}

// TaxTotals stores the per-rate breakdown as a JSONB column.
type TaxTotals []TaxTotal

func (t TaxTotals) Value() (driver.Value, error) { return json.Marshal(t) }

func (t *TaxTotals) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("tax totals: unexpected type %T", src)
	}
	return json.Unmarshal(b, t)
}

// ZReport is the immutable end-of-day reconciliation snapshot, produced
// exactly once per session close. Only the approval fields and the render
// bookkeeping may be appended after creation.
type ZReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SessionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	SessionNumber string    `gorm:"type:varchar(20);not null"`
	LocationID    uuid.UUID `gorm:"type:uuid;not null"`
	OpenedAt      time.Time
	ClosedAt      time.Time

	OpeningBalance  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedBalance decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ClosingBalance  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Variance        decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// Provisional marks a report generated for a close that is waiting for
	// manager approval of an out-of-tolerance variance.
	Provisional bool `gorm:"not null;default:false"`

	TransactionCount int `gorm:"not null"`
	VoidCount        int `gorm:"not null"`

	MethodBreakdown MethodTotals `gorm:"type:jsonb"`
	TaxBreakdown    TaxTotals    `gorm:"type:jsonb"`

	OpenedBy uuid.UUID `gorm:"type:uuid;not null"`
	ClosedBy uuid.UUID `gorm:"type:uuid;not null"`

	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	ApproverNote *string
	ApprovedAt   *time.Time

	// Render bookkeeping for the async PDF/email worker.
	RenderStatus string `gorm:"type:varchar(10);not null;default:'pending'"`
	RenderError  *string
	RetryCount   int `gorm:"not null;default:0"`
	PDFPath      *string

	CreatedAt time.Time
}
