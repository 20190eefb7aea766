package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction status values.
const (
	TxInProgress     = "IN_PROGRESS"
	TxPendingPayment = "PENDING_PAYMENT"
	TxCompleted      = "COMPLETED"
	TxVoided         = "VOIDED"
)

// Payment status values for SaleTransaction.PaymentStatus.
const (
	PayPending  = "PENDING"
	PayPartial  = "PARTIAL"
	PayPaid     = "PAID"
	PayRefunded = "REFUNDED"
)

// SaleTransaction is one checkout document, owned by exactly one session.
// Total always equals the sum of line totals; it is recomputed and written
// atomically with every item mutation.
type SaleTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index"`
	// TransactionNumber is the formatted per-tenant, per-year sequence (e.g. TR-2026-00317).
	TransactionNumber string `gorm:"type:varchar(20);uniqueIndex;not null"`

	// CustomerRef is an optional free-form customer reference, attachable and
	// detachable at any pre-COMPLETED state.
	CustomerRef *string

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Status        string          `gorm:"type:varchar(20);not null;default:'IN_PROGRESS'"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	VoidedAt   *time.Time
	VoidedBy   *uuid.UUID `gorm:"type:uuid"`
	VoidReason *string

	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	CompletedAt *time.Time

	Version int `gorm:"not null;default:0"`

	Items    []SaleItem      `gorm:"foreignKey:TransactionID"`
	Payments []SalePayment   `gorm:"foreignKey:TransactionID"`
	Refunds  []PaymentRefund `gorm:"foreignKey:TransactionID"`
}

// Mutable reports whether line items may still be added or changed.
func (t *SaleTransaction) Mutable() bool { return t.Status == TxInProgress }

// RemainingDue is total − paid, floored at zero.
func (t *SaleTransaction) RemainingDue() decimal.Decimal {
	due := t.Total.Sub(t.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// SaleItem is one ordered line on a sale transaction. Line amounts are
// rounded to whole HUF at the line level; document totals sum rounded lines.
type SaleItem struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID  `gorm:"type:uuid;not null"`
	WarehouseID   *uuid.UUID `gorm:"type:uuid"`

	// Quantity is > 0; fractional quantities are allowed (e.g. 0.5 kg).
	Quantity  decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// TaxRate is one of the legal VAT rates: 0, 5, 18, 27.
	TaxRate     int64           `gorm:"not null"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null"`

	LineSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTax      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// InventoryDeducted makes finalization retries idempotent: deduction runs
	// at most once per item.
	InventoryDeducted bool `gorm:"not null;default:false"`

	Position  int `gorm:"not null"`
	CreatedAt time.Time
}
