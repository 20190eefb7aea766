package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	MethodCash     = "CASH"
	MethodCard     = "CARD"
	MethodTransfer = "TRANSFER"
	MethodVoucher  = "VOUCHER"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodVoucher:
		return true
	}
	return false
}

// SalePayment is one payment instrument application to a transaction.
// Payments are immutable ledger entries: they are never updated or deleted,
// reversals are recorded as linked PaymentRefund rows.
type SalePayment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method        string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// Method-specific metadata.
	CardReference *string `gorm:"type:varchar(64)"` // gateway capture reference
	CardLastFour  *string `gorm:"type:varchar(4)"`
	CardBrand     *string `gorm:"type:varchar(20)"`
	TransferRef   *string
	VoucherCode   *string

	CreatedAt time.Time
}

// PaymentRefund reverses a payment during void. The original payment row is
// kept untouched for the audit trail; the refund links back to it.
type PaymentRefund struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method        string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason        string          `gorm:"not null"`
	// Reference holds the gateway reversal reference for CARD refunds.
	Reference *string   `gorm:"type:varchar(64)"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}
