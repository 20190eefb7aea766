package service

import (
	"context"

	"github.com/zolijavos/KGC-3-sub017/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryLine identifies one sale item to deduct or restore.
type InventoryLine struct {
	ItemID      uuid.UUID
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	Quantity    decimal.Decimal
}

// DeductionResult is the per-item outcome of an inventory deduction.
type DeductionResult struct {
	ItemID uuid.UUID
	OK     bool
	Reason string
}

// Inventory is the stock capability consumed by the payment engine. Deduct
// reports per-item success/failure so a retry can target only the failed
// lines; it never fails the whole batch because of one item.
type Inventory interface {
	Deduct(ctx context.Context, tx *gorm.DB, tenantID, referenceID uuid.UUID, lines []InventoryLine) []DeductionResult
	Restore(ctx context.Context, tx *gorm.DB, tenantID, referenceID uuid.UUID, reason string, lines []InventoryLine) error
}

// CardGateway is the card-payment capability: capture and reverse only, the
// wire protocol stays behind the terminal sidecar.
type CardGateway interface {
	Capture(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string) (*infra.CardCaptureResult, error)
	Reverse(ctx context.Context, reference string) error
}

// ReportQueue hands rendered-report jobs to the async worker pool. A nil
// queue is tolerated (tests, degraded mode) and simply skips enqueueing.
type ReportQueue interface {
	EnqueueZReportRender(ctx context.Context, zreportID uuid.UUID) error
}
