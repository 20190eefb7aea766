package service

import (
	"context"
	"errors"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"gorm.io/gorm"
)

// runTx executes fn inside a database transaction. A nil db runs fn with a
// nil tx, which lets unit tests exercise services against in-memory fakes.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// mapRepoErr translates repository sentinels into typed application errors.
func mapRepoErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("%s not found", entity)
	case errors.Is(err, repository.ErrStaleVersion):
		return apperror.Conflict("%s was modified concurrently, retry with fresh state", entity)
	default:
		return err
	}
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func toSessionResponse(s *model.CashRegisterSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		ID:              s.ID.String(),
		SessionNumber:   s.SessionNumber,
		LocationID:      s.LocationID.String(),
		Status:          s.Status,
		OpeningBalance:  s.OpeningBalance,
		ClosingBalance:  s.ClosingBalance,
		ExpectedBalance: s.ExpectedBalance,
		Variance:        s.Variance,
		VarianceNote:    s.VarianceNote,
		ApproverNote:    s.ApproverNote,
		OpenedAt:        fmtTime(s.OpenedAt),
		ClosedAt:        fmtTimePtr(s.ClosedAt),
	}
}

func toTransactionResponse(t *model.SaleTransaction) *dto.TransactionResponse {
	items := make([]dto.SaleItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, dto.SaleItemResponse{
			ID:                it.ID.String(),
			ProductID:         it.ProductID.String(),
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TaxRate:           it.TaxRate,
			DiscountPct:       it.DiscountPct,
			LineSubtotal:      it.LineSubtotal,
			LineTax:           it.LineTax,
			LineTotal:         it.LineTotal,
			InventoryDeducted: it.InventoryDeducted,
		})
	}
	payments := make([]dto.PaymentEntryResponse, 0, len(t.Payments))
	for _, p := range t.Payments {
		payments = append(payments, dto.PaymentEntryResponse{
			ID:     p.ID.String(),
			Method: p.Method,
			Amount: p.Amount,
		})
	}
	refunds := make([]dto.RefundEntryResponse, 0, len(t.Refunds))
	for _, r := range t.Refunds {
		refunds = append(refunds, dto.RefundEntryResponse{
			ID:        r.ID.String(),
			PaymentID: r.PaymentID.String(),
			Method:    r.Method,
			Amount:    r.Amount,
			Reason:    r.Reason,
		})
	}
	return &dto.TransactionResponse{
		ID:                t.ID.String(),
		TransactionNumber: t.TransactionNumber,
		SessionID:         t.SessionID.String(),
		CustomerRef:       t.CustomerRef,
		Status:            t.Status,
		PaymentStatus:     t.PaymentStatus,
		Subtotal:          t.Subtotal,
		TaxAmount:         t.TaxAmount,
		DiscountAmount:    t.DiscountAmount,
		Total:             t.Total,
		PaidAmount:        t.PaidAmount,
		ChangeAmount:      t.ChangeAmount,
		Items:             items,
		Payments:          payments,
		Refunds:           refunds,
		CreatedAt:         fmtTime(t.CreatedAt),
		CompletedAt:       fmtTimePtr(t.CompletedAt),
	}
}
