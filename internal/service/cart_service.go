package service

import (
	"context"
	"strings"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/money"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"
	"github.com/zolijavos/KGC-3-sub017/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartService owns the sale transaction from creation through item editing
// to void. Every item mutation recomputes and persists the document totals
// in the same database transaction, so Total is never stale.
type CartService interface {
	Create(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error)
	Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*dto.TransactionResponse, error)
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]dto.TransactionResponse, error)

	AddItem(ctx context.Context, tenantID, transactionID uuid.UUID, req dto.AddItemRequest) (*dto.TransactionResponse, error)
	UpdateItem(ctx context.Context, tenantID, transactionID, itemID uuid.UUID, req dto.UpdateItemRequest) (*dto.TransactionResponse, error)
	RemoveItem(ctx context.Context, tenantID, transactionID, itemID uuid.UUID) (*dto.TransactionResponse, error)
	SetCustomer(ctx context.Context, tenantID, transactionID uuid.UUID, req dto.SetCustomerRequest) (*dto.TransactionResponse, error)

	// Void cancels the transaction in any pre-void state: captured payments
	// are refunded first, deducted stock is restored, then the document is
	// marked VOIDED. Completed transactions stay on the session's ledger.
	Void(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, reason string) (*dto.TransactionResponse, error)
}

type cartService struct {
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	sequences    repository.SequenceRepository
	audit        repository.AuditRepository
	sessions     SessionService
	payments     PaymentService
	inventory    Inventory
}

func NewCartService(
	transactions repository.TransactionRepository,
	products repository.ProductRepository,
	sequences repository.SequenceRepository,
	audit repository.AuditRepository,
	sessions SessionService,
	payments PaymentService,
	inventory Inventory,
) CartService {
	return &cartService{
		transactions: transactions,
		products:     products,
		sequences:    sequences,
		audit:        audit,
		sessions:     sessions,
		payments:     payments,
		inventory:    inventory,
	}
}

func (s *cartService) Create(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, apperror.Validation("invalid session id")
	}
	sess, err := s.sessions.RequireOpen(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &model.SaleTransaction{
		TenantID:      tenantID,
		SessionID:     sess.ID,
		CustomerRef:   normalizeRef(req.CustomerRef),
		Status:        model.TxInProgress,
		PaymentStatus: model.PayPending,
		CreatedBy:     operatorID,
		CreatedAt:     now,
	}
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		value, err := s.sequences.Next(ctx, tx, tenantID, now.Year(), sequence.KindTransaction)
		if err != nil {
			return err
		}
		t.TransactionNumber = sequence.Format(sequence.KindTransaction, now.Year(), value)
		if err := s.transactions.Create(ctx, tx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "transaction",
			EntityID:   t.ID,
			Action:     "created",
			ActorID:    operatorID,
			Detail:     "session " + sess.SessionNumber,
		})
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*dto.TransactionResponse, error) {
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]dto.TransactionResponse, error) {
	txs, err := s.transactions.ListBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, *toTransactionResponse(&txs[i]))
	}
	return out, nil
}

func (s *cartService) AddItem(ctx context.Context, tenantID, transactionID uuid.UUID, req dto.AddItemRequest) (*dto.TransactionResponse, error) {
	t, err := s.requireMutable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apperror.Validation("invalid product id")
	}
	if !req.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity must be positive")
	}
	if req.DiscountPct.IsNegative() || req.DiscountPct.GreaterThan(hundredPct) {
		return nil, apperror.Validation("discount must be between 0 and 100 percent")
	}

	product, err := s.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	if !product.Active {
		return nil, apperror.Validation("product %s is inactive", product.SKU)
	}

	unitPrice := product.UnitPrice
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, apperror.Validation("unit price must not be negative")
		}
		unitPrice = *req.UnitPrice
	}
	taxRate := product.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if !money.ValidTaxRate(taxRate) {
		return nil, apperror.Validation("tax rate %d is not a legal VAT rate", taxRate)
	}

	var warehouseID *uuid.UUID
	if req.WarehouseID != nil {
		id, err := uuid.Parse(*req.WarehouseID)
		if err != nil {
			return nil, apperror.Validation("invalid warehouse id")
		}
		warehouseID = &id
	}

	line := money.ComputeLine(req.Quantity, unitPrice, taxRate, req.DiscountPct)
	item := &model.SaleItem{
		TransactionID: t.ID,
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      req.Quantity,
		UnitPrice:     unitPrice,
		TaxRate:       taxRate,
		DiscountPct:   req.DiscountPct,
		LineSubtotal:  line.Subtotal,
		LineTax:       line.Tax,
		LineTotal:     line.Total,
		Position:      len(t.Items) + 1,
	}

	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		if err := s.transactions.CreateItem(ctx, tx, item); err != nil {
			return err
		}
		t.Items = append(t.Items, *item)
		recomputeTotals(t)
		return mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction")
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) UpdateItem(ctx context.Context, tenantID, transactionID, itemID uuid.UUID, req dto.UpdateItemRequest) (*dto.TransactionResponse, error) {
	t, err := s.requireMutable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	idx := itemIndex(t, itemID)
	if idx < 0 {
		return nil, apperror.NotFound("item not found on transaction")
	}
	item := &t.Items[idx]

	if req.Quantity != nil {
		if !req.Quantity.IsPositive() {
			return nil, apperror.Validation("quantity must be positive")
		}
		item.Quantity = *req.Quantity
	}
	if req.DiscountPct != nil {
		if req.DiscountPct.IsNegative() || req.DiscountPct.GreaterThan(hundredPct) {
			return nil, apperror.Validation("discount must be between 0 and 100 percent")
		}
		item.DiscountPct = *req.DiscountPct
	}

	line := money.ComputeLine(item.Quantity, item.UnitPrice, item.TaxRate, item.DiscountPct)
	item.LineSubtotal = line.Subtotal
	item.LineTax = line.Tax
	item.LineTotal = line.Total

	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		if err := s.transactions.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		recomputeTotals(t)
		return mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction")
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) RemoveItem(ctx context.Context, tenantID, transactionID, itemID uuid.UUID) (*dto.TransactionResponse, error) {
	t, err := s.requireMutable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	idx := itemIndex(t, itemID)
	if idx < 0 {
		return nil, apperror.NotFound("item not found on transaction")
	}

	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		if err := s.transactions.DeleteItem(ctx, tx, itemID); err != nil {
			return err
		}
		t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
		recomputeTotals(t)
		return mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction")
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) SetCustomer(ctx context.Context, tenantID, transactionID uuid.UUID, req dto.SetCustomerRequest) (*dto.TransactionResponse, error) {
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	if t.Status == model.TxCompleted || t.Status == model.TxVoided {
		return nil, apperror.InvalidState("transaction %s is %s, customer can no longer change", t.TransactionNumber, t.Status)
	}

	t.CustomerRef = normalizeRef(req.CustomerRef)
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		return mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction")
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *cartService) Void(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, reason string) (*dto.TransactionResponse, error) {
	if len(strings.TrimSpace(reason)) < 5 {
		return nil, apperror.Validation("void reason is required")
	}
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	if t.Status == model.TxVoided {
		return nil, apperror.InvalidState("transaction %s is already voided", t.TransactionNumber)
	}

	// Card captures are reversed at the terminal before anything is written:
	// a void must never commit while captured money is still held outside.
	reversals, err := s.payments.ReverseCaptured(ctx, t)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		if len(t.Payments) > 0 && t.PaymentStatus != model.PayRefunded {
			if err := s.payments.RefundForVoid(ctx, tx, t, operatorID, reason, reversals); err != nil {
				return err
			}
			t.PaymentStatus = model.PayRefunded
		}

		restore := deductedLines(t)
		if len(restore) > 0 {
			if err := s.inventory.Restore(ctx, tx, tenantID, t.ID, "sale voided: "+reason, restore); err != nil {
				return err
			}
		}

		t.Status = model.TxVoided
		t.VoidReason = &reason
		t.VoidedBy = &operatorID
		t.VoidedAt = &now
		if err := mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "transaction",
			EntityID:   t.ID,
			Action:     "voided",
			ActorID:    operatorID,
			Detail:     reason,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_number", t.TransactionNumber).
		Str("reason", reason).
		Msg("transaction voided")
	return toTransactionResponse(t), nil
}

func (s *cartService) requireMutable(ctx context.Context, tenantID, transactionID uuid.UUID) (*model.SaleTransaction, error) {
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	if !t.Mutable() {
		return nil, apperror.InvalidState("transaction %s is %s, items can no longer change", t.TransactionNumber, t.Status)
	}
	return t, nil
}

var hundredPct = decimal.NewFromInt(100)

// recomputeTotals derives the document totals as sums of the already-rounded
// line amounts.
func recomputeTotals(t *model.SaleTransaction) {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := decimal.Zero
	total := decimal.Zero
	for i := range t.Items {
		it := &t.Items[i]
		line := money.ComputeLine(it.Quantity, it.UnitPrice, it.TaxRate, it.DiscountPct)
		subtotal = subtotal.Add(line.Subtotal)
		tax = tax.Add(line.Tax)
		discount = discount.Add(line.Discount)
		total = total.Add(line.Total)
	}
	t.Subtotal = subtotal
	t.TaxAmount = tax
	t.DiscountAmount = discount
	t.Total = total
}

func itemIndex(t *model.SaleTransaction, itemID uuid.UUID) int {
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func deductedLines(t *model.SaleTransaction) []InventoryLine {
	lines := make([]InventoryLine, 0, len(t.Items))
	for _, it := range t.Items {
		if it.InventoryDeducted {
			lines = append(lines, InventoryLine{
				ItemID:      it.ID,
				ProductID:   it.ProductID,
				WarehouseID: it.WarehouseID,
				Quantity:    it.Quantity,
			})
		}
	}
	return lines
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
