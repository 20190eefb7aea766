package service

import (
	"context"
	"errors"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService applies payment instruments to sale transactions and drives
// the payment state machine PENDING → PARTIAL → PAID (⇄ REFUNDED on void).
// Payments are append-only rows; the aggregate paid amount lives on the
// transaction and is updated in the same database transaction as the row.
type PaymentService interface {
	// ProcessCash takes the tendered cash, applies exactly the remaining due
	// and returns the surplus as change. Underpayment is rejected; use
	// AddPartial for split tenders.
	ProcessCash(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, received decimal.Decimal) (*dto.PaymentResponse, error)
	// ProcessCard captures the full remaining due at the terminal sidecar,
	// then records the payment. A declined or unreachable terminal leaves
	// the transaction untouched.
	ProcessCard(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID) (*dto.PaymentResponse, error)
	// AddPartial records one split-tender payment without finalizing.
	// Non-cash methods must not exceed the remaining due.
	AddPartial(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, req dto.PartialPaymentRequest) (*dto.PaymentResponse, error)
	// Finalize completes a fully paid transaction: inventory is deducted at
	// most once per item and the status becomes COMPLETED. Partial inventory
	// failures keep the transaction open for a scoped retry.
	Finalize(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, skipInventory bool) (*dto.TransactionResponse, error)
	// Refund records a refund for one payment of a voided transaction whose
	// refund row is missing (crash recovery); normal voids refund in-line.
	Refund(ctx context.Context, tenantID, actorID, paymentID uuid.UUID, reason string) (*dto.TransactionResponse, error)

	// ReverseCaptured reverses all card captures of the transaction at the
	// terminal and returns the reversal references keyed by payment id.
	// Called by the void flow before any database write.
	ReverseCaptured(ctx context.Context, t *model.SaleTransaction) (map[uuid.UUID]*string, error)
	// RefundForVoid writes a full refund row for every non-refunded payment
	// inside the caller's database transaction.
	RefundForVoid(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction, actorID uuid.UUID, reason string, reversals map[uuid.UUID]*string) error
}

type paymentService struct {
	transactions repository.TransactionRepository
	payments     repository.PaymentRepository
	audit        repository.AuditRepository
	inventory    Inventory
	sessions     SessionService
	gateway      CardGateway
	currency     string
}

func NewPaymentService(
	transactions repository.TransactionRepository,
	payments repository.PaymentRepository,
	audit repository.AuditRepository,
	inventory Inventory,
	sessions SessionService,
	gateway CardGateway,
	currency string,
) PaymentService {
	return &paymentService{
		transactions: transactions,
		payments:     payments,
		audit:        audit,
		inventory:    inventory,
		sessions:     sessions,
		gateway:      gateway,
		currency:     currency,
	}
}

func (s *paymentService) ProcessCash(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, received decimal.Decimal) (*dto.PaymentResponse, error) {
	t, due, err := s.requirePayable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if received.LessThan(due) {
		return nil, apperror.Validation("received %s does not cover the remaining due %s", received.StringFixed(0), due.StringFixed(0))
	}
	change := received.Sub(due)

	var failures []apperror.ItemFailure
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		payment := &model.SalePayment{
			TransactionID: t.ID,
			Method:        model.MethodCash,
			Amount:        due,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.payments.CreatePayment(ctx, tx, payment); err != nil {
			return err
		}
		t.Payments = append(t.Payments, *payment)
		applyPayment(t, due)
		t.ChangeAmount = t.ChangeAmount.Add(change)

		failures = s.deductInventory(ctx, tx, t, false)
		if len(failures) == 0 {
			completeSale(t)
		}
		if err := mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "payment",
			EntityID:   payment.ID,
			Action:     "cash_payment",
			ActorID:    operatorID,
			Detail:     "amount " + due.StringFixed(0) + ", change " + change.StringFixed(0),
		})
	})
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, apperror.ExternalItems(failures, "payment recorded but inventory deduction failed for %d item(s)", len(failures))
	}
	return &dto.PaymentResponse{Transaction: *toTransactionResponse(t), ChangeAmount: change}, nil
}

func (s *paymentService) ProcessCard(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID) (*dto.PaymentResponse, error) {
	t, due, err := s.requirePayable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	// Capture happens outside the database transaction: the terminal is the
	// slow, fallible party and must not hold a database transaction open.
	capture, err := s.gateway.Capture(ctx, due, s.currency, uuid.NewString())
	if err != nil {
		var declined *infra.CardDeclinedError
		if errors.As(err, &declined) {
			return nil, apperror.External(err, "card declined: %s", declined.Message)
		}
		return nil, apperror.External(err, "card terminal unavailable")
	}

	var failures []apperror.ItemFailure
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		payment := &model.SalePayment{
			TransactionID: t.ID,
			Method:        model.MethodCard,
			Amount:        due,
			CardReference: &capture.Reference,
			CardLastFour:  &capture.LastFour,
			CardBrand:     &capture.Brand,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.payments.CreatePayment(ctx, tx, payment); err != nil {
			return err
		}
		t.Payments = append(t.Payments, *payment)
		applyPayment(t, due)

		failures = s.deductInventory(ctx, tx, t, false)
		if len(failures) == 0 {
			completeSale(t)
		}
		if err := mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "payment",
			EntityID:   payment.ID,
			Action:     "card_payment",
			ActorID:    operatorID,
			Detail:     "amount " + due.StringFixed(0) + ", ref " + capture.Reference,
		})
	})
	if err != nil {
		// The money is captured but nothing was recorded: reverse it so the
		// customer is not charged for a sale that does not exist.
		if rerr := s.gateway.Reverse(ctx, capture.Reference); rerr != nil {
			log.Error().Err(rerr).
				Str("capture_reference", capture.Reference).
				Msg("card capture orphaned: record failed and reversal failed")
		}
		return nil, err
	}
	if len(failures) > 0 {
		return nil, apperror.ExternalItems(failures, "payment recorded but inventory deduction failed for %d item(s)", len(failures))
	}
	return &dto.PaymentResponse{Transaction: *toTransactionResponse(t), ChangeAmount: decimal.Zero}, nil
}

func (s *paymentService) AddPartial(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, req dto.PartialPaymentRequest) (*dto.PaymentResponse, error) {
	if !model.ValidMethod(req.Method) {
		return nil, apperror.Validation("unknown payment method %q", req.Method)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("payment amount must be positive")
	}
	t, due, err := s.requirePayable(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}

	applied := req.Amount
	change := decimal.Zero
	if req.Amount.GreaterThan(due) {
		// Only cash can tender more than due; the surplus is change.
		if req.Method != model.MethodCash {
			return nil, apperror.Validation("%s payment of %s exceeds the remaining due %s", req.Method, req.Amount.StringFixed(0), due.StringFixed(0))
		}
		applied = due
		change = req.Amount.Sub(due)
	}

	var capture *infra.CardCaptureResult
	if req.Method == model.MethodCard {
		capture, err = s.gateway.Capture(ctx, applied, s.currency, uuid.NewString())
		if err != nil {
			var declined *infra.CardDeclinedError
			if errors.As(err, &declined) {
				return nil, apperror.External(err, "card declined: %s", declined.Message)
			}
			return nil, apperror.External(err, "card terminal unavailable")
		}
	}

	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		payment := &model.SalePayment{
			TransactionID: t.ID,
			Method:        req.Method,
			Amount:        applied,
			TransferRef:   req.TransferRef,
			VoucherCode:   req.VoucherCode,
			CreatedAt:     time.Now().UTC(),
		}
		if capture != nil {
			payment.CardReference = &capture.Reference
			payment.CardLastFour = &capture.LastFour
			payment.CardBrand = &capture.Brand
		}
		if err := s.payments.CreatePayment(ctx, tx, payment); err != nil {
			return err
		}
		t.Payments = append(t.Payments, *payment)
		applyPayment(t, applied)
		t.ChangeAmount = t.ChangeAmount.Add(change)
		if err := mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "payment",
			EntityID:   payment.ID,
			Action:     "partial_payment",
			ActorID:    operatorID,
			Detail:     req.Method + " " + applied.StringFixed(0),
		})
	})
	if err != nil {
		if capture != nil {
			if rerr := s.gateway.Reverse(ctx, capture.Reference); rerr != nil {
				log.Error().Err(rerr).
					Str("capture_reference", capture.Reference).
					Msg("card capture orphaned: record failed and reversal failed")
			}
		}
		return nil, err
	}
	return &dto.PaymentResponse{Transaction: *toTransactionResponse(t), ChangeAmount: change}, nil
}

func (s *paymentService) Finalize(ctx context.Context, tenantID, operatorID, transactionID uuid.UUID, skipInventory bool) (*dto.TransactionResponse, error) {
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	switch t.Status {
	case model.TxCompleted:
		return nil, apperror.InvalidState("transaction %s is already completed", t.TransactionNumber)
	case model.TxVoided:
		return nil, apperror.InvalidState("transaction %s is voided", t.TransactionNumber)
	}
	if len(t.Items) == 0 {
		return nil, apperror.InvalidState("transaction %s has no items", t.TransactionNumber)
	}
	if t.PaidAmount.LessThan(t.Total) {
		return nil, apperror.InvalidState("transaction %s is not fully paid (%s of %s)", t.TransactionNumber, t.PaidAmount.StringFixed(0), t.Total.StringFixed(0))
	}

	var failures []apperror.ItemFailure
	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		failures = s.deductInventory(ctx, tx, t, skipInventory)
		if len(failures) > 0 {
			// Commit the flags of the items that did deduct; the retry only
			// needs to cover the failed ones.
			return nil
		}
		completeSale(t)
		if err := mapRepoErr(s.transactions.Update(ctx, tx, t), "transaction"); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "transaction",
			EntityID:   t.ID,
			Action:     "finalized",
			ActorID:    operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, apperror.ExternalItems(failures, "inventory deduction failed for %d item(s), transaction left open for retry", len(failures))
	}
	return toTransactionResponse(t), nil
}

func (s *paymentService) Refund(ctx context.Context, tenantID, actorID, paymentID uuid.UUID, reason string) (*dto.TransactionResponse, error) {
	payment, err := s.payments.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, mapRepoErr(err, "payment")
	}
	t, err := s.transactions.FindByID(ctx, tenantID, payment.TransactionID)
	if err != nil {
		return nil, mapRepoErr(err, "transaction")
	}
	if t.Status != model.TxVoided {
		return nil, apperror.InvalidState("transaction %s is not voided, refunds only settle voided sales", t.TransactionNumber)
	}
	for _, r := range t.Refunds {
		if r.PaymentID == paymentID {
			return nil, apperror.InvalidState("payment is already refunded")
		}
	}

	var reference *string
	if payment.Method == model.MethodCard && payment.CardReference != nil {
		if err := s.gateway.Reverse(ctx, *payment.CardReference); err != nil {
			return nil, apperror.External(err, "card reversal failed")
		}
		reference = payment.CardReference
	}

	err = runTx(ctx, s.transactions.DB(), func(tx *gorm.DB) error {
		refund := &model.PaymentRefund{
			PaymentID:     payment.ID,
			TransactionID: t.ID,
			Method:        payment.Method,
			Amount:        payment.Amount,
			Reason:        reason,
			Reference:     reference,
			CreatedBy:     actorID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.payments.CreateRefund(ctx, tx, refund); err != nil {
			return err
		}
		t.Refunds = append(t.Refunds, *refund)
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "payment",
			EntityID:   payment.ID,
			Action:     "refunded",
			ActorID:    actorID,
			Detail:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(t), nil
}

func (s *paymentService) ReverseCaptured(ctx context.Context, t *model.SaleTransaction) (map[uuid.UUID]*string, error) {
	refunded := map[uuid.UUID]bool{}
	for _, r := range t.Refunds {
		refunded[r.PaymentID] = true
	}
	reversals := map[uuid.UUID]*string{}
	for i := range t.Payments {
		p := &t.Payments[i]
		if p.Method != model.MethodCard || p.CardReference == nil || refunded[p.ID] {
			continue
		}
		if err := s.gateway.Reverse(ctx, *p.CardReference); err != nil {
			return nil, apperror.External(err, "card reversal failed, void aborted")
		}
		reversals[p.ID] = p.CardReference
	}
	return reversals, nil
}

func (s *paymentService) RefundForVoid(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction, actorID uuid.UUID, reason string, reversals map[uuid.UUID]*string) error {
	refunded := map[uuid.UUID]bool{}
	for _, r := range t.Refunds {
		refunded[r.PaymentID] = true
	}
	now := time.Now().UTC()
	for i := range t.Payments {
		p := &t.Payments[i]
		if refunded[p.ID] {
			continue
		}
		refund := &model.PaymentRefund{
			PaymentID:     p.ID,
			TransactionID: t.ID,
			Method:        p.Method,
			Amount:        p.Amount,
			Reason:        reason,
			Reference:     reversals[p.ID],
			CreatedBy:     actorID,
			CreatedAt:     now,
		}
		if err := s.payments.CreateRefund(ctx, tx, refund); err != nil {
			return err
		}
		t.Refunds = append(t.Refunds, *refund)
	}
	return nil
}

// requirePayable loads the transaction and checks it can accept payments.
// The owning session must still be OPEN: once a session closes (or is
// suspended) its expected cash is fixed, so money taken afterwards could
// never reconcile against the drawer.
func (s *paymentService) requirePayable(ctx context.Context, tenantID, transactionID uuid.UUID) (*model.SaleTransaction, decimal.Decimal, error) {
	t, err := s.transactions.FindByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, decimal.Zero, mapRepoErr(err, "transaction")
	}
	if _, err := s.sessions.RequireOpen(ctx, tenantID, t.SessionID); err != nil {
		return nil, decimal.Zero, err
	}
	if t.Status != model.TxInProgress && t.Status != model.TxPendingPayment {
		return nil, decimal.Zero, apperror.InvalidState("transaction %s is %s, it cannot accept payments", t.TransactionNumber, t.Status)
	}
	if len(t.Items) == 0 || !t.Total.IsPositive() {
		return nil, decimal.Zero, apperror.InvalidState("transaction %s has no payable amount", t.TransactionNumber)
	}
	due := t.RemainingDue()
	if due.IsZero() {
		return nil, decimal.Zero, apperror.InvalidState("transaction %s is fully paid, finalize it instead", t.TransactionNumber)
	}
	return t, due, nil
}

// applyPayment moves the aggregate paid amount and the two status machines.
func applyPayment(t *model.SaleTransaction, amount decimal.Decimal) {
	t.PaidAmount = t.PaidAmount.Add(amount)
	if t.Status == model.TxInProgress {
		t.Status = model.TxPendingPayment
	}
	if t.PaidAmount.GreaterThanOrEqual(t.Total) {
		t.PaymentStatus = model.PayPaid
	} else {
		t.PaymentStatus = model.PayPartial
	}
}

func completeSale(t *model.SaleTransaction) {
	now := time.Now().UTC()
	t.Status = model.TxCompleted
	t.CompletedAt = &now
}

// deductInventory runs the at-most-once deduction for every item that has
// not been deducted yet and returns the per-item failures. Successful items
// are flagged inside the same database transaction, so a retry after a
// partial failure touches only what is still pending.
func (s *paymentService) deductInventory(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction, skip bool) []apperror.ItemFailure {
	if skip {
		return nil
	}
	lines := make([]InventoryLine, 0, len(t.Items))
	for _, it := range t.Items {
		if it.InventoryDeducted {
			continue
		}
		lines = append(lines, InventoryLine{
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			WarehouseID: it.WarehouseID,
			Quantity:    it.Quantity,
		})
	}
	if len(lines) == 0 {
		return nil
	}

	var failures []apperror.ItemFailure
	for _, res := range s.inventory.Deduct(ctx, tx, t.TenantID, t.ID, lines) {
		if !res.OK {
			failures = append(failures, apperror.ItemFailure{ItemID: res.ItemID, Reason: res.Reason})
			continue
		}
		if err := s.transactions.MarkItemDeducted(ctx, tx, res.ItemID); err != nil {
			failures = append(failures, apperror.ItemFailure{ItemID: res.ItemID, Reason: "flag update failed"})
			continue
		}
		for i := range t.Items {
			if t.Items[i].ID == res.ItemID {
				t.Items[i].InventoryDeducted = true
			}
		}
	}
	return failures
}
