package service

import (
	"context"
	"errors"
	"testing"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cartWith starts a transaction and rings up qty of a fresh product.
func cartWith(t *testing.T, e *testEnv, price, taxRate, stock, qty int64) (txID, productID uuid.UUID) {
	t.Helper()
	_, txID = newCart(t, e)
	productID = e.seedProduct(price, taxRate, stock)
	_, err := e.cart.AddItem(context.Background(), e.tenantID, txID, dto.AddItemRequest{
		ProductID: productID.String(),
		Quantity:  decimal.NewFromInt(qty),
	})
	require.NoError(t, err)
	return txID, productID
}

func TestCashPaymentWithChange(t *testing.T) {
	e := newTestEnv()
	txID, productID := cartWith(t, e, 1000, 27, 5, 2) // total 2540

	resp, err := e.payments.ProcessCash(context.Background(), e.tenantID, e.operator, txID, decimal.NewFromInt(3000))
	require.NoError(t, err)

	assert.True(t, resp.ChangeAmount.Equal(decimal.NewFromInt(460)), "change %s", resp.ChangeAmount)
	assert.Equal(t, model.TxCompleted, resp.Transaction.Status)
	assert.Equal(t, model.PayPaid, resp.Transaction.PaymentStatus)
	assert.True(t, resp.Transaction.PaidAmount.Equal(decimal.NewFromInt(2540)))

	// The payment row carries the due, never the tendered cash.
	require.Len(t, resp.Transaction.Payments, 1)
	assert.True(t, resp.Transaction.Payments[0].Amount.Equal(decimal.NewFromInt(2540)))

	// Stock deducted exactly once.
	assert.True(t, e.st.products[productID].StockQty.Equal(decimal.NewFromInt(3)))
	require.Len(t, resp.Transaction.Items, 1)
	assert.True(t, resp.Transaction.Items[0].InventoryDeducted)
}

func TestCashUnderpaymentRejected(t *testing.T) {
	e := newTestEnv()
	txID, _ := cartWith(t, e, 1000, 27, 5, 2)

	_, err := e.payments.ProcessCash(context.Background(), e.tenantID, e.operator, txID, decimal.NewFromInt(2000))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// Nothing was recorded.
	assert.Empty(t, e.st.payments)
}

func TestCashPaymentEmptyCart(t *testing.T) {
	e := newTestEnv()
	_, txID := newCart(t, e)

	_, err := e.payments.ProcessCash(context.Background(), e.tenantID, e.operator, txID, decimal.NewFromInt(1000))
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestCashPaymentIntoClosedSessionRejected(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	sessionID, txID := newCart(t, e)
	productID := e.seedProduct(1000, 27, 5)
	_, err := e.cart.AddItem(ctx, e.tenantID, txID, dto.AddItemRequest{
		ProductID: productID.String(),
		Quantity:  decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	// Drawer counted and closed with the sale still unpaid; the cash was
	// never part of the expected balance.
	closed, err := e.sessions.Close(ctx, e.tenantID, e.operator, dto.CloseSessionRequest{
		SessionID:      sessionID.String(),
		ClosingBalance: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	require.Equal(t, model.SessionClosed, closed.Session.Status)

	_, err = e.payments.ProcessCash(ctx, e.tenantID, e.operator, txID, decimal.NewFromInt(1270))
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Empty(t, e.st.payments)

	// Split tenders are shut out the same way.
	code := "GIFT-500"
	_, err = e.payments.AddPartial(ctx, e.tenantID, e.operator, txID, dto.PartialPaymentRequest{
		Method: model.MethodVoucher, Amount: decimal.NewFromInt(500), VoucherCode: &code,
	})
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestCardPayment(t *testing.T) {
	e := newTestEnv()
	txID, _ := cartWith(t, e, 1000, 27, 5, 2)

	resp, err := e.payments.ProcessCard(context.Background(), e.tenantID, e.operator, txID)
	require.NoError(t, err)

	assert.Equal(t, model.TxCompleted, resp.Transaction.Status)
	assert.True(t, resp.ChangeAmount.IsZero())
	require.Len(t, e.gateway.captures, 1)
	assert.True(t, e.gateway.captures[0].Equal(decimal.NewFromInt(2540)))
}

func TestCardDeclinedLeavesTransactionUntouched(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, _ := cartWith(t, e, 1000, 27, 5, 2)
	e.gateway.declineNext = true

	_, err := e.payments.ProcessCard(ctx, e.tenantID, e.operator, txID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindExternal, apperror.KindOf(err))

	got, err := e.cart.Get(ctx, e.tenantID, txID)
	require.NoError(t, err)
	assert.Empty(t, got.Payments)
	assert.True(t, got.PaidAmount.IsZero())
	assert.NotEqual(t, model.TxCompleted, got.Status)

	// Retrying after the decline works.
	_, err = e.payments.ProcessCard(ctx, e.tenantID, e.operator, txID)
	assert.NoError(t, err)
}

func TestCardTerminalUnreachable(t *testing.T) {
	e := newTestEnv()
	txID, _ := cartWith(t, e, 1000, 27, 5, 1)
	e.gateway.failNext = true

	_, err := e.payments.ProcessCard(context.Background(), e.tenantID, e.operator, txID)
	assert.Equal(t, apperror.KindExternal, apperror.KindOf(err))
	assert.Empty(t, e.gateway.captures)
}

func TestSplitTender(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, _ := cartWith(t, e, 1000, 27, 5, 2) // total 2540

	code := "GIFT-2000"
	resp, err := e.payments.AddPartial(ctx, e.tenantID, e.operator, txID, dto.PartialPaymentRequest{
		Method: model.MethodVoucher, Amount: decimal.NewFromInt(2000), VoucherCode: &code,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PayPartial, resp.Transaction.PaymentStatus)
	assert.Equal(t, model.TxPendingPayment, resp.Transaction.Status)

	// Cash tops up the rest: 600 tendered against 540 due.
	resp, err = e.payments.AddPartial(ctx, e.tenantID, e.operator, txID, dto.PartialPaymentRequest{
		Method: model.MethodCash, Amount: decimal.NewFromInt(600),
	})
	require.NoError(t, err)
	assert.True(t, resp.ChangeAmount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, model.PayPaid, resp.Transaction.PaymentStatus)
	// Split tenders never auto-complete, the operator finalizes explicitly.
	assert.Equal(t, model.TxPendingPayment, resp.Transaction.Status)

	final, err := e.payments.Finalize(ctx, e.tenantID, e.operator, txID, false)
	require.NoError(t, err)
	assert.Equal(t, model.TxCompleted, final.Status)
	assert.True(t, final.PaidAmount.Equal(decimal.NewFromInt(2540)))
	require.Len(t, final.Payments, 2)
}

func TestNonCashOverpayRejected(t *testing.T) {
	e := newTestEnv()
	txID, _ := cartWith(t, e, 1000, 27, 5, 1) // total 1270

	_, err := e.payments.AddPartial(context.Background(), e.tenantID, e.operator, txID, dto.PartialPaymentRequest{
		Method: model.MethodVoucher, Amount: decimal.NewFromInt(1500),
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestFinalizeGuards(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, _ := cartWith(t, e, 1000, 27, 5, 1)

	// Not fully paid yet.
	_, err := e.payments.Finalize(ctx, e.tenantID, e.operator, txID, false)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))

	_, err = e.payments.ProcessCash(ctx, e.tenantID, e.operator, txID, decimal.NewFromInt(1270))
	require.NoError(t, err)

	// Already completed: the guard makes double finalization harmless.
	_, err = e.payments.Finalize(ctx, e.tenantID, e.operator, txID, false)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestFinalizeSkipInventory(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, productID := cartWith(t, e, 1000, 27, 5, 2)

	_, err := e.payments.AddPartial(ctx, e.tenantID, e.operator, txID, dto.PartialPaymentRequest{
		Method: model.MethodTransfer, Amount: decimal.NewFromInt(2540),
	})
	require.NoError(t, err)

	resp, err := e.payments.Finalize(ctx, e.tenantID, e.operator, txID, true)
	require.NoError(t, err)

	assert.Equal(t, model.TxCompleted, resp.Status)
	assert.False(t, resp.Items[0].InventoryDeducted)
	assert.True(t, e.st.products[productID].StockQty.Equal(decimal.NewFromInt(5)))
}

func TestPartialInventoryFailureKeepsPaymentAndRetries(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	_, txID := newCart(t, e)
	inStock := e.seedProduct(1000, 27, 10)
	outOfStock := e.seedProduct(500, 27, 0)

	_, err := e.cart.AddItem(ctx, e.tenantID, txID, dto.AddItemRequest{
		ProductID: inStock.String(), Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	_, err = e.cart.AddItem(ctx, e.tenantID, txID, dto.AddItemRequest{
		ProductID: outOfStock.String(), Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	// Total 1270 + 635 = 1905. The payment lands, one deduction fails.
	_, err = e.payments.ProcessCash(ctx, e.tenantID, e.operator, txID, decimal.NewFromInt(1905))
	require.Error(t, err)
	assert.Equal(t, apperror.KindExternal, apperror.KindOf(err))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Items, 1)
	assert.Equal(t, "insufficient stock", appErr.Items[0].Reason)

	// Money is in, sale stays open for the scoped retry.
	got, err := e.cart.Get(ctx, e.tenantID, txID)
	require.NoError(t, err)
	assert.Equal(t, model.PayPaid, got.PaymentStatus)
	assert.NotEqual(t, model.TxCompleted, got.Status)
	assert.True(t, e.st.products[inStock].StockQty.Equal(decimal.NewFromInt(9)))

	// Restock and retry: only the failed line is deducted again.
	p := e.st.products[outOfStock]
	p.StockQty = decimal.NewFromInt(5)
	e.st.products[outOfStock] = p

	resp, err := e.payments.Finalize(ctx, e.tenantID, e.operator, txID, false)
	require.NoError(t, err)
	assert.Equal(t, model.TxCompleted, resp.Status)
	assert.True(t, e.st.products[inStock].StockQty.Equal(decimal.NewFromInt(9)), "already-deducted line must not deduct twice")
	assert.True(t, e.st.products[outOfStock].StockQty.Equal(decimal.NewFromInt(4)))
}

func TestRefundRecoversMissingVoidRefund(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, _ := cartWith(t, e, 1000, 27, 5, 1)

	_, err := e.payments.ProcessCash(ctx, e.tenantID, e.operator, txID, decimal.NewFromInt(1270))
	require.NoError(t, err)
	_, err = e.cart.Void(ctx, e.tenantID, e.manager, txID, "ring-up error on the receipt")
	require.NoError(t, err)

	paymentID := e.st.payments[0].ID

	// The void already wrote the refund row, a second one is refused.
	_, err = e.payments.Refund(ctx, e.tenantID, e.manager, paymentID, "settling crashed void")
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))

	// Simulate a void that crashed before its refund row was written.
	e.st.refunds = nil
	resp, err := e.payments.Refund(ctx, e.tenantID, e.manager, paymentID, "settling crashed void")
	require.NoError(t, err)
	require.Len(t, resp.Refunds, 1)
	assert.True(t, resp.Refunds[0].Amount.Equal(decimal.NewFromInt(1270)))
}

func TestRefundRequiresVoidedTransaction(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	txID, _ := cartWith(t, e, 1000, 27, 5, 1)
	_, err := e.payments.ProcessCash(ctx, e.tenantID, e.operator, txID, decimal.NewFromInt(1270))
	require.NoError(t, err)

	paymentID := e.st.payments[0].ID
	_, err = e.payments.Refund(ctx, e.tenantID, e.manager, paymentID, "no void happened")
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}
