package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CashPaymentRequest struct {
	// ReceivedAmount must cover the full remaining due; the surplus is change.
	ReceivedAmount decimal.Decimal `json:"received_amount" validate:"required"`
}

type PartialPaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=CASH CARD TRANSFER VOUCHER"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	// Method-specific metadata.
	TransferRef *string `json:"transfer_ref"`
	VoucherCode *string `json:"voucher_code"`
}

type FinalizePaymentRequest struct {
	// SkipInventoryDeduction completes the sale without touching stock
	// (e.g. service items); the per-item flags stay false.
	SkipInventoryDeduction bool `json:"skip_inventory_deduction"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// PaymentResponse reports the outcome of one payment application.
type PaymentResponse struct {
	Transaction  TransactionResponse `json:"transaction"`
	ChangeAmount decimal.Decimal     `json:"change_amount"`
}
