package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateTransactionRequest struct {
	SessionID   string  `json:"session_id"   validate:"required,uuid"`
	CustomerRef *string `json:"customer_ref" validate:"omitempty,min=1"`
}

type AddItemRequest struct {
	ProductID   string          `json:"product_id"   validate:"required,uuid"`
	WarehouseID *string         `json:"warehouse_id" validate:"omitempty,uuid"`
	Quantity    decimal.Decimal `json:"quantity"     validate:"required"`
	// UnitPrice overrides the catalog price when present (manager price edit).
	UnitPrice *decimal.Decimal `json:"unit_price"`
	// TaxRate overrides the product's default rate when present.
	TaxRate     *int64          `json:"tax_rate"`
	DiscountPct decimal.Decimal `json:"discount_pct" validate:"min=0,max=100"`
}

type UpdateItemRequest struct {
	Quantity    *decimal.Decimal `json:"quantity"`
	DiscountPct *decimal.Decimal `json:"discount_pct"`
}

type SetCustomerRequest struct {
	// CustomerRef nil detaches the customer.
	CustomerRef *string `json:"customer_ref"`
}

type VoidTransactionRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TaxRate           int64           `json:"tax_rate"`
	DiscountPct       decimal.Decimal `json:"discount_pct"`
	LineSubtotal      decimal.Decimal `json:"line_subtotal"`
	LineTax           decimal.Decimal `json:"line_tax"`
	LineTotal         decimal.Decimal `json:"line_total"`
	InventoryDeducted bool            `json:"inventory_deducted"`
}

type PaymentEntryResponse struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type RefundEntryResponse struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type TransactionResponse struct {
	ID                string                 `json:"id"`
	TransactionNumber string                 `json:"transaction_number"`
	SessionID         string                 `json:"session_id"`
	CustomerRef       *string                `json:"customer_ref,omitempty"`
	Status            string                 `json:"status"`
	PaymentStatus     string                 `json:"payment_status"`
	Subtotal          decimal.Decimal        `json:"subtotal"`
	TaxAmount         decimal.Decimal        `json:"tax_amount"`
	DiscountAmount    decimal.Decimal        `json:"discount_amount"`
	Total             decimal.Decimal        `json:"total"`
	PaidAmount        decimal.Decimal        `json:"paid_amount"`
	ChangeAmount      decimal.Decimal        `json:"change_amount"`
	Items             []SaleItemResponse     `json:"items"`
	Payments          []PaymentEntryResponse `json:"payments"`
	Refunds           []RefundEntryResponse  `json:"refunds,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	CompletedAt       *string                `json:"completed_at,omitempty"`
}
