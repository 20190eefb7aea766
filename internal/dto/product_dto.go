package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	SKU            string          `json:"sku"              validate:"required,min=1"`
	Name           string          `json:"name"             validate:"required,min=1"`
	UnitPrice      decimal.Decimal `json:"unit_price"       validate:"required"`
	DefaultTaxRate int64           `json:"default_tax_rate" validate:"oneof=0 5 18 27"`
	StockQty       decimal.Decimal `json:"stock_qty"        validate:"min=0"`
}

type ProductResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DefaultTaxRate int64           `json:"default_tax_rate"`
	StockQty       decimal.Decimal `json:"stock_qty"`
	Active         bool            `json:"active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
