package dto

import (
	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/shopspring/decimal"
)

type ZReportResponse struct {
	ID              string              `json:"id"`
	SessionID       string              `json:"session_id"`
	SessionNumber   string              `json:"session_number"`
	OpenedAt        string              `json:"opened_at"`
	ClosedAt        string              `json:"closed_at"`
	OpeningBalance  decimal.Decimal     `json:"opening_balance"`
	ExpectedBalance decimal.Decimal     `json:"expected_balance"`
	ClosingBalance  decimal.Decimal     `json:"closing_balance"`
	Variance        decimal.Decimal     `json:"variance"`
	Provisional     bool                `json:"provisional"`
	Transactions    int                 `json:"transaction_count"`
	Voids           int                 `json:"void_count"`
	MethodBreakdown []model.MethodTotal `json:"method_breakdown"`
	TaxBreakdown    []model.TaxTotal    `json:"tax_breakdown"`
	ApproverNote    *string             `json:"approver_note,omitempty"`
	PDFUrl          *string             `json:"pdf_url,omitempty"`
}
