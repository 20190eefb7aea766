package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	LocationID     string          `json:"location_id"     validate:"required,uuid"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"min=0"`
}

type CloseSessionRequest struct {
	SessionID      string          `json:"session_id"      validate:"required,uuid"`
	ClosingBalance decimal.Decimal `json:"closing_balance" validate:"min=0"`
	VarianceNote   *string         `json:"variance_note"`
}

type VarianceDecisionRequest struct {
	Note string `json:"note" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID              string           `json:"id"`
	SessionNumber   string           `json:"session_number"`
	LocationID      string           `json:"location_id"`
	Status          string           `json:"status"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	ClosingBalance  *decimal.Decimal `json:"closing_balance,omitempty"`
	ExpectedBalance *decimal.Decimal `json:"expected_balance,omitempty"`
	Variance        *decimal.Decimal `json:"variance,omitempty"`
	VarianceNote    *string          `json:"variance_note,omitempty"`
	ApproverNote    *string          `json:"approver_note,omitempty"`
	OpenedAt        string           `json:"opened_at"`
	ClosedAt        *string          `json:"closed_at,omitempty"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// CloseSessionResponse carries the session outcome plus the generated report.
type CloseSessionResponse struct {
	Session SessionResponse `json:"session"`
	ZReport ZReportResponse `json:"z_report"`
	// PendingApproval is true when the variance exceeded tolerance and a
	// manager must approve before the session is fully closed.
	PendingApproval bool `json:"pending_approval"`
}
