// Package apperror defines the typed error kinds surfaced by the POS core and
// the JSON envelope handlers return to clients. Internal details (stack traces,
// SQL errors) never leak through this package.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind classifies an error for both callers and the HTTP layer.
type Kind int

const (
	KindUnknown      Kind = iota
	KindNotFound          // entity id unknown
	KindInvalidState      // operation outside the allowed state-machine transition
	KindValidation        // out-of-range amount, illegal tax rate, non-positive quantity
	KindConflict          // duplicate natural key or concurrent modification
	KindExternal          // inventory deduction or card capture failed
	KindVariance          // closing variance exceeds tolerance — routes to approval
)

// ItemFailure reports one line item that an external capability rejected.
type ItemFailure struct {
	ItemID uuid.UUID `json:"item_id"`
	Reason string    `json:"reason"`
}

// Error is the typed error carried across the service layer.
type Error struct {
	Kind   Kind
	Detail string
	// Items is populated on KindExternal when only some line items failed,
	// so the caller can retry the failed lines only.
	Items []ItemFailure
	wrap  error
}

func (e *Error) Error() string {
	if e.wrap != nil {
		return e.Detail + ": " + e.wrap.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.wrap }

// Is makes errors.Is match on the error kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Detail: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

func External(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindExternal, Detail: fmt.Sprintf(format, args...), wrap: err}
}

// ExternalItems reports a partially failed capability call (per-item results).
func ExternalItems(items []ItemFailure, format string, args ...interface{}) *Error {
	return &Error{Kind: KindExternal, Detail: fmt.Sprintf(format, args...), Items: items}
}

func Variance(format string, args ...interface{}) *Error {
	return &Error{Kind: KindVariance, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from any error in the chain (KindUnknown otherwise).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindInvalidState:
		return http.StatusConflict
	case KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	case KindVariance:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// ── HTTP envelopes ────────────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx responses.
type APIError struct {
	Detail string        `json:"detail"`
	Items  []ItemFailure `json:"failed_items,omitempty"`
}

func New(msg string) *APIError { return &APIError{Detail: msg} }

// Envelope builds the response body for a service error.
func Envelope(err error) *APIError {
	var e *Error
	if errors.As(err, &e) {
		return &APIError{Detail: e.Detail, Items: e.Items}
	}
	return &APIError{Detail: "Internal server error"}
}

// ValidationError wraps multiple field errors from request binding.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
