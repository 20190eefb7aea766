package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// CardDeclinedError is returned when the terminal reports a decline. It is a
// business outcome, not an infrastructure failure: the breaker does not trip
// on it and no payment is recorded.
type CardDeclinedError struct {
	Code    string
	Message string
}

func (e *CardDeclinedError) Error() string {
	return fmt.Sprintf("card declined (%s): %s", e.Code, e.Message)
}

// CardCaptureResult is the successful outcome of a capture call.
type CardCaptureResult struct {
	Reference string          `json:"reference"`
	LastFour  string          `json:"last_four"`
	Brand     string          `json:"brand"`
	Amount    decimal.Decimal `json:"amount"`
}

type captureRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type captureResponse struct {
	Result      string `json:"result"` // "approved" | "declined"
	Reference   string `json:"reference"`
	LastFour    string `json:"last_four"`
	Brand       string `json:"brand"`
	DeclineCode string `json:"decline_code"`
	DeclineText string `json:"decline_text"`
}

// CardTerminalClient talks to the payment terminal sidecar over HTTP. The
// sidecar owns the gateway protocol; this client only sees capture/reverse.
type CardTerminalClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewCardTerminalClient(baseURL string, cb *CircuitBreaker) *CardTerminalClient {
	return &CardTerminalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cb:         cb,
	}
}

// Breaker exposes the breaker state for the health endpoint.
func (c *CardTerminalClient) Breaker() *CircuitBreaker { return c.cb }

// Capture asks the terminal to capture amount. The idempotency key makes a
// timed-out attempt safely retryable: the sidecar returns the original result
// for a repeated key instead of charging twice.
func (c *CardTerminalClient) Capture(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string) (*CardCaptureResult, error) {
	var result *CardCaptureResult
	var declined *CardDeclinedError
	err := c.cb.Execute(func() error {
		resp, err := c.post(ctx, "/capture", idempotencyKey, captureRequest{Amount: amount, Currency: currency})
		if err != nil {
			return err
		}
		if resp.Result != "approved" {
			// A decline is a successful terminal round-trip — it must not
			// count as a breaker failure.
			declined = &CardDeclinedError{Code: resp.DeclineCode, Message: resp.DeclineText}
			return nil
		}
		result = &CardCaptureResult{
			Reference: resp.Reference,
			LastFour:  resp.LastFour,
			Brand:     resp.Brand,
			Amount:    amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if declined != nil {
		return nil, declined
	}
	return result, nil
}

// Reverse voids a previous capture by its reference.
func (c *CardTerminalClient) Reverse(ctx context.Context, reference string) error {
	return c.cb.Execute(func() error {
		_, err := c.post(ctx, "/reverse", "", map[string]string{"reference": reference})
		return err
	})
}

func (c *CardTerminalClient) post(ctx context.Context, path, idempotencyKey string, payload interface{}) (*captureResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("card terminal: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("card terminal: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card terminal: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card terminal: returned %d", resp.StatusCode)
	}

	var result captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("card terminal: decode response: %w", err)
	}
	return &result, nil
}
