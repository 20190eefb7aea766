//go:build integration

package e2e

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered cycles:
//   - full cash sale: login → open session → ring up → pay → close balanced
//   - void restores stock and refunds the payment
//   - closing variance over tolerance routes through manager approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zolijavos/KGC-3-sub017/internal/config"
	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/router"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server   *httptest.Server
	token    string // admin JWT
	tenantID uuid.UUID
	location uuid.UUID
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("pos_test"),
		tcPostgres.WithUsername("pos"),
		tcPostgres.WithPassword("pos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 8000,
		Env:                  "test",
		JWTSecret:            "test-secret-key",
		JWTExpirationHours:   8,
		JWTRefreshHours:      24,
		DatabaseURL:          pgURL,
		RedisURL:             rdURL,
		CardTerminalURL:      "http://localhost:9999", // cash-only flows below
		Currency:             "HUF",
		VarianceToleranceHUF: 200,
		WorkerPoolSize:       1,
		PDFStoragePath:       t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed an admin operator.
	tenantID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("pos-e2e-2026"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		TenantID:     tenantID,
		Username:     "admin.e2e",
		Name:         "Admin E2E",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	}).Error)

	cardClient := infra.NewCardTerminalClient(cfg.CardTerminalURL, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	r := router.New(cfg, db, rdb, cardClient)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{
			"tenant_id": tenantID.String(),
			"username":  "admin.e2e",
			"password":  "pos-e2e-2026",
		}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{
		server:   srv,
		token:    loginBody.AccessToken,
		tenantID: tenantID,
		location: uuid.New(),
	}
}

func (env *testEnv) createProduct(t *testing.T, price float64, stock int) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/products",
		jsonBody(t, map[string]any{
			"sku":              fmt.Sprintf("E2E-%s", uuid.NewString()[:8]),
			"name":             "Ásványvíz 500ml",
			"unit_price":       price,
			"default_tax_rate": 27,
			"stock_qty":        stock,
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

func (env *testEnv) openSession(t *testing.T, opening float64) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/sessions",
		jsonBody(t, map[string]any{
			"location_id":     env.location.String(),
			"opening_balance": opening,
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &session)
	return session.ID
}

// ringUpCash creates a transaction with one line and pays it in cash.
func (env *testEnv) ringUpCash(t *testing.T, sessionID, productID string, qty, tendered float64) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/transactions",
		jsonBody(t, map[string]any{"session_id": sessionID}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tx struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &tx)

	resp = do(t, env.server, "POST", "/v1/transactions/"+tx.ID+"/items",
		jsonBody(t, map[string]any{"product_id": productID, "quantity": qty}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/transactions/"+tx.ID+"/pay/cash",
		jsonBody(t, map[string]any{"received_amount": tendered}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return tx.ID
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_FullCashSaleCycle(t *testing.T) {
	env := setupTestEnv(t)

	productID := env.createProduct(t, 1000, 20)
	sessionID := env.openSession(t, 10000)

	env.ringUpCash(t, sessionID, productID, 2, 3000) // total 2540, change 460

	// Stock moved.
	prodResp := do(t, env.server, "GET", "/v1/products/"+productID, nil, env.token)
	require.Equal(t, http.StatusOK, prodResp.StatusCode)
	var prod struct {
		StockQty json.Number `json:"stock_qty"`
	}
	decodeJSON(t, prodResp, &prod)
	stock, err := prod.StockQty.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 18, stock, 0.001)

	// Drawer gains exactly the due: 10000 + 2540.
	closeResp := do(t, env.server, "POST", "/v1/sessions/close",
		jsonBody(t, map[string]any{"session_id": sessionID, "closing_balance": 12540.0}), env.token)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	var closed struct {
		PendingApproval bool `json:"pending_approval"`
		Session         struct {
			Status string `json:"status"`
		} `json:"session"`
		ZReport struct {
			Transactions int `json:"transaction_count"`
		} `json:"z_report"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.False(t, closed.PendingApproval)
	assert.Equal(t, "CLOSED", closed.Session.Status)
	assert.Equal(t, 1, closed.ZReport.Transactions)
}

func TestE2E_VoidRestoresStock(t *testing.T) {
	env := setupTestEnv(t)

	productID := env.createProduct(t, 1000, 10)
	sessionID := env.openSession(t, 5000)
	txID := env.ringUpCash(t, sessionID, productID, 1, 1270)

	voidResp := do(t, env.server, "POST", "/v1/transactions/"+txID+"/void",
		jsonBody(t, map[string]any{"reason": "customer changed their mind"}), env.token)
	require.Equal(t, http.StatusOK, voidResp.StatusCode)
	var voided struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	decodeJSON(t, voidResp, &voided)
	assert.Equal(t, "VOIDED", voided.Status)
	assert.Equal(t, "REFUNDED", voided.PaymentStatus)

	prodResp := do(t, env.server, "GET", "/v1/products/"+productID, nil, env.token)
	var prod struct {
		StockQty json.Number `json:"stock_qty"`
	}
	decodeJSON(t, prodResp, &prod)
	stock, err := prod.StockQty.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 10, stock, 0.001)
}

func TestE2E_VarianceApprovalCycle(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := env.openSession(t, 10000)

	// 500 over the expected drawer, tolerance is 200.
	closeResp := do(t, env.server, "POST", "/v1/sessions/close",
		jsonBody(t, map[string]any{
			"session_id":      sessionID,
			"closing_balance": 10500.0,
			"variance_note":   "extra banknote found in the tray",
		}), env.token)
	require.Equal(t, http.StatusAccepted, closeResp.StatusCode)
	var closed struct {
		PendingApproval bool `json:"pending_approval"`
		Session         struct {
			Status string `json:"status"`
		} `json:"session"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.True(t, closed.PendingApproval)
	assert.Equal(t, "PENDING_APPROVAL", closed.Session.Status)

	approveResp := do(t, env.server, "POST", "/v1/sessions/"+sessionID+"/approve",
		jsonBody(t, map[string]any{"note": "recount verified by shift lead"}), env.token)
	require.Equal(t, http.StatusOK, approveResp.StatusCode)
	var approved struct {
		Status string `json:"status"`
	}
	decodeJSON(t, approveResp, &approved)
	assert.Equal(t, "CLOSED", approved.Status)

	// The register is free again.
	reopenResp := do(t, env.server, "POST", "/v1/sessions",
		jsonBody(t, map[string]any{
			"location_id":     env.location.String(),
			"opening_balance": 10500.0,
		}), env.token)
	require.Equal(t, http.StatusCreated, reopenResp.StatusCode)
	reopenResp.Body.Close()
}
