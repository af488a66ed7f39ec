//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrrjunior25/pdv-fiscal/internal/config"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

const (
	adminEmail    = "admin@e2e.test"
	adminPassword = "pdv-admin-2026"
)

type testEnv struct {
	server *httptest.Server
	token  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("pdvfiscal_test"),
		tcPostgres.WithUsername("pdv"),
		tcPostgres.WithPassword("pdv"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTExpirationHours:  8,
		JWTRefreshHours:     24,
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		SefazTimeoutSeconds: 5,
		XMLStoragePath:      t.TempDir(),
		PDFStoragePath:      t.TempDir(),
		CommissionBase:      "subtotal",
		WorkerPoolSize:      1,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL) // runs migrations
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Name: "Admin E2E", Email: adminEmail,
		PasswordHash: string(hash), Role: "admin", Active: true,
	}).Error)

	r := New(cfg, db, rdb, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	env := &testEnv{server: srv}

	var login dto.LoginResponse
	resp := env.do(t, "POST", "/v1/auth/login", map[string]string{
		"email": adminEmail, "password": adminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &login)
	env.token = login.Token
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestE2E_FullSaleCycle(t *testing.T) {
	env := setupTestEnv(t)

	// Product
	var product dto.ProductResponse
	resp := env.do(t, "POST", "/v1/products", map[string]any{
		"code": "7894900011517", "name": "Água Mineral 500ml",
		"ncm": "22011000", "cfop": "5102",
		"costPrice": "1.50", "salePrice": "5.00", "stock": 50, "minStock": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &product)

	// Open shift with 100 in the drawer
	var shift dto.ShiftResponse
	resp = env.do(t, "POST", "/v1/shifts", map[string]string{"openingCash": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &shift)
	require.Equal(t, "OPEN", shift.Status)

	// A second open for the same operator must hit the partial unique index
	resp = env.do(t, "POST", "/v1/shifts", map[string]string{"openingCash": "50"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Cash sale: 4 × 5.00 = 20.00
	var sale dto.SaleResponse
	resp = env.do(t, "POST", "/v1/sales", map[string]any{
		"items":    []map[string]any{{"productId": product.ID, "quantity": 4}},
		"payments": []map[string]any{{"method": "dinheiro", "amount": "20.00"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &sale)
	assert.Equal(t, "COMPLETED", sale.Status)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(20)))

	// Stock went down
	var after dto.ProductResponse
	resp = env.do(t, "GET", "/v1/products/"+product.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &after)
	assert.Equal(t, 46, after.Stock)

	// Live summary sees the cash sale in the drawer projection
	var summary dto.ShiftSummary
	resp = env.do(t, "GET", "/v1/shifts/"+shift.ID.String()+"/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &summary)
	assert.True(t, summary.ExpectedCash.Equal(decimal.NewFromInt(120)))

	// Blind close declaring 110 → discrepancy -10
	var closed dto.ShiftResponse
	resp = env.do(t, "POST", "/v1/shifts/"+shift.ID.String()+"/close", map[string]string{"closingCash": "110"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &closed)
	assert.Equal(t, "CLOSED", closed.Status)
	require.NotNil(t, closed.Discrepancy)
	assert.True(t, closed.Discrepancy.Equal(decimal.NewFromInt(-10)))
}

func TestE2E_CancelSaleRestoresStock(t *testing.T) {
	env := setupTestEnv(t)

	var product dto.ProductResponse
	resp := env.do(t, "POST", "/v1/products", map[string]any{
		"code": "001", "name": "Pão Francês",
		"costPrice": "0.50", "salePrice": "1.00", "stock": 30, "minStock": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &product)

	resp = env.do(t, "POST", "/v1/shifts", map[string]string{"openingCash": "0"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var sale dto.SaleResponse
	resp = env.do(t, "POST", "/v1/sales", map[string]any{
		"items":    []map[string]any{{"productId": product.ID, "quantity": 10}},
		"payments": []map[string]any{{"method": "debito", "amount": "10.00"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &sale)

	resp = env.do(t, "POST", "/v1/sales/"+sale.ID.String()+"/cancel", map[string]string{
		"reason": "Cliente desistiu da compra",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled dto.SaleResponse
	decodeJSON(t, resp, &cancelled)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	var after dto.ProductResponse
	resp = env.do(t, "GET", "/v1/products/"+product.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &after)
	assert.Equal(t, 30, after.Stock)
}
