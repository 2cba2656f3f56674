package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	"fintrack/internal/ledger/memory"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testNow    = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type stubSource struct {
	calls   int
	horizon int
	err     error
}

func (s *stubSource) Fetch(_ context.Context, _ string, horizon int) ([]forecast.Point, error) {
	s.calls++
	s.horizon = horizon
	if s.err != nil {
		return nil, s.err
	}
	points := make([]forecast.Point, horizon)
	for i := range points {
		day := testNow.AddDate(0, 0, horizon-i)
		points[i] = forecast.Point{Date: day, Predicted: 10, Lower: 5, Upper: 15}
	}
	return points, nil
}

type fixture struct {
	handler http.Handler
	source  *stubSource
	store   *memory.Store
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	verifier, err := auth.NewVerifier(auth.Config{Secret: testSecret, Now: func() time.Time { return testNow }})
	require.NoError(t, err)

	store := memory.New()
	source := &stubSource{}
	n := 0
	svc := services.NewTransactionService(store,
		services.WithForecaster(forecast.NewAdapter(source, forecast.WithMaxHorizon(365))),
		services.WithClock(func() time.Time { return testNow }),
		services.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		}),
	)

	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.Config{Output: io.Discard})
	}
	srv := NewServer(":0", svc, verifier, cfg)
	return &fixture{handler: srv.Handler, source: source, store: store}
}

func token(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func (f *fixture) do(t *testing.T, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user, testNow.Add(time.Hour)))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = f.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]any](t, rec)["status"])
}

type notReady struct{ Ledger }

func (notReady) Ready(context.Context) error { return core.ErrStorage }

func TestReadyReportsStoreFailure(t *testing.T) {
	verifier, err := auth.NewVerifier(auth.Config{Secret: testSecret})
	require.NoError(t, err)
	srv := NewServer(":0", notReady{}, verifier, Config{Logger: applog.New(applog.Config{Output: io.Discard})})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresValidBearer(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", "missing bearer token"},
		{"garbage", "Bearer not-a-jwt", "invalid or expired token"},
		{"expired", "Bearer " + token(t, "alice", testNow.Add(-time.Hour)), "invalid or expired token"},
		{"wrong scheme", "Basic YWxpY2U6c2VjcmV0", "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/transactions", "/api/budget-insights", "/api/budget-forecast"} {
				req := httptest.NewRequest(http.MethodGet, path, nil)
				if tt.header != "" {
					req.Header.Set("Authorization", tt.header)
				}
				rec := httptest.NewRecorder()
				f.handler.ServeHTTP(rec, req)

				assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Equal(t, tt.want, decode[errorResponse](t, rec).Error)
			}
		})
	}
	assert.Zero(t, f.source.calls, "auth must fail before the forecast service is called")
}

func TestTransactionLifecycle(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodPost, "/api/transactions", "alice",
		`{"type":"expense","category":"Food","amount":"12,50","date":"2025-05-30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "tx-1", created["id"])
	assert.Equal(t, "alice", created["owner_id"])
	assert.Equal(t, 12.5, created["amount"])
	assert.Equal(t, "2025-05-30T00:00:00Z", created["date"])
	assert.Equal(t, "/api/transactions/tx-1", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodPost, "/api/transactions", "alice", `{"type":"income","category":"Salary","amount":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, testNow.Format(time.RFC3339), decode[map[string]any](t, rec)["date"], "date defaults to creation time")

	rec = f.do(t, http.MethodGet, "/api/transactions", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = f.do(t, http.MethodPut, "/api/transactions/tx-1", "alice",
		`{"type":"expense","category":"Travel","amount":40,"date":"2025-05-31"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "Travel", updated["category"])
	assert.Equal(t, "tx-1", updated["id"])

	rec = f.do(t, http.MethodDelete, "/api/transactions/tx-1", "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/transactions/tx-1", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrossTenantIsolation(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodPost, "/api/transactions", "alice", `{"type":"expense","category":"Rent","amount":800}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/transactions", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	update := `{"type":"expense","category":"Rent","amount":1,"date":"2025-06-01"}`
	foreign := f.do(t, http.MethodPut, "/api/transactions/tx-1", "bob", update)
	missing := f.do(t, http.MethodPut, "/api/transactions/nope", "bob", update)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.Code, foreign.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())

	foreign = f.do(t, http.MethodDelete, "/api/transactions/tx-1", "bob", "")
	missing = f.do(t, http.MethodDelete, "/api/transactions/nope", "bob", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())
	assert.Equal(t, "transaction not found", decode[errorResponse](t, foreign).Error)

	txs, err := f.store.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(80000), txs[0].Amount.Cents)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"type":"transfer","category":"Food","amount":1}`},
		{"lower-case category", `{"type":"expense","category":"food","amount":1}`},
		{"negative amount", `{"type":"expense","category":"Food","amount":-5}`},
		{"too large", `{"type":"expense","category":"Food","amount":1000000000.01}`},
		{"missing amount", `{"type":"expense","category":"Food"}`},
		{"amount not a number", `{"type":"expense","category":"Food","amount":"ten"}`},
		{"bad date", `{"type":"expense","category":"Food","amount":1,"date":"31/12/2025"}`},
		{"owner in body", `{"type":"expense","category":"Food","amount":1,"owner_id":"bob"}`},
		{"malformed", `{"type":`},
		{"two objects", `{"type":"expense","category":"Food","amount":1}{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				rec := f.do(t, http.MethodPost, "/api/transactions", "alice", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			}
		})
	}

	txs, err := f.store.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, txs, "failed creates must not persist anything")
}

func TestUpdateRequiresDate(t *testing.T) {
	f := newFixture(t, Config{})
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions", "alice", `{"type":"expense","category":"Food","amount":3}`).Code)

	rec := f.do(t, http.MethodPut, "/api/transactions/tx-1", "alice", `{"type":"expense","category":"Food","amount":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "date is required")
}

func TestInsights(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/api/budget-insights", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[map[string]any](t, rec)
	assert.Equal(t, 0.0, empty["total_income"])
	assert.Empty(t, empty["category_expenses"])
	assert.Empty(t, empty["anomalies"])

	for _, body := range []string{
		`{"type":"expense","category":"Food","amount":50}`,
		`{"type":"expense","category":"Food","amount":30}`,
		`{"type":"income","category":"Salary","amount":1000}`,
	} {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions", "alice", body).Code)
	}

	rec = f.do(t, http.MethodGet, "/api/budget-insights", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]any](t, rec)
	assert.Equal(t, 1000.0, report["total_income"])
	assert.Equal(t, 80.0, report["total_expense"])
	assert.Equal(t, map[string]any{"Food": 80.0}, report["category_expenses"])
	assert.Equal(t, false, report["insufficient_data"])
}

func TestInsightsWithoutIncomeAreUndefined(t *testing.T) {
	f := newFixture(t, Config{})
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/transactions", "alice", `{"type":"expense","category":"Food","amount":50}`).Code)

	rec := f.do(t, http.MethodGet, "/api/budget-insights", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]any](t, rec)
	assert.Equal(t, "undefined", report["expense_ratio"])
	assert.Equal(t, "undefined", report["savings_rate"])
	assert.Equal(t, true, report["insufficient_data"])
}

func TestForecast(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/api/budget-forecast", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	points := decode[[]map[string]any](t, rec)
	assert.Len(t, points, forecast.DefaultHorizon)
	assert.Equal(t, forecast.DefaultHorizon, f.source.horizon)
	assert.Less(t, points[0]["date"].(string), points[1]["date"].(string), "series must be ascending")

	rec = f.do(t, http.MethodGet, "/api/budget-forecast?periods=7", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 7)
}

func TestForecastRejectsBadPeriods(t *testing.T) {
	f := newFixture(t, Config{})

	for _, q := range []string{"0", "-3", "abc", "366"} {
		rec := f.do(t, http.MethodGet, "/api/budget-forecast?periods="+q, "alice", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	assert.Zero(t, f.source.calls, "invalid horizons must not reach the forecast service")
}

func TestForecastUpstreamFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.source.err = errors.New("connection refused")

	rec := f.do(t, http.MethodGet, "/api/budget-forecast?periods=5", "alice", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "forecast service unavailable", decode[errorResponse](t, rec).Error)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{RateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2})})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", "").Code)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCORSPreflightSkipsAuth(t *testing.T) {
	f := newFixture(t, Config{CORSAllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponsesCarrySecurityHeadersAndRequestID(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodPatch, "/api/transactions", "alice", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type panicking struct{ Ledger }

func (panicking) List(context.Context, string) ([]core.Transaction, error) { panic("boom") }

func TestHandlerPanicIsRecovered(t *testing.T) {
	verifier, err := auth.NewVerifier(auth.Config{Secret: testSecret, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	srv := NewServer(":0", panicking{}, verifier, Config{Logger: applog.New(applog.Config{Output: io.Discard})})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice", testNow.Add(time.Hour)))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
