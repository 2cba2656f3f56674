// Package http serves the ledger, analytics and forecast operations as a
// JSON API behind bearer authentication.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Ledger is the application surface the handlers call. Every method takes
// the verified owner id.
type Ledger interface {
	List(ctx context.Context, ownerID string) ([]core.Transaction, error)
	Create(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error)
	Update(ctx context.Context, ownerID, id string, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, ownerID, id string) error
	Insights(ctx context.Context, ownerID string) (analytics.Report, error)
	Forecast(ctx context.Context, ownerID string, horizon int) ([]forecast.Point, error)
	Ready(ctx context.Context) error
}

type Config struct {
	Logger             *applog.Logger
	RateLimiter        *ratelimit.Limiter
	Detector           *security.Detector
	Headers            security.HeadersConfig
	CORSAllowedOrigins []string
	DefaultHorizon     int
	ReadyTimeout       time.Duration
	MaxBodyBytes       int64
}

type Server struct {
	http.Server
	ledger         Ledger
	verifier       *auth.Verifier
	logger         *applog.Logger
	defaultHorizon int
	readyTimeout   time.Duration
	maxBodyBytes   int64
	started        time.Time
}

// NewServer wires routes and the middleware chain. Requests pass through
// tracing, security headers, probe detection, rate limiting and CORS; the
// /api routes additionally require a verified bearer token.
func NewServer(addr string, ledger Ledger, verifier *auth.Verifier, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.Detector == nil {
		cfg.Detector = security.NewDetector()
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = forecast.DefaultHorizon
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		ledger:         ledger,
		verifier:       verifier,
		logger:         cfg.Logger.WithComponent(applog.ComponentHTTP),
		defaultHorizon: cfg.DefaultHorizon,
		readyTimeout:   cfg.ReadyTimeout,
		maxBodyBytes:   cfg.MaxBodyBytes,
		started:        time.Now(),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(verifier.Middleware(s.writeAuthError))
	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/budget-insights", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/budget-forecast", s.handleForecast).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", trace.HeaderRequestID}),
		handlers.ExposedHeaders([]string{trace.HeaderRequestID, "Retry-After"}),
		handlers.MaxAge(600),
		handlers.OptionStatusCode(http.StatusNoContent),
	)

	var h http.Handler = router
	h = cors(h)
	h = cfg.RateLimiter.Middleware(cfg.Detector.ExtractClientIP, s.writeRateLimited)(h)
	h = cfg.Detector.Middleware(h)
	h = security.NewHeadersMiddleware(cfg.Headers).Middleware(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = applog.Middleware(cfg.Logger, trace.FromRequest)(h)
	h = trace.NewMiddleware(cfg.Logger, cfg.Detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// recoveryLogger routes panics caught by handlers.RecoveryHandler to the
// structured log.
type recoveryLogger struct {
	logger *applog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from handler panic", applog.FieldError, fmt.Sprint(v...))
}
