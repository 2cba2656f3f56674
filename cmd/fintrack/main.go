package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/forecast"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/services"
)

const (
	shutdownTimeout  = 30 * time.Second
	janitorInterval  = time.Minute
	forecastCacheCap = 1000
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fintrack:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap(applog.ComponentApp, (*config.Config).ValidateServer)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	})
	if err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return err
	}

	policy, err := cfg.BudgetPolicy()
	if err != nil {
		return err
	}

	janitor := cache.NewJanitor()

	forecastOpts := []forecast.Option{forecast.WithMaxHorizon(cfg.ForecastMaxHorizon)}
	if cfg.ForecastCacheTTL > 0 {
		forecastCache := cache.NewLRU[[]forecast.Point](forecastCacheCap, cfg.ForecastCacheTTL)
		janitor.Register("forecast", forecastCache)
		forecastOpts = append(forecastOpts, forecast.WithCache(forecastCache))
	}
	forecaster := forecast.NewAdapter(forecast.NewHTTPClient(cfg.ForecastServiceURL, cfg.ForecastTimeout), forecastOpts...)

	svcOpts := []services.Option{
		services.WithForecaster(forecaster),
		services.WithPolicy(policy),
	}
	if res.Publisher != nil {
		svcOpts = append(svcOpts, services.WithPublisher(res.Publisher))
	}
	svc := services.NewTransactionService(res.Store, svcOpts...)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	janitor.Register("rate_limit", limiter)

	srv := apphttp.NewServer(":"+cfg.Port, svc, verifier, apphttp.Config{
		Logger:             logger,
		RateLimiter:        limiter,
		Detector:           security.NewDetector(),
		Headers:            security.DefaultHeadersConfig(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultHorizon:     forecast.DefaultHorizon,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", backendCfg.Type,
			"events_enabled", res.Publisher != nil,
			"budget_strategy", policy.Strategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx, janitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if closeErr := svc.Close(); closeErr != nil {
		logger.Error("Failed to release resources", applog.FieldError, closeErr)
		err = errors.Join(err, closeErr)
	}
	if err == nil {
		logger.Info("Server stopped gracefully")
	}
	return err
}
