package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lead-manager/internal/api/router"
	"github.com/wolfman30/lead-manager/internal/app/bootstrap"
	appconfig "github.com/wolfman30/lead-manager/internal/config"
	"github.com/wolfman30/lead-manager/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lead-manager/internal/http/middleware"
	"github.com/wolfman30/lead-manager/internal/leads"
	"github.com/wolfman30/lead-manager/internal/observability/metrics"
	"github.com/wolfman30/lead-manager/internal/users"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead-manager API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	var healthDB handlers.Pinger
	if pool != nil {
		defer pool.Close()
		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()
		healthDB = db
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, leadMetrics, httpMetrics := setupMetrics()

	// Initialize repositories and services
	stores := bootstrap.BuildStores(pool, logger)
	userSvc := users.NewService(
		stores.Users,
		users.NewBcryptHasher(cfg.BcryptCost),
		users.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		bootstrap.BuildBlacklist(redisClient, logger),
		leadMetrics,
		logger,
	)
	leadSvc := leads.NewService(stores.Leads, leadMetrics, logger, leads.ServiceOptions{
		RejectDuplicateEmail: cfg.RejectDuplicateLeadEmail,
	})

	var limiter *httpmiddleware.RateLimiter
	if cfg.AuthRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
		defer limiter.Stop()
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		AuthHandler:        users.NewHandler(userSvc, logger),
		LeadsHandler:       leads.NewHandler(leadSvc, leads.NewAggregator(stores.Leads), logger),
		HealthHandler:      handlers.NewHealthHandler(healthDB, logger),
		Authenticator:      userSvc,
		MetricsHandler:     metricsHandler,
		HTTPMetrics:        httpMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// connectPostgresPool opens and pings a pgx pool. An empty URL yields a nil
// pool and the API runs on memory stores. A configured database that cannot be
// reached is an error so the server never drops to memory stores silently.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// setupMetrics builds a dedicated registry so tests can construct it twice.
func setupMetrics() (http.Handler, *metrics.LeadMetrics, *metrics.HTTPMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewLeadMetrics(reg), metrics.NewHTTPMetrics(reg)
}
