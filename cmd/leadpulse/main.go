package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/config"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/handler"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/cache"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/observability"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/storage"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/supabase"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("dashboard_fresh_for", cfg.DashboardFreshFor),
		zap.Duration("dashboard_ttl", cfg.DashboardTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_init_timeout", cfg.SessionInitTimeout),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "pluggy-lead-pulse")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Supabase client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Token store ---
	tokens, err := storage.NewTokenStore(cfg.TokenStorePath)
	if err != nil {
		logger.Fatal("failed to open token store", zap.Error(err))
	}
	defer tokens.Close()

	// --- Cache ---
	dashboardCache := cache.New[*domain.DashboardData](cfg.DashboardFreshFor, cfg.DashboardTTL)

	// --- Services ---
	sessions := service.NewSessionStore(supabaseClient, tokens, logger)
	if err := sessions.Init(context.Background()); err != nil {
		logger.Warn("session restore failed, starting logged out", zap.Error(err))
	}

	guard := service.NewAccessGuard(sessions, supabaseClient, cfg.SessionInitTimeout, logger)
	guard.Start(context.Background())
	defer guard.Stop()

	dashboardSvc := service.NewDashboardService(
		supabaseClient,
		supabaseClient,
		supabaseClient,
		dashboardCache,
		bulkhead,
		cfg.FilterDebounce,
		metrics,
		logger,
	)
	validationSvc := service.NewValidationService(supabaseClient, supabaseClient, logger)
	userSvc := service.NewUserService(supabaseClient, supabaseClient, logger)
	exportSvc := service.NewExportService(supabaseClient, supabaseClient, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Sessions:       sessions,
		Guard:          guard,
		Dashboard:      dashboardSvc,
		Validation:     validationSvc,
		Users:          userSvc,
		Export:         exportSvc,
		Metrics:        metrics,
		JWTSecret:      cfg.SupabaseJWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
