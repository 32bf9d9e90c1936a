package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/policypulse/policypulse/api"
	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/config"
	"github.com/policypulse/policypulse/internal/ingest"
	"github.com/policypulse/policypulse/internal/ratelimit"
	"github.com/policypulse/policypulse/internal/scoring"
	"github.com/policypulse/policypulse/internal/server"
	"github.com/policypulse/policypulse/internal/service/analysis"
	"github.com/policypulse/policypulse/internal/storage"
	"github.com/policypulse/policypulse/internal/telemetry"
	"github.com/policypulse/policypulse/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("POLICYPULSE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("policypulse starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Register connection pool OTEL metrics (after telemetry.Init).
	db.RegisterPoolMetrics()

	// Apply embedded schema migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here are real failures.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager for collaborator tokens.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	scorer := scoring.New(cfg.HealthKeywords, cfg.LocalKeywords)
	ingestSvc := ingest.New(db, scorer, logger, cfg.IngestConcurrency, cfg.NotifyThreshold)
	analysisSvc := analysis.New(db, logger)

	// Rate limiter for the search endpoint. A zero rate disables limiting.
	var limiter ratelimit.Limiter
	if cfg.SearchRatePerMin > 0 {
		burst := cfg.SearchRatePerMin / 4
		if burst < 1 {
			burst = 1
		}
		limiter = ratelimit.NewMemoryLimiter(float64(cfg.SearchRatePerMin)/60.0, burst)
		defer func() { _ = limiter.Close() }()
		logger.Info("search rate limiting: memory (in-process token bucket)",
			"per_minute", cfg.SearchRatePerMin, "burst", burst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("search rate limiting: disabled")
	}

	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		IngestSvc:           ingestSvc,
		AnalysisSvc:         analysisSvc,
		Limiter:             limiter,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		MaxIngestBatch:      cfg.MaxIngestBatch,
		OpenAPISpec:         api.OpenAPISpec,
	})

	// Seed the bootstrap admin credential.
	if err := srv.Handlers().SeedAdmin(ctx, cfg.AdminAPIKey); err != nil {
		slog.Warn("admin seed failed", "error", err)
	}

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting new requests and drain in-flight ones
	// before the pool closes.
	slog.Info("policypulse shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	slog.Info("policypulse stopped")
	return nil
}
