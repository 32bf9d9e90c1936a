// Package policypulse is the public API for embedding the PolicyPulse
// legislative tracking server.
//
// Consumers import this package to construct and extend the server without
// forking it:
//
//	app, err := policypulse.New(
//	    policypulse.WithVersion(version),
//	    policypulse.WithLogger(logger),
//	    policypulse.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: policypulse (root)
// imports internal/*, but internal/* never imports the root package.
package policypulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
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

// App is the PolicyPulse server lifecycle. Construct with New(), run with
// Run(). App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the PolicyPulse server. It connects to the database, runs
// migrations, wires all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections; call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("policypulse starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}
	db.RegisterPoolMetrics()

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("migrations: %w", err)
	}

	// Embedder migrations run after the built-in schema.
	for i, extraFS := range o.extraMigrations {
		if err := db.RunMigrations(context.Background(), extraFS); err != nil {
			db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("extra migrations[%d]: %w", i, err)
		}
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	scorer := scoring.New(cfg.HealthKeywords, cfg.LocalKeywords)
	ingestSvc := ingest.New(db, scorer, logger, cfg.IngestConcurrency, cfg.NotifyThreshold)
	analysisSvc := analysis.New(db, logger)

	var limiter ratelimit.Limiter
	if cfg.SearchRatePerMin > 0 {
		burst := cfg.SearchRatePerMin / 4
		if burst < 1 {
			burst = 1
		}
		limiter = ratelimit.NewMemoryLimiter(float64(cfg.SearchRatePerMin)/60.0, burst)
	} else {
		limiter = ratelimit.NoopLimiter{}
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
		ExtraRoutes:         o.routeRegistrars,
		Middlewares:         o.middlewares,
	})

	if err := srv.Handlers().SeedAdmin(context.Background(), cfg.AdminAPIKey); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("admin seed: %w", err)
	}

	return &App{
		cfg:          cfg,
		db:           db,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the fully-assembled HTTP handler, for embedding the API in
// another server or exercising it in tests without opening a port.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically;
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops accepting HTTP requests, drains in-flight ones, then closes
// the rate limiter, database pool, and OTEL providers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("policypulse shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	cancel()

	_ = a.limiter.Close()
	_ = a.otelShutdown(context.Background())
	a.db.Close()

	a.logger.Info("policypulse stopped")
	return nil
}
