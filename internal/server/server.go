package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/ingest"
	"github.com/policypulse/policypulse/internal/ratelimit"
	"github.com/policypulse/policypulse/internal/service/analysis"
	"github.com/policypulse/policypulse/internal/storage"
)

// Server is the PolicyPulse HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Handlers returns the underlying Handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// ServerConfig holds the dependencies and settings for creating a Server.
type ServerConfig struct {
	DB          *storage.DB
	JWTMgr      *auth.JWTManager
	IngestSvc   *ingest.Service
	AnalysisSvc *analysis.Service
	Limiter     ratelimit.Limiter
	Logger      *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	MaxIngestBatch      int
	OpenAPISpec         []byte // Embedded OpenAPI YAML.

	// ExtraRoutes are applied to the mux after the built-in routes, so
	// embedders can mount additional endpoints behind the shared middleware
	// chain.
	ExtraRoutes []func(mux *http.ServeMux)

	// Middlewares wrap the fully-assembled handler. The first entry is
	// outermost.
	Middlewares []func(http.Handler) http.Handler
}

// New creates an HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		IngestSvc:           cfg.IngestSvc,
		AnalysisSvc:         cfg.AnalysisSvc,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		MaxIngestBatch:      cfg.MaxIngestBatch,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}
	searchRL := ratelimit.Middleware(limiter, searchRateKey, reqIDFunc)

	collaborator := requireRole(auth.RoleCollaborator, auth.RoleAdmin)
	adminOnly := requireRole(auth.RoleAdmin)

	mux := http.NewServeMux()

	// Token exchange, health, and the OpenAPI document stay open;
	// authMiddleware skips them.
	mux.HandleFunc("POST /auth/token", h.HandleAuthToken)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Ingestion and analysis, written by authenticated collaborators.
	mux.Handle("POST /v1/ingest", collaborator(http.HandlerFunc(h.HandleIngest)))
	mux.Handle("POST /v1/legislation/{id}/analysis", collaborator(http.HandlerFunc(h.HandleCreateAnalysis)))
	mux.Handle("POST /v1/legislation/{id}/ratings", collaborator(http.HandlerFunc(h.HandleCreateImpactRating)))

	// Read endpoints.
	mux.Handle("GET /v1/legislation", collaborator(http.HandlerFunc(h.HandleListLegislation)))
	mux.Handle("GET /v1/legislation/search", searchRL(collaborator(http.HandlerFunc(h.HandleSearchLegislation))))
	mux.Handle("GET /v1/legislation/{id}", collaborator(http.HandlerFunc(h.HandleGetLegislation)))
	mux.Handle("GET /v1/legislation/{id}/texts", collaborator(http.HandlerFunc(h.HandleListTexts)))
	mux.Handle("GET /v1/legislation/{id}/analysis", collaborator(http.HandlerFunc(h.HandleListAnalyses)))
	mux.Handle("GET /v1/legislation/{id}/analysis/latest", collaborator(http.HandlerFunc(h.HandleLatestAnalysis)))

	// Priorities and notifications.
	mux.Handle("GET /v1/legislation/{id}/priority", collaborator(http.HandlerFunc(h.HandleGetPriority)))
	mux.Handle("PUT /v1/legislation/{id}/priority/review", collaborator(http.HandlerFunc(h.HandleManualReview)))
	mux.Handle("GET /v1/notifications/pending", collaborator(http.HandlerFunc(h.HandlePendingNotifications)))
	mux.Handle("POST /v1/legislation/{id}/notified", collaborator(http.HandlerFunc(h.HandleMarkNotified)))

	// Sync observability.
	mux.Handle("GET /v1/sync/history", collaborator(http.HandlerFunc(h.HandleSyncHistory)))
	mux.Handle("GET /v1/sync/{id}/errors", collaborator(http.HandlerFunc(h.HandleSyncErrors)))

	// User layer.
	mux.Handle("POST /v1/users", collaborator(http.HandlerFunc(h.HandleGetOrCreateUser)))
	mux.Handle("GET /v1/users/{id}/preferences", collaborator(http.HandlerFunc(h.HandleGetPreferences)))
	mux.Handle("PUT /v1/users/{id}/preferences", collaborator(http.HandlerFunc(h.HandleSavePreferences)))
	mux.Handle("GET /v1/users/{id}/alert-preferences", collaborator(http.HandlerFunc(h.HandleGetAlertPreferences)))
	mux.Handle("PUT /v1/users/{id}/alert-preferences", collaborator(http.HandlerFunc(h.HandleSaveAlertPreferences)))
	mux.Handle("POST /v1/users/{id}/search-history", collaborator(http.HandlerFunc(h.HandleAddSearchHistory)))
	mux.Handle("GET /v1/users/{id}/search-history", collaborator(http.HandlerFunc(h.HandleGetSearchHistory)))
	mux.Handle("GET /v1/users/{id}/alert-history", collaborator(http.HandlerFunc(h.HandleGetAlertHistory)))

	// Admin surface.
	mux.Handle("DELETE /v1/legislation/{id}", adminOnly(http.HandlerFunc(h.HandleDeleteLegislation)))
	mux.Handle("POST /v1/admin/api-keys", adminOnly(http.HandlerFunc(h.HandleCreateAPIKey)))

	for _, register := range cfg.ExtraRoutes {
		register(mux)
	}

	// Middleware chain, outermost first:
	// request ID -> tracing -> logging -> auth -> recovery -> handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	// Embedder middlewares wrap the whole chain, first entry outermost.
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
