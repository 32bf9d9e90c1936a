package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/ingest"
	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/service/analysis"
	"github.com/policypulse/policypulse/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	ingestSvc           *ingest.Service
	analysisSvc         *analysis.Service
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	maxIngestBatch      int
	openapiSpec         []byte
}

// HandlersDeps holds the dependencies for constructing Handlers.
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	IngestSvc           *ingest.Service
	AnalysisSvc         *analysis.Service
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	MaxIngestBatch      int
	OpenAPISpec         []byte
}

// NewHandlers creates a Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		ingestSvc:           d.IngestSvc,
		analysisSvc:         d.AnalysisSvc,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		maxIngestBatch:      d.MaxIngestBatch,
		openapiSpec:         d.OpenAPISpec,
	}
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

// SeedAdmin provisions a bootstrap admin API key for the "admin" client if
// no active key exists yet. A blank apiKey disables seeding.
func (h *Handlers) SeedAdmin(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return nil
	}
	keys, err := h.db.ActiveAPIKeys(ctx, "admin")
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if len(keys) > 0 {
		return nil
	}
	hash, err := auth.HashAPIKey(apiKey)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if _, err := h.db.CreateAPIKey(ctx, "admin", hash, auth.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	h.logger.Info("seeded bootstrap admin api key", "client_id", "admin")
	return nil
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		h.logger.Error("health: database ping failed", "error", err)
	}
	writeJSON(w, r, code, map[string]any{
		"status":     status,
		"version":    h.version,
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
	})
}

// HandleAuthToken handles POST /auth/token: exchanges a client_id plus API
// key for a signed JWT. Credential misses burn a dummy hash so timing does
// not reveal whether the client_id exists.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ClientID == "" || req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "client_id and api_key are required")
		return
	}

	keys, err := h.db.ActiveAPIKeys(r.Context(), req.ClientID)
	if err != nil {
		h.logger.Error("auth: api key lookup failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
		return
	}

	var matched *storage.APIKey
	for i := range keys {
		ok, verr := auth.VerifyAPIKey(req.APIKey, keys[i].KeyHash)
		if verr == nil && ok {
			matched = &keys[i]
			break
		}
	}
	if matched == nil {
		if len(keys) == 0 {
			auth.DummyVerify()
		}
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, exp, err := h.jwtMgr.IssueToken(matched.ClientID, matched.Role, matched.ID)
	if err != nil {
		h.logger.Error("auth: token issue failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
		return
	}
	if err := h.db.TouchAPIKey(r.Context(), matched.ID); err != nil {
		h.logger.Warn("auth: touch api key failed", "error", err)
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{Token: token, ExpiresAt: exp})
}

// pagination reads limit/offset query parameters with defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pathID parses the {id} path segment as an int64.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}
