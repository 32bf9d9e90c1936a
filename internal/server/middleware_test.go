package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/model"
)

func TestRequestIDMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFromContext(r.Context()) == "" {
			t.Error("request ID missing from context")
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := requestIDMiddleware(inner)

	// No incoming header: one gets generated and echoed back.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	// Caller-supplied header is honored.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("GET", "/", nil)
	req2.Header.Set("X-Request-ID", "caller-chosen-id")
	handler.ServeHTTP(rec2, req2)
	if got := rec2.Header().Get("X-Request-ID"); got != "caller-chosen-id" {
		t.Errorf("got X-Request-ID %q, want caller-chosen-id", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(logger, inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/panics", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body model.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not an error envelope: %v", err)
	}
	if body.Error.Code != model.ErrCodeInternalError {
		t.Errorf("got error code %q, want %q", body.Error.Code, model.ErrCodeInternalError)
	}
}

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := requireRole(auth.RoleAdmin)(inner)

	// No claims in context: 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("DELETE", "/v1/legislation/1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no claims: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	withClaims := func(role string) *http.Request {
		req := httptest.NewRequest("DELETE", "/v1/legislation/1", nil)
		ctx := context.WithValue(req.Context(), contextKeyClaims, &auth.Claims{ClientID: "c", Role: role})
		return req.WithContext(ctx)
	}

	// Collaborator hitting an admin route: 403.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, withClaims(auth.RoleCollaborator))
	if rec2.Code != http.StatusForbidden {
		t.Errorf("collaborator: got %d, want %d", rec2.Code, http.StatusForbidden)
	}

	// Admin passes through.
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, withClaims(auth.RoleAdmin))
	if rec3.Code != http.StatusOK {
		t.Errorf("admin: got %d, want %d", rec3.Code, http.StatusOK)
	}
}

func TestSearchRateKeyPrefersClientID(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/legislation/search", nil)
	req.RemoteAddr = "203.0.113.10:4242"

	// Without claims, the key falls back to the client IP.
	if got := searchRateKey(req); got != "203.0.113.10" {
		t.Errorf("unauthenticated key: got %q, want %q", got, "203.0.113.10")
	}

	// Authenticated requests bucket per client so two collaborators behind
	// one proxy get independent quotas.
	ctx := context.WithValue(req.Context(), contextKeyClaims, &auth.Claims{ClientID: "ingest-bot"})
	if got := searchRateKey(req.WithContext(ctx)); got != "ingest-bot" {
		t.Errorf("authenticated key: got %q, want %q", got, "ingest-bot")
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Email string `json:"email"`
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.c","bogus":1}`))
	if err := decodeJSON(rec, req, &target, 1024); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	var target map[string]any
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"padding":"`+strings.Repeat("x", 200)+`"}`))
	err := decodeJSON(rec, req, &target, 64)
	if err == nil {
		t.Fatal("expected error for oversized body")
	}
	rec2 := httptest.NewRecorder()
	handleDecodeError(rec2, httptest.NewRequest("POST", "/", nil), err)
	if rec2.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("got status %d, want %d", rec2.Code, http.StatusRequestEntityTooLarge)
	}
}
