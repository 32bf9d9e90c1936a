package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurst(t *testing.T) {
	m := NewMemoryLimiter(1, 3)
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst should pass", i)
	}
	ok, err := m.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, ok, "request beyond burst should be limited")
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	defer m.Close()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "client-a")
	assert.True(t, ok)
	ok, _ = m.Allow(ctx, "client-a")
	assert.False(t, ok)

	ok, _ = m.Allow(ctx, "client-b")
	assert.True(t, ok, "a limited key must not affect other keys")
}

func TestMemoryLimiterRefills(t *testing.T) {
	m := NewMemoryLimiter(50, 1)
	defer m.Close()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "client-a")
	require.True(t, ok)
	ok, _ = m.Allow(ctx, "client-a")
	require.False(t, ok)

	time.Sleep(50 * time.Millisecond)
	ok, _ = m.Allow(ctx, "client-a")
	assert.True(t, ok, "bucket should refill over time")
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	var n NoopLimiter
	for i := 0; i < 100; i++ {
		ok, err := n.Allow(context.Background(), "anyone")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMiddlewareLimitsAndSetsHeaders(t *testing.T) {
	m := NewMemoryLimiter(0.001, 1)
	defer m.Close()

	handler := Middleware(m, IPKeyFunc, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/legislation/search?q=health", nil)
	req.RemoteAddr = "203.0.113.9:41000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareSkipsEmptyKey(t *testing.T) {
	m := NewMemoryLimiter(0.001, 0)
	defer m.Close()

	handler := Middleware(m, func(*http.Request) string { return "" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyFuncStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:55123"
	assert.Equal(t, "198.51.100.7", IPKeyFunc(req))
}
