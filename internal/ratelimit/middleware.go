package ratelimit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/policypulse/policypulse/internal/model"
)

// KeyFunc extracts the rate limit key from a request. An empty key skips
// rate limiting for that request.
type KeyFunc func(r *http.Request) string

// RequestIDFunc extracts the request ID for the error envelope. Injected by
// the caller to avoid a dependency on the server package.
type RequestIDFunc func(r *http.Request) string

// Middleware enforces the limiter on every request whose key is non-empty.
// Limiter errors fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, reqIDFunc RequestIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}

			var requestID string
			if reqIDFunc != nil {
				requestID = reqIDFunc(r)
			}
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(model.APIError{
				Error: model.ErrorDetail{
					Code:    model.ErrCodeRateLimited,
					Message: "too many requests",
				},
				Meta: model.ResponseMeta{
					RequestID: requestID,
					Timestamp: time.Now().UTC(),
				},
			})
		})
	}
}

// IPKeyFunc keys requests by client IP from RemoteAddr. X-Forwarded-For is
// not trusted: any client can set it, which would let callers rotate keys at
// will. Behind a trusted proxy, have the proxy rewrite RemoteAddr instead.
func IPKeyFunc(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
