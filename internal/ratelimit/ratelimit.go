// Package ratelimit provides per-key request throttling for the public
// search endpoint.
//
// The in-memory token bucket covers single-instance deployments; the
// Limiter interface is the seam for a shared store if the API ever runs
// replicated.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use. Errors mean the limiter
// itself failed; callers treat them as fail-open rather than blocking
// traffic on a broken limiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
