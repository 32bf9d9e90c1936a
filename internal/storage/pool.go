// Package storage provides the PostgreSQL storage layer for PolicyPulse.
//
// It manages connection pooling via pgxpool and exposes query methods for
// the legislative schema: bill upsert with change detection, append-only
// analysis versioning, text and amendment stores, priority scoring, sync
// tracking, and the user layer.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"

	"github.com/policypulse/policypulse/internal/telemetry"
)

// DB wraps a pgxpool.Pool and the logger shared by all storage methods.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a new DB with a connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// RegisterPoolMetrics exports connection pool gauges through OTEL.
// Call after telemetry.Init; a no-op meter provider makes this harmless.
func (db *DB) RegisterPoolMetrics() {
	meter := telemetry.Meter("policypulse/storage")

	total, err1 := meter.Int64ObservableGauge("policypulse.db.connections.total",
		metric.WithDescription("Total connections in the pool"))
	idle, err2 := meter.Int64ObservableGauge("policypulse.db.connections.idle",
		metric.WithDescription("Idle connections in the pool"))
	if err1 != nil || err2 != nil {
		db.logger.Warn("storage: pool metric registration failed", "error_total", err1, "error_idle", err2)
		return
	}

	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stat := db.pool.Stat()
		o.ObserveInt64(total, int64(stat.TotalConns()))
		o.ObserveInt64(idle, int64(stat.IdleConns()))
		return nil
	}, total, idle)
	if err != nil {
		db.logger.Warn("storage: pool metric callback registration failed", "error", err)
	}
}
