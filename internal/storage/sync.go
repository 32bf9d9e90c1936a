package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/policypulse/policypulse/internal/model"
)

const syncColumns = `id, run_id, last_sync, last_successful_sync, status,
	sync_type, new_bills, bills_updated, errors, created_at`

func scanSyncRun(row pgx.Row) (model.SyncRun, error) {
	var r model.SyncRun
	err := row.Scan(
		&r.ID, &r.RunID, &r.LastSync, &r.LastSuccessfulSync, &r.Status,
		&r.SyncType, &r.NewBills, &r.BillsUpdated, &r.Errors, &r.CreatedAt,
	)
	return r, err
}

// BeginSyncRun opens a tracking row for an ingestion run and marks it
// in_progress. The returned row's RunID identifies the run in logs.
func (db *DB) BeginSyncRun(ctx context.Context, syncType string) (model.SyncRun, error) {
	r, err := scanSyncRun(db.pool.QueryRow(ctx,
		`INSERT INTO sync_metadata (run_id, status, sync_type)
		 VALUES ($1, 'in_progress', $2)
		 RETURNING `+syncColumns,
		uuid.New(), nullIfEmpty(syncType),
	))
	if err != nil {
		return model.SyncRun{}, fmt.Errorf("storage: begin sync run: %w", err)
	}
	return r, nil
}

// CompleteSyncRun finalizes a run with its terminal status and counters.
// A completed run also stamps last_successful_sync. Finalizing an already
// terminal run is rejected.
func (db *DB) CompleteSyncRun(ctx context.Context, syncID int64, status model.SyncStatus, newBills, billsUpdated int, runErrors map[string]any) (model.SyncRun, error) {
	if !status.Terminal() {
		return model.SyncRun{}, fmt.Errorf("%w: %q is not a terminal sync status", ErrValidation, status)
	}

	r, err := scanSyncRun(db.pool.QueryRow(ctx,
		`UPDATE sync_metadata SET
			status = $2, new_bills = $3, bills_updated = $4, errors = $5,
			last_sync = now(),
			last_successful_sync = CASE WHEN $2 = 'completed' THEN now() ELSE last_successful_sync END,
			updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'in_progress')
		 RETURNING `+syncColumns,
		syncID, status, newBills, billsUpdated, runErrors,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SyncRun{}, fmt.Errorf("%w: open sync run %d", ErrNotFound, syncID)
	}
	if err != nil {
		return model.SyncRun{}, fmt.Errorf("storage: complete sync run: %w", err)
	}
	return r, nil
}

// RecordSyncError attaches one per-bill failure to a run.
func (db *DB) RecordSyncError(ctx context.Context, syncID int64, errorType, message, stackTrace string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO sync_errors (sync_id, error_type, error_message, stack_trace)
		 VALUES ($1,$2,$3,$4)`,
		syncID, nullIfEmpty(errorType), nullIfEmpty(message), nullIfEmpty(stackTrace),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: sync run %d", ErrNotFound, syncID)
		}
		return fmt.Errorf("storage: record sync error: %w", err)
	}
	return nil
}

// GetSyncHistory returns recent runs, newest first.
func (db *DB) GetSyncHistory(ctx context.Context, limit int) ([]model.SyncRun, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+syncColumns+` FROM sync_metadata
		 ORDER BY created_at DESC, id DESC LIMIT $1`, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: sync history: %w", err)
	}
	defer rows.Close()

	var out []model.SyncRun
	for rows.Next() {
		r, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan sync run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSyncErrors returns the per-bill failures recorded for one run.
func (db *DB) ListSyncErrors(ctx context.Context, syncID int64) ([]model.SyncError, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, sync_id, error_type, error_message, stack_trace, error_time
		 FROM sync_errors WHERE sync_id = $1 ORDER BY error_time, id`, syncID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sync errors: %w", err)
	}
	defer rows.Close()

	var out []model.SyncError
	for rows.Next() {
		var e model.SyncError
		if err := rows.Scan(&e.ID, &e.SyncID, &e.ErrorType, &e.ErrorMessage, &e.StackTrace, &e.ErrorTime); err != nil {
			return nil, fmt.Errorf("storage: scan sync error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
