package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the lifecycle state of an ingestion run.
// pending → in_progress → one of completed, failed, partial.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusPartial    SyncStatus = "partial"
)

// Valid reports whether the sync status is a known value.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusInProgress, SyncStatusCompleted, SyncStatusFailed, SyncStatusPartial:
		return true
	}
	return false
}

// Terminal reports whether the run can transition no further.
func (s SyncStatus) Terminal() bool {
	switch s {
	case SyncStatusCompleted, SyncStatusFailed, SyncStatusPartial:
		return true
	}
	return false
}

// SyncRun is one ingestion run's tracking row.
type SyncRun struct {
	ID                 int64          `json:"id"`
	RunID              uuid.UUID      `json:"run_id"`
	LastSync           time.Time      `json:"last_sync"`
	LastSuccessfulSync *time.Time     `json:"last_successful_sync,omitempty"`
	Status             SyncStatus     `json:"status"`
	SyncType           *string        `json:"sync_type,omitempty"`
	NewBills           int            `json:"new_bills"`
	BillsUpdated       int            `json:"bills_updated"`
	Errors             map[string]any `json:"errors,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// SyncError is one failed bill within a run.
type SyncError struct {
	ID           int64     `json:"id"`
	SyncID       int64     `json:"sync_id"`
	ErrorType    *string   `json:"error_type,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	StackTrace   *string   `json:"stack_trace,omitempty"`
	ErrorTime    time.Time `json:"error_time"`
}
