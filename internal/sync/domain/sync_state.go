package domain

import (
	"errors"
	"time"
)

// Sync state machine: idle -> syncing -> (idle | error).
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusError   = "error"
)

// Sync modes.
const (
	ModeAuto        = "auto"
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

var (
	// ErrSyncInProgress is returned when a sync is already running for the user.
	ErrSyncInProgress = errors.New("sync already in progress for this user")
	// ErrAuthRequired is returned when the user has no usable Gmail credentials.
	ErrAuthRequired = errors.New("gmail authorization required")
)

// SyncState is the durable per-user sync row: history cursor, timestamps,
// status and the progress counters of the most recent run. It is mutated only
// by the run that owns it (single-writer) and read by the status/stream API.
type SyncState struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null"`

	LastHistoryID  string     `json:"last_history_id"`
	LastSyncedAt   *time.Time `json:"last_synced_at"`
	LastFullSyncAt *time.Time `json:"last_full_sync_at"`

	Status  string `json:"status" gorm:"default:idle"`
	Error   string `json:"error" gorm:"type:text"`
	Message string `json:"message" gorm:"size:255"`

	Processed int `json:"processed"`
	Total     int `json:"total"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_state"
}

// Progress is a point-in-time snapshot of a sync run, served by the status
// endpoint and pushed over SSE. Snapshots are values: subscribers never share
// mutable state with the run.
type Progress struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	Error     string `json:"error,omitempty"`
}

// Terminal reports whether the snapshot represents a finished run.
func (p Progress) Terminal() bool {
	return p.Status != StatusSyncing
}

// Result is the outcome of one sync run.
type Result struct {
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	FullSync  bool   `json:"full_sync"`
	Message   string `json:"message,omitempty"`
}
