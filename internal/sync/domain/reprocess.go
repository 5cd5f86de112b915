package domain

import "time"

// ReprocessOptions selects which stored applications get re-classified.
type ReprocessOptions struct {
	OnlyNeedsReview bool     `json:"only_needs_review"`
	MinConfidence   *float64 `json:"min_confidence"`
	Limit           int      `json:"limit"`
	BatchSize       int      `json:"batch_size"`
	DryRun          bool     `json:"dry_run"`

	// BypassCache forces a model call for every record. The default reuses
	// cached classifications, which keeps repeated runs cheap.
	BypassCache bool `json:"bypass_cache"`
}

// ReprocessState tracks one reprocess run per user. Like SyncState it doubles
// as both lock and progress record.
type ReprocessState struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null"`

	Status  string `json:"status" gorm:"default:idle"`
	Message string `json:"message" gorm:"size:255"`
	Error   string `json:"error" gorm:"type:text"`

	Processed int `json:"processed"`
	Total     int `json:"total"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`

	DryRun    bool      `json:"dry_run"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReprocessState) TableName() string {
	return "reprocess_state"
}
