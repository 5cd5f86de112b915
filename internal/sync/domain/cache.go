package domain

import "time"

// ClassificationCache is the durable classification cache keyed on the
// normalized content hash of an email, scoped per user. The Redis layer in
// front of it is a best-effort accelerator; this row is the source of truth.
type ClassificationCache struct {
	ID          string `json:"id" gorm:"primaryKey"`
	UserID      string `json:"user_id" gorm:"index:idx_cache_user_hash,unique;not null"`
	ContentHash string `json:"content_hash" gorm:"index:idx_cache_user_hash,unique;size:64;not null"`

	Category    string   `json:"category" gorm:"size:50"`
	Subcategory string   `json:"subcategory" gorm:"size:50"`
	Company     string   `json:"company" gorm:"size:255"`
	Position    string   `json:"position" gorm:"size:255"`
	Confidence  *float64 `json:"confidence"`
	Reasoning   string   `json:"reasoning" gorm:"type:text"`

	HitCount  int       `json:"hit_count" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClassificationCache) TableName() string {
	return "classification_cache"
}

// CacheStats summarizes cache effectiveness for the stats endpoint.
type CacheStats struct {
	Entries   int64 `json:"entries"`
	TotalHits int64 `json:"total_hits"`
}
