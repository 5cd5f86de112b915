package repository

import (
	"errors"
	"time"

	syncdomain "jobtrack-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type classificationCacheRepository struct {
	db *gorm.DB
}

func NewClassificationCacheRepository(db *gorm.DB) ClassificationCacheRepository {
	return &classificationCacheRepository{db: db}
}

func (r *classificationCacheRepository) Get(userID, contentHash string) (*syncdomain.ClassificationCache, error) {
	var entry syncdomain.ClassificationCache
	err := r.db.Where("user_id = ? AND content_hash = ?", userID, contentHash).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Hit counter is best effort; a lost update is fine.
	r.db.Model(&syncdomain.ClassificationCache{}).
		Where("id = ?", entry.ID).
		Update("hit_count", gorm.Expr("hit_count + 1"))
	entry.HitCount++
	return &entry, nil
}

// Put upserts on (user, hash). Entries are only replaced wholesale, never
// mutated field by field, so a reprocess that reclassifies simply overwrites.
func (r *classificationCacheRepository) Put(entry *syncdomain.ClassificationCache) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "content_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "subcategory", "company", "position",
			"confidence", "reasoning", "updated_at",
		}),
	}).Create(entry).Error
}

func (r *classificationCacheRepository) DeleteByUser(userID string) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&syncdomain.ClassificationCache{})
	return result.RowsAffected, result.Error
}

func (r *classificationCacheRepository) Stats(userID string) (*syncdomain.CacheStats, error) {
	var stats syncdomain.CacheStats
	err := r.db.Model(&syncdomain.ClassificationCache{}).
		Select("COUNT(*) AS entries, COALESCE(SUM(hit_count), 0) AS total_hits").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	return &stats, err
}
