package repository

import (
	"errors"
	"time"

	syncdomain "jobtrack-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) Get(userID string) (*syncdomain.SyncState, error) {
	var state syncdomain.SyncState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *syncStateRepository) ensureRow(userID string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&syncdomain.SyncState{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    syncdomain.StatusIdle,
		UpdatedAt: time.Now(),
	}).Error
}

// TryAcquire flips the row to syncing with a single conditional UPDATE, so
// two concurrent starts cannot both win.
func (r *syncStateRepository) TryAcquire(userID, message string) (*syncdomain.SyncState, bool, error) {
	if err := r.ensureRow(userID); err != nil {
		return nil, false, err
	}

	result := r.db.Model(&syncdomain.SyncState{}).
		Where("user_id = ? AND status <> ?", userID, syncdomain.StatusSyncing).
		Updates(map[string]interface{}{
			"status":     syncdomain.StatusSyncing,
			"message":    message,
			"error":      "",
			"processed":  0,
			"total":      0,
			"created":    0,
			"skipped":    0,
			"errors":     0,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	state, err := r.Get(userID)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (r *syncStateRepository) Update(state *syncdomain.SyncState) error {
	state.UpdatedAt = time.Now()
	return r.db.Save(state).Error
}
