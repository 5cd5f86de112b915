package repository

import (
	"errors"
	"time"

	syncdomain "jobtrack-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reprocessStateRepository struct {
	db *gorm.DB
}

func NewReprocessStateRepository(db *gorm.DB) ReprocessStateRepository {
	return &reprocessStateRepository{db: db}
}

func (r *reprocessStateRepository) Get(userID string) (*syncdomain.ReprocessState, error) {
	var state syncdomain.ReprocessState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *reprocessStateRepository) TryAcquire(userID, message string) (*syncdomain.ReprocessState, bool, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&syncdomain.ReprocessState{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    syncdomain.StatusIdle,
		UpdatedAt: time.Now(),
	}).Error
	if err != nil {
		return nil, false, err
	}

	result := r.db.Model(&syncdomain.ReprocessState{}).
		Where("user_id = ? AND status <> ?", userID, syncdomain.StatusSyncing).
		Updates(map[string]interface{}{
			"status":     syncdomain.StatusSyncing,
			"message":    message,
			"error":      "",
			"processed":  0,
			"total":      0,
			"updated":    0,
			"unchanged":  0,
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

func (r *reprocessStateRepository) Update(state *syncdomain.ReprocessState) error {
	state.UpdatedAt = time.Now()
	return r.db.Save(state).Error
}
