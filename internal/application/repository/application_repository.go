package repository

import (
	"errors"
	"fmt"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Upsert inserts the row; a conflicting (user, message id) pair is left as is
// so concurrent syncs of the same message stay idempotent.
func (r *applicationRepository) Upsert(app *appdomain.Application) (bool, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "gmail_message_id"}},
		DoNothing: true,
	}).Create(app)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *applicationRepository) Save(app *appdomain.Application) error {
	app.UpdatedAt = time.Now()
	return r.db.Save(app).Error
}

func (r *applicationRepository) FindByID(userID, id string) (*appdomain.Application, error) {
	var app appdomain.Application
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) List(userID string, f ListFilter) ([]appdomain.Application, int64, error) {
	query := r.db.Model(&appdomain.Application{}).Where("user_id = ?", userID)
	if f.Category != "" && f.Category != "ALL" {
		query = query.Where("category = ?", f.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []appdomain.Application
	err := query.
		Order("received_date DESC NULLS LAST").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&apps).Error
	return apps, total, err
}

func (r *applicationRepository) ListRecent(userID string, limit int) ([]appdomain.Application, error) {
	var apps []appdomain.Application
	err := r.db.
		Where("user_id = ? AND received_date IS NOT NULL", userID).
		Order("received_date DESC").
		Limit(limit).
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListForReprocess(userID string, f ReprocessFilter) ([]appdomain.Application, error) {
	query := r.db.Where("user_id = ?", userID)
	if f.OnlyNeedsReview {
		query = query.Where("needs_review = ?", true)
	}
	if f.ConfidenceBelow != nil {
		query = query.Where("confidence IS NULL OR confidence < ?", *f.ConfidenceBelow)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var apps []appdomain.Application
	err := query.Order("received_date DESC NULLS LAST").Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) Delete(userID, id string) error {
	return r.db.Where("user_id = ? AND id = ?", userID, id).Delete(&appdomain.Application{}).Error
}

func (r *applicationRepository) Count(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&appdomain.Application{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *applicationRepository) CountByCategory(userID string) (map[string]int64, error) {
	var rows []NameCount
	err := r.db.Model(&appdomain.Application{}).
		Select("category AS name, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Count
	}
	return out, nil
}

func (r *applicationRepository) CountByStages(userID string, stages []string) (int64, error) {
	var count int64
	err := r.db.Model(&appdomain.Application{}).
		Where("user_id = ? AND application_stage IN ?", userID, stages).
		Count(&count).Error
	return count, err
}

func (r *applicationRepository) GroupCount(userID, groupBy string, stages []string) ([]NameCount, error) {
	var column string
	switch groupBy {
	case "company":
		column = "company_name"
	case "industry":
		column = "category"
	default:
		return nil, fmt.Errorf("unsupported group_by: %s", groupBy)
	}

	query := r.db.Model(&appdomain.Application{}).
		Select(column+" AS name, COUNT(*) AS count").
		Where("user_id = ?", userID)
	if len(stages) > 0 {
		query = query.Where("application_stage IN ?", stages)
	}

	var rows []NameCount
	err := query.Group(column).Order("count DESC").Scan(&rows).Error
	return rows, err
}

func (r *applicationRepository) EventPairs(userID, event string) ([]EventPair, error) {
	column := "rejected_at"
	if event == "interview" {
		column = "interview_at"
	}

	var rows []struct {
		ReceivedDate *time.Time
		EventAt      *time.Time
	}
	err := r.db.Model(&appdomain.Application{}).
		Select("received_date, "+column+" AS event_at").
		Where("user_id = ? AND "+column+" IS NOT NULL", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]EventPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, EventPair{Received: row.ReceivedDate, Event: row.EventAt})
	}
	return pairs, nil
}
