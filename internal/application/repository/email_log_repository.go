package repository

import (
	"time"

	appdomain "jobtrack-backend/internal/application/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type emailLogRepository struct {
	db *gorm.DB
}

func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &emailLogRepository{db: db}
}

func (r *emailLogRepository) Exists(userID, gmailMessageID string) (bool, error) {
	var count int64
	err := r.db.Model(&appdomain.EmailLog{}).
		Where("user_id = ? AND gmail_message_id = ?", userID, gmailMessageID).
		Count(&count).Error
	return count > 0, err
}

// Create inserts the log entry. Concurrent workers can race the Exists check
// on the same message id, so a conflicting insert is silently dropped instead
// of failing the message.
func (r *emailLogRepository) Create(entry *appdomain.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "gmail_message_id"}},
		DoNothing: true,
	}).Create(entry).Error
}
