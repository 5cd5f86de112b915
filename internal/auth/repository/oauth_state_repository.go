package repository

import (
	"errors"
	"time"

	authdomain "jobtrack-backend/internal/auth/domain"

	"gorm.io/gorm"
)

type oauthStateRepository struct {
	db *gorm.DB
}

func NewOAuthStateRepository(db *gorm.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Save(state *authdomain.OAuthState) error {
	state.CreatedAt = time.Now()
	return r.db.Create(state).Error
}

// Consume looks up a state token and deletes it in the same transaction so a
// replayed redirect cannot reuse it. Expired or unknown states return nil.
func (r *oauthStateRepository) Consume(state string) (*authdomain.OAuthState, error) {
	var found authdomain.OAuthState
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state = ?", state).First(&found).Error; err != nil {
			return err
		}
		return tx.Where("state = ?", state).Delete(&authdomain.OAuthState{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if found.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	return &found, nil
}

func (r *oauthStateRepository) DeleteExpired() error {
	return r.db.Where("expires_at < ?", time.Now()).Delete(&authdomain.OAuthState{}).Error
}
