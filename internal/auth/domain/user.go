package domain

import "time"

// User carries both the local account and the Gmail OAuth credential set.
// Tokens are stored per user so the sync pipeline can refresh them without
// an interactive session.
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"size:255"`
	Password string `json:"-" gorm:"not null"`

	GmailAccessToken  string     `json:"-" gorm:"type:text"`
	GmailRefreshToken string     `json:"-" gorm:"type:text"`
	GmailTokenExpiry  *time.Time `json:"-"`
	GmailConnected    bool       `json:"gmail_connected" gorm:"default:false"`
	GmailWatchExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// OAuthState is a short-lived CSRF token for the Google OAuth redirect flow.
// Rows are deleted on use and expire after ten minutes.
type OAuthState struct {
	State     string    `json:"state" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (OAuthState) TableName() string {
	return "oauth_states"
}
