package repository

import authdomain "jobtrack-backend/internal/auth/domain"

// UserRepository persists users and their Gmail credentials.
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error
	UpdateGmailTokens(user *authdomain.User) error
}

// OAuthStateRepository stores short-lived OAuth redirect states.
type OAuthStateRepository interface {
	Save(state *authdomain.OAuthState) error
	Consume(state string) (*authdomain.OAuthState, error)
	DeleteExpired() error
}
