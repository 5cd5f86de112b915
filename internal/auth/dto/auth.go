package dto

import authdomain "jobtrack-backend/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	User        *authdomain.User `json:"user"`
}

type GmailStatusResponse struct {
	Connected    bool   `json:"connected"`
	Email        string `json:"email,omitempty"`
	TokenExpired bool   `json:"token_expired"`
}

type GmailConnectResponse struct {
	AuthURL string `json:"auth_url"`
}
