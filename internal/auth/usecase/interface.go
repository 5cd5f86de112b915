package usecase

import (
	authdomain "jobtrack-backend/internal/auth/domain"
	authdto "jobtrack-backend/internal/auth/dto"
)

// AuthUsecase covers local accounts, JWT issuance and the Gmail OAuth
// connect flow.
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	ValidateToken(token string) (*authdomain.User, error)
	ChangePassword(userID string, req *authdto.ChangePasswordRequest) error

	BeginGmailConnect(userID string) (string, error)
	CompleteGmailConnect(state, code string) (*authdomain.User, error)
	GmailStatus(userID string) (*authdto.GmailStatusResponse, error)
	DisconnectGmail(userID string) error
}
