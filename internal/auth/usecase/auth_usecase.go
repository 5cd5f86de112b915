package usecase

import (
	"context"
	"errors"
	"time"

	authdomain "jobtrack-backend/internal/auth/domain"
	authdto "jobtrack-backend/internal/auth/dto"
	"jobtrack-backend/internal/auth/repository"
	"jobtrack-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

const oauthStateTTL = 10 * time.Minute

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo  repository.UserRepository
	stateRepo repository.OAuthStateRepository
	config    *config.Config
	oauth     *oauth2.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, stateRepo repository.OAuthStateRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		stateRepo: stateRepo,
		config:    cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{gmailapi.GmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     req.Name,
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}

	return u.issueToken(user)
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("invalid email or password")
	}
	if !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, errors.New("invalid email or password")
	}

	return u.issueToken(user)
}

func (u *authUsecase) issueToken(user *authdomain.User) (*authdto.TokenResponse, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken: signed,
		User:        user,
	}, nil
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *authUsecase) ChangePassword(userID string, req *authdto.ChangePasswordRequest) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}
	// Accounts created through Google connect have no local password to verify.
	if user.Password == "" {
		return errors.New("account has no password set")
	}
	if !repository.CheckPasswordHash(req.CurrentPassword, user.Password) {
		return errors.New("current password is incorrect")
	}

	hashed, err := repository.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return u.userRepo.Update(user)
}

// BeginGmailConnect returns the Google consent URL for the user. The state
// token ties the callback back to the initiating account.
func (u *authUsecase) BeginGmailConnect(userID string) (string, error) {
	state := &authdomain.OAuthState{
		State:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(oauthStateTTL),
	}
	if err := u.stateRepo.Save(state); err != nil {
		return "", err
	}

	// AccessTypeOffline + prompt=consent forces a refresh token on reconnect.
	url := u.oauth.AuthCodeURL(state.State,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	return url, nil
}

func (u *authUsecase) CompleteGmailConnect(state, code string) (*authdomain.User, error) {
	stored, err := u.stateRepo.Consume(state)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("invalid or expired oauth state")
	}

	token, err := u.oauth.Exchange(context.Background(), code)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByID(stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	user.GmailAccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.GmailRefreshToken = token.RefreshToken
	}
	expiry := token.Expiry
	user.GmailTokenExpiry = &expiry
	user.GmailConnected = true

	if err := u.userRepo.UpdateGmailTokens(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *authUsecase) GmailStatus(userID string) (*authdto.GmailStatusResponse, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	resp := &authdto.GmailStatusResponse{Connected: user.GmailConnected}
	if user.GmailConnected {
		resp.Email = user.Email
		if user.GmailTokenExpiry != nil && user.GmailTokenExpiry.Before(time.Now()) && user.GmailRefreshToken == "" {
			resp.TokenExpired = true
		}
	}
	return resp, nil
}

func (u *authUsecase) DisconnectGmail(userID string) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	user.GmailAccessToken = ""
	user.GmailRefreshToken = ""
	user.GmailTokenExpiry = nil
	user.GmailConnected = false
	return u.userRepo.UpdateGmailTokens(user)
}
