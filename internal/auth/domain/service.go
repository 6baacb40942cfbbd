package domain

import (
	"context"
	"errors"
	"time"
)

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// TokenResponse carries an issued session token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (*TokenResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error)
	// VerifyToken returns the user id a session token was issued for.
	VerifyToken(token string) (int64, error)
	GetByID(ctx context.Context, userID int64) (*User, error)
	SetAvatarURL(ctx context.Context, userID int64, avatarURL string) error
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrUserNotFound       = errors.New("user_not_found")
)
