package dto

import (
	"time"

	"github.com/xue-yuan/dionysus/internal/domain"
)

// CredentialsRequest is the register and login payload.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IdentityResponse echoes the authenticated caller.
type IdentityResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func NewTokenResponse(t *domain.AuthToken) TokenResponse {
	return TokenResponse{AccessToken: t.AccessToken, TokenType: t.TokenType, ExpiresAt: t.ExpiresAt}
}
