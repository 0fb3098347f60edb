package domain

import "time"

// TokenTypeBearer is the only scheme the API issues.
const TokenTypeBearer = "Bearer"

// AuthToken is a credential handed to a client after login or refresh.
type AuthToken struct {
	AccessToken string
	TokenType   string
	TokenID     string
	UserID      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
