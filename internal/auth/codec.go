package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Decode failures. Callers outside this package only ever see InvalidToken;
// these exist for logging and tests.
var (
	ErrMalformed = errors.New("auth: malformed token")
	ErrSignature = errors.New("auth: invalid token signature")
	ErrExpired   = errors.New("auth: token expired")
)

// Claims describes the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed credential and its metadata.
type IssuedToken struct {
	Token     string
	ID        string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimDecoder validates a credential and returns its claims.
type ClaimDecoder interface {
	Decode(credential string) (*Claims, error)
}

// TokenCodec issues and validates HS256 JWTs.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock sets the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec builds a codec signing with secret; tokens live for ttl.
func NewTokenCodec(secret string, ttl time.Duration, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime of newly issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Now returns the codec's current time in UTC, truncated to jwt precision.
func (c *TokenCodec) Now() time.Time {
	return c.now().UTC().Truncate(jwt.TimePrecision)
}

// Issue builds and signs a token for userID.
func (c *TokenCodec) Issue(userID string) (IssuedToken, error) {
	if userID == "" {
		return IssuedToken{}, errors.New("auth: user id required")
	}
	issuedAt := c.Now()
	expiresAt := issuedAt.Add(c.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{
		Token:     signed,
		ID:        claims.ID,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode verifies structure, signature and expiry of credential. A token whose
// expiry equals the current second is already expired.
func (c *TokenCodec) Decode(credential string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing user_id or jti", ErrMalformed)
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
