package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/auth"
	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/events"
	"github.com/xue-yuan/dionysus/internal/repository"
	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

const minUsernameLength = 3

// TokenIssuer signs new credentials.
type TokenIssuer interface {
	Issue(userID string) (auth.IssuedToken, error)
	Now() time.Time
}

// EpochTracker records which tokens of an identity are honored.
type EpochTracker interface {
	Begin(ctx context.Context, issued auth.IssuedToken) error
	Rotate(ctx context.Context, old *auth.Claims, issued auth.IssuedToken) error
	End(ctx context.Context, userID string) error
}

// TokenRevoker invalidates a credential for a bounded time.
type TokenRevoker interface {
	Revoke(ctx context.Context, credential string, ttl time.Duration) error
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Users        repository.UserRepository
	Tokens       TokenIssuer
	Epochs       EpochTracker
	Revocations  TokenRevoker
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	BcryptCost   int
	StoreTimeout time.Duration
}

// AuthService coordinates registration, login and the token lifecycle.
type AuthService struct {
	users        repository.UserRepository
	tokens       TokenIssuer
	epochs       EpochTracker
	revocations  TokenRevoker
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	bcryptCost   int
	storeTimeout time.Duration
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = auth.DefaultStoreTimeout
	}
	return &AuthService{
		users:        deps.Users,
		tokens:       deps.Tokens,
		epochs:       deps.Epochs,
		revocations:  deps.Revocations,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		bcryptCost:   deps.BcryptCost,
		storeTimeout: deps.StoreTimeout,
	}
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewDuplicateUsername()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateUsername()
		}
		return nil, err
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{Username: user.Username}))
	return user, nil
}

// Login verifies credentials and issues a token that starts a new generation
// for the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.AuthToken, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewIncorrectCredentials()
	}
	if err != nil {
		return nil, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.NewIncorrectCredentials()
	}
	if !ok {
		return nil, apperrors.NewIncorrectCredentials()
	}

	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.epochs.Begin(storeCtx, issued); err != nil {
		s.logger.Error("begin token epoch", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.NewAuthServiceUnavailable(err)
	}
	return toAuthToken(issued), nil
}

// Refresh issues a replacement for the presented token. The presented token
// remains honored for a short grace period. Only the newest token of an
// identity may be refreshed.
func (s *AuthService) Refresh(ctx context.Context, identity *auth.Identity) (*domain.AuthToken, error) {
	if identity == nil || identity.Claims == nil {
		return nil, apperrors.NewNotAuthenticated()
	}
	issued, err := s.tokens.Issue(identity.UserID)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.epochs.Rotate(storeCtx, identity.Claims, issued); err != nil {
		if errors.Is(err, auth.ErrStaleGeneration) {
			s.logger.Info("refresh from replaced token", zap.String("user_id", identity.UserID), zap.String("token_id", identity.TokenID))
			return nil, apperrors.NewInvalidToken()
		}
		s.logger.Error("rotate token", zap.String("user_id", identity.UserID), zap.Error(err))
		return nil, apperrors.NewAuthServiceUnavailable(err)
	}

	s.publish(ctx, events.New(events.EventTokenRotated, identity.UserID, events.TokenRotatedPayload{
		OldTokenID: identity.TokenID,
		NewTokenID: issued.ID,
	}))
	return toAuthToken(issued), nil
}

// Logout revokes the presented token for the rest of its lifetime and stops
// honoring any token it replaced.
func (s *AuthService) Logout(ctx context.Context, identity *auth.Identity) error {
	if identity == nil {
		return apperrors.NewNotAuthenticated()
	}
	ttl := auth.RevocationTTL(0, identity.ExpiresAt, s.tokens.Now())

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.revocations.Revoke(storeCtx, identity.Token, ttl); err != nil {
		s.logger.Error("revoke token", zap.String("user_id", identity.UserID), zap.Error(err))
		return apperrors.NewAuthServiceUnavailable(err)
	}
	if err := s.epochs.End(storeCtx, identity.UserID); err != nil {
		s.logger.Error("end session", zap.String("user_id", identity.UserID), zap.Error(err))
		return apperrors.NewAuthServiceUnavailable(err)
	}

	s.publish(ctx, events.New(events.EventTokenRevoked, identity.UserID, events.TokenRevokedPayload{
		TokenID:   identity.TokenID,
		ExpiresAt: identity.ExpiresAt,
	}))
	return nil
}

// Me loads the account behind an admitted identity.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	return user, err
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateCredentials(username, password string) error {
	details := map[string]any{}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > domain.MaxNameLength {
		details["username"] = "must be between 3 and 63 characters"
	}
	if n := len(password); n < auth.MinPasswordBytes || n > auth.MaxPasswordBytes {
		details["password"] = "must be between 8 and 72 bytes"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid credentials", details)
	}
	return nil
}

func toAuthToken(issued auth.IssuedToken) *domain.AuthToken {
	return &domain.AuthToken{
		AccessToken: issued.Token,
		TokenType:   domain.TokenTypeBearer,
		TokenID:     issued.ID,
		UserID:      issued.UserID,
		IssuedAt:    issued.IssuedAt,
		ExpiresAt:   issued.ExpiresAt,
	}
}
