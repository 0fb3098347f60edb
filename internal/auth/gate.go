package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

// DefaultStoreTimeout bounds the store lookups of a single verification.
const DefaultStoreTimeout = 500 * time.Millisecond

const identityLocalsKey = "auth_identity"

type identityContextKey struct{}

// Kind is the caller-visible class of a verification failure.
type Kind int

const (
	KindNotAuthenticated Kind = iota + 1
	KindInvalidToken
	KindServiceUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindInvalidToken:
		return "invalid_token"
	case KindServiceUnavailable:
		return "auth_service_unavailable"
	default:
		return "unknown"
	}
}

// Internal rejection reasons. They reach logs and metrics, never responses.
const (
	ReasonMissingHeader = "missing_header"
	ReasonBadScheme     = "bad_scheme"
	ReasonMalformed     = "malformed"
	ReasonSignature     = "signature"
	ReasonExpired       = "expired"
	ReasonRevoked       = "revoked"
	ReasonSuperseded    = "superseded"
	ReasonStoreError    = "store_error"
	ReasonStoreTimeout  = "store_timeout"
)

// VerifyError describes why a request was not admitted. Only Kind may be
// shown to clients.
type VerifyError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Reason)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Identity is the authenticated caller attached to an admitted request.
type Identity struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
	Token     string
	Claims    *Claims
}

// OutcomeRecorder receives one event per verification.
type OutcomeRecorder interface {
	RecordAuthOutcome(outcome, reason string)
}

// GateConfig carries the optional collaborators of a Gate.
type GateConfig struct {
	StoreTimeout time.Duration
	Logger       *zap.Logger
	Metrics      OutcomeRecorder
}

// Gate admits requests carrying a valid, unrevoked, honored bearer token.
type Gate struct {
	decoder      ClaimDecoder
	revocations  RevocationChecker
	epochs       EpochChecker
	storeTimeout time.Duration
	logger       *zap.Logger
	metrics      OutcomeRecorder
}

// NewGate wires a gate. A nil epochs checker honors every unrevoked token.
func NewGate(decoder ClaimDecoder, revocations RevocationChecker, epochs EpochChecker, cfg GateConfig) *Gate {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Gate{
		decoder:      decoder,
		revocations:  revocations,
		epochs:       epochs,
		storeTimeout: cfg.StoreTimeout,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Verify runs the full admission check against an Authorization header value.
// Store lookups share one deadline; when they cannot complete the request is
// refused rather than admitted.
func (g *Gate) Verify(ctx context.Context, header string) (*Identity, error) {
	credential, verr := extractBearer(header)
	if verr != nil {
		return nil, verr
	}

	claims, err := g.decoder.Decode(credential)
	if err != nil {
		return nil, &VerifyError{Kind: KindInvalidToken, Reason: decodeReason(err), Err: err}
	}

	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	revoked, err := g.revocations.IsRevoked(storeCtx, credential)
	if err != nil {
		return nil, storeFailure(err)
	}
	if revoked {
		return nil, &VerifyError{Kind: KindInvalidToken, Reason: ReasonRevoked}
	}

	if g.epochs != nil {
		honorable, err := g.epochs.Honorable(storeCtx, claims)
		if err != nil {
			return nil, storeFailure(err)
		}
		if !honorable {
			return nil, &VerifyError{Kind: KindInvalidToken, Reason: ReasonSuperseded}
		}
	}

	return &Identity{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     credential,
		Claims:    claims,
	}, nil
}

// Handle is the fiber guard for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	identity, err := g.Verify(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return g.reject(c, err)
	}
	g.record("admitted", "")
	AttachIdentity(c, identity)
	return c.Next()
}

func (g *Gate) reject(c *fiber.Ctx, err error) error {
	var verr *VerifyError
	if !errors.As(err, &verr) {
		verr = &VerifyError{Kind: KindServiceUnavailable, Reason: ReasonStoreError, Err: err}
	}
	g.record(verr.Kind.String(), verr.Reason)

	fields := []zap.Field{
		zap.String("kind", verr.Kind.String()),
		zap.String("reason", verr.Reason),
		zap.String("path", c.Path()),
		zap.String("ip", c.IP()),
	}
	if verr.Err != nil {
		fields = append(fields, zap.Error(verr.Err))
	}

	switch verr.Kind {
	case KindNotAuthenticated:
		g.logger.Debug("request not authenticated", fields...)
		return apperrors.NewNotAuthenticated()
	case KindInvalidToken:
		g.logger.Info("token rejected", fields...)
		return apperrors.NewInvalidToken()
	default:
		g.logger.Error("auth store unavailable", fields...)
		return apperrors.NewAuthServiceUnavailable(verr.Err)
	}
}

func (g *Gate) record(outcome, reason string) {
	if g.metrics != nil {
		g.metrics.RecordAuthOutcome(outcome, reason)
	}
}

// AttachIdentity makes identity visible to later handlers and to services
// reading the request's user context.
func AttachIdentity(c *fiber.Ctx, identity *Identity) {
	c.Locals(identityLocalsKey, identity)
	c.SetUserContext(ContextWithIdentity(c.UserContext(), identity))
}

// IdentityFromContext returns the identity attached by Gate.Handle.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(*Identity)
	return identity, ok && identity != nil
}

// ContextWithIdentity stores identity in ctx.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// UserIDFromContext returns the admitted user id carried by ctx.
func UserIDFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return "", false
	}
	return identity.UserID, true
}

func extractBearer(header string) (string, *VerifyError) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", &VerifyError{Kind: KindNotAuthenticated, Reason: ReasonMissingHeader}
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", &VerifyError{Kind: KindNotAuthenticated, Reason: ReasonBadScheme}
	}
	return parts[1], nil
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrSignature):
		return ReasonSignature
	default:
		return ReasonMalformed
	}
}

func storeFailure(err error) *VerifyError {
	reason := ReasonStoreError
	if errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonStoreTimeout
	}
	return &VerifyError{Kind: KindServiceUnavailable, Reason: reason, Err: err}
}
