package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const epochKeyPrefix = "auth:epoch:"

// ErrStaleGeneration is returned when a token that is no longer current asks
// for a replacement.
var ErrStaleGeneration = errors.New("auth: token is not the current generation")

// EpochChecker decides whether a decoded token belongs to the honored
// generation of its identity.
type EpochChecker interface {
	Honorable(ctx context.Context, claims *Claims) (bool, error)
}

// EpochStore is a KeyValueStore that can also read-modify-write one key
// atomically.
type EpochStore interface {
	KeyValueStore
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current string, found bool) (string, error)) error
}

// epochRecord is the stored generation state of one identity. Times are unix
// seconds. A record with no Current honors nothing.
type epochRecord struct {
	Current       string `json:"current"`
	CurrentUntil  int64  `json:"current_until"`
	Previous      string `json:"previous,omitempty"`
	PreviousUntil int64  `json:"previous_until,omitempty"`
}

// Epochs tracks which token ids of an identity are still honored. The newest
// token is always honored; the one it replaced is honored until a grace
// deadline that never outlives either token.
type Epochs struct {
	store       EpochStore
	tokenTTL    time.Duration
	oldTokenTTL time.Duration
	now         func() time.Time
}

// EpochOption customizes Epochs.
type EpochOption func(*Epochs)

// WithEpochClock sets the time source used for grace deadlines.
func WithEpochClock(now func() time.Time) EpochOption {
	return func(e *Epochs) {
		e.now = now
	}
}

// NewEpochs builds a generation tracker. Records expire after tokenTTL and a
// replaced token keeps at most oldTokenTTL of grace.
func NewEpochs(store EpochStore, tokenTTL, oldTokenTTL time.Duration, opts ...EpochOption) *Epochs {
	e := &Epochs{store: store, tokenTTL: tokenTTL, oldTokenTTL: oldTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin starts a new generation for a fresh login. The token issued by the
// previous login keeps the usual grace window.
func (e *Epochs) Begin(ctx context.Context, issued IssuedToken) error {
	return e.update(ctx, issued.UserID, func(existing epochRecord, found bool) (epochRecord, error) {
		rec := epochRecord{Current: issued.ID, CurrentUntil: issued.ExpiresAt.Unix()}
		if found && existing.Current != "" && existing.Current != issued.ID {
			rec.Previous = existing.Current
			rec.PreviousUntil = e.graceDeadline(time.Unix(existing.CurrentUntil, 0), issued.ExpiresAt)
		}
		return rec, nil
	})
}

// Rotate replaces old with issued. old stays honored until
// min(now+oldTokenTTL, old expiry, issued expiry). Only the current token may
// rotate; a token already replaced gets ErrStaleGeneration and the record is
// left untouched.
func (e *Epochs) Rotate(ctx context.Context, old *Claims, issued IssuedToken) error {
	if old == nil || old.ExpiresAt == nil {
		return errors.New("rotate: old claims required")
	}
	if old.UserID != issued.UserID {
		return errors.New("rotate: identity mismatch")
	}
	return e.update(ctx, issued.UserID, func(existing epochRecord, found bool) (epochRecord, error) {
		if found && existing.Current != old.ID {
			return epochRecord{}, ErrStaleGeneration
		}
		return epochRecord{
			Current:       issued.ID,
			CurrentUntil:  issued.ExpiresAt.Unix(),
			Previous:      old.ID,
			PreviousUntil: e.graceDeadline(old.ExpiresAt.Time, issued.ExpiresAt),
		}, nil
	})
}

// End stops honoring every outstanding token of userID until the next Begin.
func (e *Epochs) End(ctx context.Context, userID string) error {
	return e.update(ctx, userID, func(epochRecord, bool) (epochRecord, error) {
		return epochRecord{}, nil
	})
}

// Honorable reports whether claims may still be admitted. Identities without a
// record have never rotated and every valid token is honored.
func (e *Epochs) Honorable(ctx context.Context, claims *Claims) (bool, error) {
	rec, found, err := e.load(ctx, claims.UserID)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	switch {
	case claims.ID == "":
		return false, nil
	case claims.ID == rec.Current:
		return true, nil
	case claims.ID == rec.Previous:
		return e.now().Unix() <= rec.PreviousUntil, nil
	default:
		return false, nil
	}
}

func (e *Epochs) graceDeadline(oldExpiry, newExpiry time.Time) int64 {
	deadline := e.now().Add(e.oldTokenTTL).Unix()
	if v := oldExpiry.Unix(); v < deadline {
		deadline = v
	}
	if v := newExpiry.Unix(); v < deadline {
		deadline = v
	}
	return deadline
}

func (e *Epochs) load(ctx context.Context, userID string) (epochRecord, bool, error) {
	raw, found, err := e.store.Get(ctx, epochKey(userID))
	if err != nil {
		return epochRecord{}, false, fmt.Errorf("load epoch: %w", err)
	}
	if !found {
		return epochRecord{}, false, nil
	}
	var rec epochRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return epochRecord{}, false, fmt.Errorf("decode epoch: %w", err)
	}
	return rec, true, nil
}

func (e *Epochs) update(ctx context.Context, userID string, next func(existing epochRecord, found bool) (epochRecord, error)) error {
	err := e.store.Update(ctx, epochKey(userID), e.tokenTTL, func(raw string, found bool) (string, error) {
		var existing epochRecord
		if found {
			if err := json.Unmarshal([]byte(raw), &existing); err != nil {
				return "", fmt.Errorf("decode epoch: %w", err)
			}
		}
		rec, err := next(existing, found)
		if err != nil {
			return "", err
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("encode epoch: %w", err)
		}
		return string(payload), nil
	})
	if err != nil && !errors.Is(err, ErrStaleGeneration) {
		return fmt.Errorf("save epoch: %w", err)
	}
	return err
}

func epochKey(userID string) string {
	return epochKeyPrefix + userID
}
