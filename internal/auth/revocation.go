package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

const revokedKeyPrefix = "auth:revoked:"

// KeyValueStore is the subset of the shared store client used by auth.
type KeyValueStore interface {
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// RevocationChecker answers whether a credential has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, credential string) (bool, error)
}

// RevocationRegistry records explicitly invalidated credentials. Entries are
// keyed by a fingerprint of the credential and expire on their own.
type RevocationRegistry struct {
	store KeyValueStore
}

// NewRevocationRegistry builds a registry backed by store.
func NewRevocationRegistry(store KeyValueStore) *RevocationRegistry {
	return &RevocationRegistry{store: store}
}

// Revoke marks credential revoked for ttl. A non-positive ttl means the
// credential has already expired and nothing is written.
func (r *RevocationRegistry) Revoke(ctx context.Context, credential string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.store.SetWithExpiry(ctx, revokedKey(credential), "1", ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a live revocation entry exists for credential. The
// store is consulted on every call.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, credential string) (bool, error) {
	revoked, err := r.store.Exists(ctx, revokedKey(credential))
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}

// RevocationTTL bounds ttl by the remaining lifetime of a token expiring at
// expiresAt.
func RevocationTTL(ttl time.Duration, expiresAt, now time.Time) time.Duration {
	remaining := expiresAt.Sub(now)
	if ttl <= 0 || ttl > remaining {
		return remaining
	}
	return ttl
}

// Fingerprint returns the SHA-256 fingerprint used to key stored credentials so
// raw tokens never reach the store.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func revokedKey(credential string) string {
	return revokedKeyPrefix + Fingerprint(credential)
}
