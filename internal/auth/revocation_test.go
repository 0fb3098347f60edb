package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/config"
	"github.com/xue-yuan/dionysus/internal/persistence"
)

func newTestStore(t *testing.T) (*persistence.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := persistence.NewRedis(config.RedisConfig{
		Addr:        mr.Addr(),
		PoolSize:    4,
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(store.Close)
	return store, mr
}

func TestRevocationRegistry_RevokeThenCheck(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	registry := NewRevocationRegistry(store)

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "token-a", time.Hour))

	revoked, err = registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = registry.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationRegistry_RevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	registry := NewRevocationRegistry(store)

	require.NoError(t, registry.Revoke(ctx, "token-a", time.Hour))
	require.NoError(t, registry.Revoke(ctx, "token-a", time.Hour))

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationRegistry_EntryExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	registry := NewRevocationRegistry(store)

	require.NoError(t, registry.Revoke(ctx, "token-a", time.Minute))
	mr.FastForward(time.Minute + time.Second)

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationRegistry_StoresFingerprintOnly(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	registry := NewRevocationRegistry(store)

	require.NoError(t, registry.Revoke(ctx, "raw-token-value", time.Hour))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, revokedKeyPrefix+Fingerprint("raw-token-value"), keys[0])
	assert.NotContains(t, keys[0], "raw-token-value")
}

func TestRevocationRegistry_NonPositiveTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	registry := NewRevocationRegistry(store)

	require.NoError(t, registry.Revoke(ctx, "token-a", 0))
	require.NoError(t, registry.Revoke(ctx, "token-a", -time.Second))
	assert.Empty(t, mr.Keys())
}

func TestRevocationRegistry_StoreDownIsError(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	registry := NewRevocationRegistry(store)
	mr.Close()

	_, err := registry.IsRevoked(ctx, "token-a")
	require.ErrorIs(t, err, persistence.ErrStoreUnavailable)

	err = registry.Revoke(ctx, "token-a", time.Hour)
	require.ErrorIs(t, err, persistence.ErrStoreUnavailable)
}

func TestRevocationTTL(t *testing.T) {
	now := t0
	exp := t0.Add(30 * time.Minute)

	assert.Equal(t, 30*time.Minute, RevocationTTL(0, exp, now))
	assert.Equal(t, 10*time.Minute, RevocationTTL(10*time.Minute, exp, now))
	assert.Equal(t, 30*time.Minute, RevocationTTL(time.Hour, exp, now))
	assert.LessOrEqual(t, RevocationTTL(time.Hour, t0.Add(-time.Second), now), time.Duration(0))
}

func TestFingerprintIsStable(t *testing.T) {
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
	assert.NotContains(t, Fingerprint("abc"), "=")
}
