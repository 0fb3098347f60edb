package repository

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

func newFavorites(t *testing.T) (FavoritesRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := persistence.NewRedis(config.RedisConfig{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(store.Close)
	return NewFavoritesRepository(store), mr
}

func TestFavorites_AddListRemove(t *testing.T) {
	ctx := context.Background()
	favorites, mr := newFavorites(t)

	require.NoError(t, favorites.Add(ctx, "user-1", 12))
	require.NoError(t, favorites.Add(ctx, "user-1", 3))
	require.NoError(t, favorites.Add(ctx, "user-1", 12))
	require.NoError(t, favorites.Add(ctx, "user-2", 7))

	ids, err := favorites.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 12}, ids)

	ok, err := favorites.Contains(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, favorites.Remove(ctx, "user-1", 3))
	ok, err = favorites.Contains(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := mr.Members("favorites:user-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
}

func TestFavorites_ListSkipsForeignMembers(t *testing.T) {
	ctx := context.Background()
	favorites, mr := newFavorites(t)

	_, err := mr.SAdd("favorites:user-1", "5", "not-an-id")
	require.NoError(t, err)

	ids, err := favorites.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
}

func TestFavorites_EmptyList(t *testing.T) {
	favorites, _ := newFavorites(t)

	ids, err := favorites.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
