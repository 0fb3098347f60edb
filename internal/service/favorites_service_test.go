package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xue-yuan/dionysus/internal/domain"
)

type memoryFavorites struct {
	sets      map[string]map[int64]struct{}
	removeErr error
}

func newMemoryFavorites() *memoryFavorites {
	return &memoryFavorites{sets: map[string]map[int64]struct{}{}}
}

func (m *memoryFavorites) Add(_ context.Context, userID string, id int64) error {
	if m.sets[userID] == nil {
		m.sets[userID] = map[int64]struct{}{}
	}
	m.sets[userID][id] = struct{}{}
	return nil
}

func (m *memoryFavorites) Remove(_ context.Context, userID string, id int64) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.sets[userID], id)
	return nil
}

func (m *memoryFavorites) Contains(_ context.Context, userID string, id int64) (bool, error) {
	_, ok := m.sets[userID][id]
	return ok, nil
}

func (m *memoryFavorites) List(_ context.Context, userID string) ([]int64, error) {
	ids := []int64{}
	for id := range m.sets[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func TestFavoritesService_AddRequiresExistingCocktail(t *testing.T) {
	ctx := context.Background()
	cocktails := newFakeCocktails()
	svc := NewFavoritesService(newMemoryFavorites(), cocktails, nil)

	err := svc.Add(ctx, "user-1", 42)
	assert.Equal(t, "RESULT_NOT_FOUND", domainCode(t, err))
}

func TestFavoritesService_ListDropsDeletedCocktails(t *testing.T) {
	ctx := context.Background()
	cocktails := newFakeCocktails()
	favorites := newMemoryFavorites()
	svc := NewFavoritesService(favorites, cocktails, nil)

	martini := &domain.Cocktail{Name: "Martini", Recipe: "Stir."}
	negroni := &domain.Cocktail{Name: "Negroni", Recipe: "Stir."}
	require.NoError(t, cocktails.Create(ctx, martini))
	require.NoError(t, cocktails.Create(ctx, negroni))

	require.NoError(t, svc.Add(ctx, "user-1", martini.ID))
	require.NoError(t, svc.Add(ctx, "user-1", negroni.ID))
	require.NoError(t, cocktails.Delete(ctx, negroni.ID))

	lookups := cocktails.getCalls
	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, lookups, cocktails.getCalls, "favorites load in one batch")
	require.Len(t, list, 1)
	assert.Equal(t, "Martini", list[0].Name)

	ok, err := svc.Contains(ctx, "user-1", negroni.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Remove(ctx, "user-1", martini.ID))
	require.NoError(t, svc.Remove(ctx, "user-1", martini.ID))
	list, err = svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFavoritesService_ListLogsFailedCleanup(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	cocktails := newFakeCocktails()
	favorites := newMemoryFavorites()
	svc := NewFavoritesService(favorites, cocktails, zap.New(core))

	sour := &domain.Cocktail{Name: "Whiskey Sour", Recipe: "Shake."}
	require.NoError(t, cocktails.Create(ctx, sour))
	require.NoError(t, svc.Add(ctx, "user-1", sour.ID))
	require.NoError(t, cocktails.Delete(ctx, sour.ID))
	favorites.removeErr = errors.New("redis: connection refused")

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	entries := logs.FilterMessage("drop deleted favorite").All()
	require.Len(t, entries, 1)
	assert.Equal(t, sour.ID, entries[0].ContextMap()["cocktail_id"])
}
