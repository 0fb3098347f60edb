package repository

import (
	"context"
	"sort"
	"strconv"
)

const favoritesKeyPrefix = "favorites:"

// SetStore is the set-valued part of the key-value store.
type SetStore interface {
	AddToSet(ctx context.Context, setKey string, members ...string) error
	RemoveFromSet(ctx context.Context, setKey string, members ...string) error
	SetContains(ctx context.Context, setKey, member string) (bool, error)
	SetMembers(ctx context.Context, setKey string) ([]string, error)
}

// FavoritesRepository keeps each user's favorite cocktail ids in a set.
type FavoritesRepository interface {
	Add(ctx context.Context, userID string, cocktailID int64) error
	Remove(ctx context.Context, userID string, cocktailID int64) error
	Contains(ctx context.Context, userID string, cocktailID int64) (bool, error)
	List(ctx context.Context, userID string) ([]int64, error)
}

type favoritesRepository struct {
	store SetStore
}

// NewFavoritesRepository returns a store-backed implementation.
func NewFavoritesRepository(store SetStore) FavoritesRepository {
	return &favoritesRepository{store: store}
}

func (r *favoritesRepository) Add(ctx context.Context, userID string, cocktailID int64) error {
	return r.store.AddToSet(ctx, favoritesKey(userID), strconv.FormatInt(cocktailID, 10))
}

func (r *favoritesRepository) Remove(ctx context.Context, userID string, cocktailID int64) error {
	return r.store.RemoveFromSet(ctx, favoritesKey(userID), strconv.FormatInt(cocktailID, 10))
}

func (r *favoritesRepository) Contains(ctx context.Context, userID string, cocktailID int64) (bool, error) {
	return r.store.SetContains(ctx, favoritesKey(userID), strconv.FormatInt(cocktailID, 10))
}

// List returns the favorites in ascending id order. Members that are not ids
// are skipped.
func (r *favoritesRepository) List(ctx context.Context, userID string) ([]int64, error) {
	members, err := r.store.SetMembers(ctx, favoritesKey(userID))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func favoritesKey(userID string) string {
	return favoritesKeyPrefix + userID
}
