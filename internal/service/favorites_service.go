package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/repository"
)

// FavoritesService manages the cocktails a user has starred.
type FavoritesService struct {
	favorites repository.FavoritesRepository
	cocktails repository.CocktailRepository
	logger    *zap.Logger
}

// NewFavoritesService builds the service.
func NewFavoritesService(favorites repository.FavoritesRepository, cocktails repository.CocktailRepository, logger *zap.Logger) *FavoritesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoritesService{favorites: favorites, cocktails: cocktails, logger: logger}
}

// Add stars an existing cocktail for userID.
func (s *FavoritesService) Add(ctx context.Context, userID string, cocktailID int64) error {
	if _, err := s.cocktails.GetByID(ctx, cocktailID); err != nil {
		return notFound(err, "cocktail", cocktailID)
	}
	return s.favorites.Add(ctx, userID, cocktailID)
}

// Remove unstars a cocktail. Removing an absent favorite succeeds.
func (s *FavoritesService) Remove(ctx context.Context, userID string, cocktailID int64) error {
	return s.favorites.Remove(ctx, userID, cocktailID)
}

// Contains reports whether userID starred cocktailID.
func (s *FavoritesService) Contains(ctx context.Context, userID string, cocktailID int64) (bool, error) {
	return s.favorites.Contains(ctx, userID, cocktailID)
}

// List returns the starred cocktails still present in the catalog. Favorites
// whose cocktail was deleted are dropped from the set.
func (s *FavoritesService) List(ctx context.Context, userID string) ([]domain.Cocktail, error) {
	ids, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	cocktails, err := s.cocktails.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(cocktails) == len(ids) {
		return cocktails, nil
	}

	present := make(map[int64]struct{}, len(cocktails))
	for _, c := range cocktails {
		present[c.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; ok {
			continue
		}
		if err := s.favorites.Remove(ctx, userID, id); err != nil {
			s.logger.Warn("drop deleted favorite", zap.String("user_id", userID), zap.Int64("cocktail_id", id), zap.Error(err))
			continue
		}
		s.logger.Debug("dropped deleted favorite", zap.String("user_id", userID), zap.Int64("cocktail_id", id))
	}
	return cocktails, nil
}
