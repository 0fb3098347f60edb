package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/api/dto"
	"github.com/xue-yuan/dionysus/internal/auth"
	"github.com/xue-yuan/dionysus/internal/domain"
)

// Favorites is the per-user favorites surface.
type Favorites interface {
	Add(ctx context.Context, userID string, cocktailID int64) error
	Remove(ctx context.Context, userID string, cocktailID int64) error
	Contains(ctx context.Context, userID string, cocktailID int64) (bool, error)
	List(ctx context.Context, userID string) ([]domain.Cocktail, error)
}

// FavoritesHandler serves /api/v1/favorites for the authenticated caller.
type FavoritesHandler struct {
	favorites Favorites
}

// NewFavoritesHandler constructs handler.
func NewFavoritesHandler(favorites Favorites) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites}
}

// List GET /favorites.
func (h *FavoritesHandler) List(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.favorites.List(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCocktailList(items)})
}

// Status GET /favorites/:id.
func (h *FavoritesHandler) Status(c *fiber.Ctx) error {
	identity, id, err := h.target(c)
	if err != nil {
		return err
	}
	ok, err := h.favorites.Contains(c.UserContext(), identity.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FavoriteStatusResponse{CocktailID: id, Favorite: ok}})
}

// Add PUT /favorites/:id.
func (h *FavoritesHandler) Add(c *fiber.Ctx) error {
	identity, id, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.favorites.Add(c.UserContext(), identity.UserID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Remove DELETE /favorites/:id.
func (h *FavoritesHandler) Remove(c *fiber.Ctx) error {
	identity, id, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.favorites.Remove(c.UserContext(), identity.UserID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FavoritesHandler) target(c *fiber.Ctx) (*auth.Identity, int64, error) {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil, 0, err
	}
	return identity, id, nil
}
