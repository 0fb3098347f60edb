package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/api/dto"
	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/service"
)

// CocktailCatalog is the cocktail and tag half of the catalog service.
type CocktailCatalog interface {
	GetCocktail(ctx context.Context, id int64) (*domain.Cocktail, error)
	ListCocktails(ctx context.Context, tag string) ([]domain.Cocktail, error)
	CreateCocktail(ctx context.Context, in service.CreateCocktailInput) (*domain.Cocktail, error)
	UpdateCocktail(ctx context.Context, id int64, in service.UpdateCocktailInput) (*domain.Cocktail, error)
	DeleteCocktail(ctx context.Context, id int64) error
	MatchCocktails(ctx context.Context, in service.MatchCocktailsInput) ([]domain.CocktailMatch, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
}

// CocktailsHandler serves /api/v1/cocktails and /api/v1/tags.
type CocktailsHandler struct {
	catalog CocktailCatalog
}

// NewCocktailsHandler constructs handler.
func NewCocktailsHandler(catalog CocktailCatalog) *CocktailsHandler {
	return &CocktailsHandler{catalog: catalog}
}

// List GET /cocktails?tag=.
func (h *CocktailsHandler) List(c *fiber.Ctx) error {
	items, err := h.catalog.ListCocktails(c.UserContext(), strings.TrimSpace(c.Query("tag")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCocktailList(items)})
}

// Get GET /cocktails/:id.
func (h *CocktailsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	cocktail, err := h.catalog.GetCocktail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCocktailResponse(cocktail)})
}

// Match POST /cocktails/match.
func (h *CocktailsHandler) Match(c *fiber.Ctx) error {
	var req dto.MatchCocktailsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	matches, err := h.catalog.MatchCocktails(c.UserContext(), service.MatchCocktailsInput{
		IngredientIDs: req.IngredientIDs,
		Tags:          req.Tags,
		MaxMissing:    req.MaxMissing,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCocktailMatchList(matches)})
}

// Create POST /cocktails.
func (h *CocktailsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCocktailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.CreateCocktailInput{
		Name:    req.Name,
		Recipe:  req.Recipe,
		Aliases: req.Aliases,
		Tags:    req.Tags,
	}
	for _, ing := range req.Ingredients {
		input.Ingredients = append(input.Ingredients, service.CocktailIngredientInput{
			IngredientID: ing.IngredientID,
			Quantity:     ing.Quantity,
		})
	}
	cocktail, err := h.catalog.CreateCocktail(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCocktailResponse(cocktail)})
}

// Update PATCH /cocktails/:id.
func (h *CocktailsHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCocktailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cocktail, err := h.catalog.UpdateCocktail(c.UserContext(), id, service.UpdateCocktailInput{
		Name:   req.Name,
		Recipe: req.Recipe,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCocktailResponse(cocktail)})
}

// Delete DELETE /cocktails/:id.
func (h *CocktailsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCocktail(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Tags GET /tags.
func (h *CocktailsHandler) Tags(c *fiber.Ctx) error {
	tags, err := h.catalog.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTagList(tags)})
}
