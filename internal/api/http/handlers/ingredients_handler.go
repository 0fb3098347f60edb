package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/api/dto"
	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/service"
)

// IngredientCatalog is the ingredient half of the catalog service.
type IngredientCatalog interface {
	GetIngredient(ctx context.Context, id int64) (*domain.Ingredient, error)
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	CreateIngredient(ctx context.Context, in service.CreateIngredientInput) (*domain.Ingredient, error)
	RenameIngredient(ctx context.Context, id int64, name string) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, id int64) error
}

// IngredientsHandler serves /api/v1/ingredients.
type IngredientsHandler struct {
	catalog IngredientCatalog
}

// NewIngredientsHandler constructs handler.
func NewIngredientsHandler(catalog IngredientCatalog) *IngredientsHandler {
	return &IngredientsHandler{catalog: catalog}
}

// List GET /ingredients.
func (h *IngredientsHandler) List(c *fiber.Ctx) error {
	items, err := h.catalog.ListIngredients(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngredientList(items)})
}

// Get GET /ingredients/:id.
func (h *IngredientsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ing, err := h.catalog.GetIngredient(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngredientResponse(ing)})
}

// Create POST /ingredients.
func (h *IngredientsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIngredientRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ing, err := h.catalog.CreateIngredient(c.UserContext(), service.CreateIngredientInput{
		Name: req.Name,
		Unit: req.Unit,
		Type: req.Type,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewIngredientResponse(ing)})
}

// Rename PATCH /ingredients/:id.
func (h *IngredientsHandler) Rename(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RenameIngredientRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ing, err := h.catalog.RenameIngredient(c.UserContext(), id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngredientResponse(ing)})
}

// Delete DELETE /ingredients/:id.
func (h *IngredientsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteIngredient(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
