package dto

import "github.com/xue-yuan/dionysus/internal/domain"

// CreateIngredientRequest payload for POST /ingredients.
type CreateIngredientRequest struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
	Type string `json:"type"`
}

// RenameIngredientRequest payload for PATCH /ingredients/:id.
type RenameIngredientRequest struct {
	Name string `json:"name"`
}

// IngredientResponse mirrors domain.Ingredient.
type IngredientResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
	Type string `json:"type"`
}

// CocktailIngredientRequest links an ingredient into a new cocktail.
type CocktailIngredientRequest struct {
	IngredientID int64 `json:"ingredient_id"`
	Quantity     int   `json:"quantity"`
}

// CreateCocktailRequest payload for POST /cocktails.
type CreateCocktailRequest struct {
	Name        string                      `json:"name"`
	Recipe      string                      `json:"recipe"`
	Ingredients []CocktailIngredientRequest `json:"ingredients"`
	Aliases     []string                    `json:"aliases"`
	Tags        []string                    `json:"tags"`
}

// UpdateCocktailRequest payload for PATCH /cocktails/:id. Absent fields are kept.
type UpdateCocktailRequest struct {
	Name   *string `json:"name"`
	Recipe *string `json:"recipe"`
}

// MatchCocktailsRequest payload for POST /cocktails/match. MaxMissing is
// optional.
type MatchCocktailsRequest struct {
	IngredientIDs []int64  `json:"ingredient_ids"`
	Tags          []string `json:"tags"`
	MaxMissing    *int     `json:"max_missing"`
}

// CocktailIngredientResponse is one line of a recipe.
type CocktailIngredientResponse struct {
	IngredientID int64  `json:"ingredient_id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	Quantity     int    `json:"quantity"`
}

// CocktailResponse is the full cocktail view.
type CocktailResponse struct {
	ID          int64                        `json:"id"`
	Name        string                       `json:"name"`
	Recipe      string                       `json:"recipe"`
	Ingredients []CocktailIngredientResponse `json:"ingredients"`
	Aliases     []string                     `json:"aliases"`
	Tags        []string                     `json:"tags"`
}

// CocktailMatchResponse is a cocktail ranked against the ingredients on hand.
type CocktailMatchResponse struct {
	CocktailResponse
	TotalCount         int      `json:"total_count"`
	OwnedCount         int      `json:"owned_count"`
	MissingCount       int      `json:"missing_count"`
	MissingIngredients []string `json:"missing_ingredients"`
}

// TagResponse mirrors domain.Tag.
type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FavoriteStatusResponse answers GET /favorites/:id.
type FavoriteStatusResponse struct {
	CocktailID int64 `json:"cocktail_id"`
	Favorite   bool  `json:"favorite"`
}

func NewIngredientResponse(i *domain.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, Unit: string(i.Unit), Type: string(i.Type)}
}

func NewIngredientList(items []domain.Ingredient) []IngredientResponse {
	out := make([]IngredientResponse, 0, len(items))
	for i := range items {
		out = append(out, NewIngredientResponse(&items[i]))
	}
	return out
}

func NewCocktailResponse(c *domain.Cocktail) CocktailResponse {
	ingredients := make([]CocktailIngredientResponse, 0, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		ingredients = append(ingredients, CocktailIngredientResponse{
			IngredientID: ing.IngredientID,
			Name:         ing.Name,
			Unit:         string(ing.Unit),
			Quantity:     ing.Quantity,
		})
	}
	return CocktailResponse{
		ID:          c.ID,
		Name:        c.Name,
		Recipe:      c.Recipe,
		Ingredients: ingredients,
		Aliases:     nonNil(c.Aliases),
		Tags:        nonNil(c.Tags),
	}
}

func NewCocktailList(items []domain.Cocktail) []CocktailResponse {
	out := make([]CocktailResponse, 0, len(items))
	for i := range items {
		out = append(out, NewCocktailResponse(&items[i]))
	}
	return out
}

func NewCocktailMatchList(items []domain.CocktailMatch) []CocktailMatchResponse {
	out := make([]CocktailMatchResponse, 0, len(items))
	for i := range items {
		m := &items[i]
		out = append(out, CocktailMatchResponse{
			CocktailResponse:   NewCocktailResponse(&m.Cocktail),
			TotalCount:         m.TotalCount,
			OwnedCount:         m.OwnedCount,
			MissingCount:       m.MissingCount,
			MissingIngredients: nonNil(m.MissingIngredients),
		})
	}
	return out
}

func NewTagList(items []domain.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TagResponse{ID: t.ID, Name: t.Name})
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
