package domain

// CocktailIngredient links an ingredient into a cocktail with a quantity in
// the ingredient's unit.
type CocktailIngredient struct {
	IngredientID int64
	Name         string
	Unit         IngredientUnit
	Quantity     int
}

// Cocktail is the catalog aggregate.
type Cocktail struct {
	ID          int64
	Name        string
	Recipe      string
	Ingredients []CocktailIngredient
	Aliases     []string
	Tags        []string
}

// Tag labels cocktails for filtering.
type Tag struct {
	ID   int64
	Name string
}

// CocktailMatch ranks a cocktail against the ingredients someone has on hand.
type CocktailMatch struct {
	Cocktail
	TotalCount         int
	OwnedCount         int
	MissingCount       int
	MissingIngredients []string
}
