package domain

import "fmt"

// IngredientType classifies ingredients on the back bar.
type IngredientType string

const (
	IngredientTypeBase    IngredientType = "BASE"
	IngredientTypeLiqueur IngredientType = "LIQUEUR"
	IngredientTypeWine    IngredientType = "WINE"
	IngredientTypeBeer    IngredientType = "BEER"
	IngredientTypeBitter  IngredientType = "BITTER"
	IngredientTypeSyrup   IngredientType = "SYRUP"
	IngredientTypeFruit   IngredientType = "FRUIT"
	IngredientTypeMixer   IngredientType = "MIXER"
)

// IngredientUnit is the measure a cocktail quantity is expressed in.
type IngredientUnit string

const (
	IngredientUnitML   IngredientUnit = "ML"
	IngredientUnitDrop IngredientUnit = "DROP"
)

// Name length limits mirrored by the schema.
const (
	MaxNameLength = 63
	MaxTagLength  = 31
)

// Ingredient is a single component that cocktails are built from.
type Ingredient struct {
	ID   int64
	Name string
	Unit IngredientUnit
	Type IngredientType
}

// ParseIngredientType validates s against the known types.
func ParseIngredientType(s string) (IngredientType, error) {
	switch t := IngredientType(s); t {
	case IngredientTypeBase, IngredientTypeLiqueur, IngredientTypeWine, IngredientTypeBeer,
		IngredientTypeBitter, IngredientTypeSyrup, IngredientTypeFruit, IngredientTypeMixer:
		return t, nil
	}
	return "", fmt.Errorf("unknown ingredient type %q", s)
}

// ParseIngredientUnit validates s against the known units.
func ParseIngredientUnit(s string) (IngredientUnit, error) {
	switch u := IngredientUnit(s); u {
	case IngredientUnitML, IngredientUnitDrop:
		return u, nil
	}
	return "", fmt.Errorf("unknown ingredient unit %q", s)
}
