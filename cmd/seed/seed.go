package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xue-yuan/dionysus/internal/domain"
)

// seedFile is the on-disk catalog. JSON input is read through the YAML
// decoder, so both formats share these tags.
type seedFile struct {
	Ingredients []ingredientSeed `yaml:"ingredients"`
	Cocktails   []cocktailSeed   `yaml:"cocktails"`
}

type ingredientSeed struct {
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
	Type string `yaml:"type"`
}

type cocktailSeed struct {
	Name        string             `yaml:"name"`
	Recipe      string             `yaml:"recipe"`
	Ingredients []cocktailLineSeed `yaml:"ingredients"`
	Aliases     []string           `yaml:"aliases"`
	Tags        []string           `yaml:"tags"`
}

type cocktailLineSeed struct {
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
}

type ingredientUpserter interface {
	Upsert(ctx context.Context, ing *domain.Ingredient) error
}

type cocktailStore interface {
	GetByName(ctx context.Context, name string) (*domain.Cocktail, error)
	Create(ctx context.Context, cocktail *domain.Cocktail) error
}

type seedResult struct {
	Ingredients      int
	CocktailsCreated int
	CocktailsSkipped int
}

type seeder struct {
	ingredients ingredientUpserter
	cocktails   cocktailStore
	logger      *zap.Logger
}

func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (*seedFile, error) {
	var data seedFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

// Run upserts ingredients by name and creates cocktails that do not exist yet.
func (s *seeder) Run(ctx context.Context, data *seedFile) (seedResult, error) {
	var result seedResult
	known := make(map[string]domain.Ingredient, len(data.Ingredients))

	for _, in := range data.Ingredients {
		ing, err := toIngredient(in)
		if err != nil {
			return result, err
		}
		if err := s.ingredients.Upsert(ctx, &ing); err != nil {
			return result, fmt.Errorf("upsert ingredient %q: %w", ing.Name, err)
		}
		known[ing.Name] = ing
		result.Ingredients++
	}

	for _, in := range data.Cocktails {
		name := strings.TrimSpace(in.Name)
		_, err := s.cocktails.GetByName(ctx, name)
		switch {
		case err == nil:
			s.logger.Debug("cocktail exists", zap.String("name", name))
			result.CocktailsSkipped++
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return result, fmt.Errorf("lookup cocktail %q: %w", name, err)
		}

		cocktail, err := toCocktail(in, known)
		if err != nil {
			return result, err
		}
		if err := s.cocktails.Create(ctx, cocktail); err != nil {
			return result, fmt.Errorf("create cocktail %q: %w", name, err)
		}
		s.logger.Info("cocktail created", zap.String("name", name), zap.Int64("id", cocktail.ID))
		result.CocktailsCreated++
	}
	return result, nil
}

func toIngredient(in ingredientSeed) (domain.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > domain.MaxNameLength {
		return domain.Ingredient{}, fmt.Errorf("ingredient %q: invalid name", in.Name)
	}
	unit, err := domain.ParseIngredientUnit(strings.ToUpper(strings.TrimSpace(in.Unit)))
	if err != nil {
		return domain.Ingredient{}, fmt.Errorf("ingredient %q: %w", name, err)
	}
	kind, err := domain.ParseIngredientType(strings.ToUpper(strings.TrimSpace(in.Type)))
	if err != nil {
		return domain.Ingredient{}, fmt.Errorf("ingredient %q: %w", name, err)
	}
	return domain.Ingredient{Name: name, Unit: unit, Type: kind}, nil
}

func toCocktail(in cocktailSeed, known map[string]domain.Ingredient) (*domain.Cocktail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Recipe) == "" {
		return nil, fmt.Errorf("cocktail %q: name and recipe required", in.Name)
	}
	if len(in.Ingredients) == 0 {
		return nil, fmt.Errorf("cocktail %q: no ingredients", name)
	}
	cocktail := &domain.Cocktail{
		Name:    name,
		Recipe:  strings.TrimSpace(in.Recipe),
		Aliases: in.Aliases,
		Tags:    in.Tags,
	}
	for _, line := range in.Ingredients {
		ing, ok := known[strings.TrimSpace(line.Name)]
		if !ok {
			return nil, fmt.Errorf("cocktail %q: unknown ingredient %q", name, line.Name)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("cocktail %q: quantity for %q must be positive", name, line.Name)
		}
		cocktail.Ingredients = append(cocktail.Ingredients, domain.CocktailIngredient{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			Quantity:     line.Quantity,
		})
	}
	return cocktail, nil
}
