package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/auth"
	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/events"
	"github.com/xue-yuan/dionysus/internal/repository"
	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

// CreateIngredientInput carries a new ingredient.
type CreateIngredientInput struct {
	Name string
	Unit string
	Type string
}

// CocktailIngredientInput links an ingredient into a new cocktail.
type CocktailIngredientInput struct {
	IngredientID int64
	Quantity     int
}

// CreateCocktailInput carries a new cocktail with its links.
type CreateCocktailInput struct {
	Name        string
	Recipe      string
	Ingredients []CocktailIngredientInput
	Aliases     []string
	Tags        []string
}

// MatchCocktailsInput describes the ingredients on hand. MaxMissing defaults
// to DefaultMaxMissing when nil.
type MatchCocktailsInput struct {
	IngredientIDs []int64
	Tags          []string
	MaxMissing    *int
}

const (
	// DefaultMaxMissing is how many ingredients a match may lack by default.
	DefaultMaxMissing = 1
	maxMissingLimit   = 5
)

// UpdateCocktailInput carries editable cocktail fields. Nil fields are kept.
type UpdateCocktailInput struct {
	Name   *string
	Recipe *string
}

// CatalogService manages ingredients, cocktails and tags.
type CatalogService struct {
	ingredients repository.IngredientRepository
	cocktails   repository.CocktailRepository
	tags        repository.TagRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewCatalogService builds the service.
func NewCatalogService(
	ingredients repository.IngredientRepository,
	cocktails repository.CocktailRepository,
	tags repository.TagRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		ingredients: ingredients,
		cocktails:   cocktails,
		tags:        tags,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// GetIngredient returns one ingredient.
func (s *CatalogService) GetIngredient(ctx context.Context, id int64) (*domain.Ingredient, error) {
	ing, err := s.ingredients.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return ing, nil
}

// ListIngredients returns every ingredient ordered by name.
func (s *CatalogService) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.ingredients.List(ctx)
}

// CreateIngredient validates and stores a new ingredient.
func (s *CatalogService) CreateIngredient(ctx context.Context, in CreateIngredientInput) (*domain.Ingredient, error) {
	details := map[string]any{}
	name := strings.TrimSpace(in.Name)
	if msg := checkName(name, domain.MaxNameLength); msg != "" {
		details["name"] = msg
	}
	unit, err := domain.ParseIngredientUnit(strings.ToUpper(in.Unit))
	if err != nil {
		details["unit"] = err.Error()
	}
	ingType, err := domain.ParseIngredientType(strings.ToUpper(in.Type))
	if err != nil {
		details["type"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ingredient", details)
	}

	ing := &domain.Ingredient{Name: name, Unit: unit, Type: ingType}
	if err := s.ingredients.Create(ctx, ing); err != nil {
		return nil, err
	}
	return ing, nil
}

// RenameIngredient changes an ingredient's name and returns the result.
func (s *CatalogService) RenameIngredient(ctx context.Context, id int64, name string) (*domain.Ingredient, error) {
	name = strings.TrimSpace(name)
	if msg := checkName(name, domain.MaxNameLength); msg != "" {
		return nil, apperrors.NewValidationError("invalid ingredient", map[string]any{"name": msg})
	}
	if err := s.ingredients.UpdateName(ctx, id, name); err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return s.GetIngredient(ctx, id)
}

// DeleteIngredient removes an ingredient not used by any cocktail.
func (s *CatalogService) DeleteIngredient(ctx context.Context, id int64) error {
	return notFound(s.ingredients.Delete(ctx, id), "ingredient", id)
}

// GetCocktail returns one cocktail with ingredients, aliases and tags.
func (s *CatalogService) GetCocktail(ctx context.Context, id int64) (*domain.Cocktail, error) {
	cocktail, err := s.cocktails.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cocktail", id)
	}
	return cocktail, nil
}

// ListCocktails returns all cocktails, or those tagged with tag.
func (s *CatalogService) ListCocktails(ctx context.Context, tag string) ([]domain.Cocktail, error) {
	return s.cocktails.List(ctx, strings.TrimSpace(tag))
}

// CreateCocktail validates and stores a cocktail with all of its links.
func (s *CatalogService) CreateCocktail(ctx context.Context, in CreateCocktailInput) (*domain.Cocktail, error) {
	cocktail, err := buildCocktail(in)
	if err != nil {
		return nil, err
	}
	if err := s.cocktails.Create(ctx, cocktail); err != nil {
		return nil, err
	}

	created, err := s.cocktails.GetByID(ctx, cocktail.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventCocktailCreated, events.CocktailPayload{CocktailID: created.ID, Name: created.Name})
	return created, nil
}

// UpdateCocktail changes a cocktail's name or recipe.
func (s *CatalogService) UpdateCocktail(ctx context.Context, id int64, in UpdateCocktailInput) (*domain.Cocktail, error) {
	current, err := s.GetCocktail(ctx, id)
	if err != nil {
		return nil, err
	}

	details := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if msg := checkName(name, domain.MaxNameLength); msg != "" {
			details["name"] = msg
		}
		current.Name = name
	}
	if in.Recipe != nil {
		if strings.TrimSpace(*in.Recipe) == "" {
			details["recipe"] = "must not be empty"
		}
		current.Recipe = *in.Recipe
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid cocktail", details)
	}

	if err := s.cocktails.Update(ctx, current); err != nil {
		return nil, notFound(err, "cocktail", id)
	}
	return current, nil
}

// DeleteCocktail removes a cocktail and its links.
func (s *CatalogService) DeleteCocktail(ctx context.Context, id int64) error {
	if err := s.cocktails.Delete(ctx, id); err != nil {
		return notFound(err, "cocktail", id)
	}
	s.publish(ctx, events.EventCocktailDeleted, events.CocktailPayload{CocktailID: id})
	return nil
}

// MatchCocktails ranks the cocktails that can be made, or nearly made, from
// the given ingredients. Fewest missing ingredients come first, then most
// owned, then name.
func (s *CatalogService) MatchCocktails(ctx context.Context, in MatchCocktailsInput) ([]domain.CocktailMatch, error) {
	details := map[string]any{}
	for _, id := range in.IngredientIDs {
		if id <= 0 {
			details["ingredient_ids"] = "must be positive ids"
			break
		}
	}
	tags, msg := normalizeNames(in.Tags, domain.MaxTagLength)
	if msg != "" {
		details["tags"] = msg
	}
	maxMissing := DefaultMaxMissing
	if in.MaxMissing != nil {
		maxMissing = *in.MaxMissing
		if maxMissing < 0 || maxMissing > maxMissingLimit {
			details["max_missing"] = "must be between 0 and 5"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid match request", details)
	}
	if len(in.IngredientIDs) == 0 {
		return []domain.CocktailMatch{}, nil
	}
	return s.cocktails.Match(ctx, in.IngredientIDs, tags, maxMissing)
}

// ListTags returns every tag ordered by name.
func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return s.tags.List(ctx)
}

func (s *CatalogService) publish(ctx context.Context, eventType events.EventType, payload events.CocktailPayload) {
	if s.dispatcher == nil {
		return
	}
	actor, _ := auth.UserIDFromContext(ctx)
	if err := s.dispatcher.Publish(ctx, events.New(eventType, actor, payload)); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func buildCocktail(in CreateCocktailInput) (*domain.Cocktail, error) {
	details := map[string]any{}
	name := strings.TrimSpace(in.Name)
	if msg := checkName(name, domain.MaxNameLength); msg != "" {
		details["name"] = msg
	}
	if strings.TrimSpace(in.Recipe) == "" {
		details["recipe"] = "must not be empty"
	}
	if len(in.Ingredients) == 0 {
		details["ingredients"] = "at least one ingredient is required"
	}

	seen := make(map[int64]struct{}, len(in.Ingredients))
	links := make([]domain.CocktailIngredient, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		if ing.Quantity <= 0 || ing.Quantity > 32767 {
			details["ingredients"] = "quantity must be between 1 and 32767"
			continue
		}
		if _, dup := seen[ing.IngredientID]; dup {
			details["ingredients"] = "ingredient listed twice"
			continue
		}
		seen[ing.IngredientID] = struct{}{}
		links = append(links, domain.CocktailIngredient{IngredientID: ing.IngredientID, Quantity: ing.Quantity})
	}

	aliases, msg := normalizeNames(in.Aliases, domain.MaxNameLength)
	if msg != "" {
		details["aliases"] = msg
	}
	tags, msg := normalizeNames(in.Tags, domain.MaxTagLength)
	if msg != "" {
		details["tags"] = msg
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid cocktail", details)
	}
	return &domain.Cocktail{
		Name:        name,
		Recipe:      in.Recipe,
		Ingredients: links,
		Aliases:     aliases,
		Tags:        tags,
	}, nil
}

// normalizeNames trims and de-duplicates values, rejecting blank or overlong
// entries.
func normalizeNames(values []string, max int) ([]string, string) {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if msg := checkName(v, max); msg != "" {
			return nil, msg
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, ""
}

func checkName(name string, max int) string {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "must not be empty"
	case n > max:
		return "is too long"
	}
	return ""
}

// notFound turns a missing row into a RESULT_NOT_FOUND error for resource.
func notFound(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
