package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/persistence"
)

// testPostgresDSNEnv names a disposable database. Its tables are truncated.
const testPostgresDSNEnv = "DIONYSUS_TEST_POSTGRES_DSN"

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(testPostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testPostgresDSNEnv)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `
        TRUNCATE users, ingredients, cocktails, cocktail_ingredients, aliases, tags, cocktail_tags
        RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func seedIngredients(t *testing.T, repo IngredientRepository, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		ing := &domain.Ingredient{Name: name, Unit: domain.IngredientUnitML, Type: domain.IngredientTypeBase}
		require.NoError(t, repo.Create(context.Background(), ing))
		ids = append(ids, ing.ID)
	}
	return ids
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestPostgres_UserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestPool(t))

	user := &domain.User{Username: "bartender", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "bartender", byID.Username)

	byName, err := repo.GetByUsername(ctx, "bartender")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	err = repo.Create(ctx, &domain.User{Username: "bartender", PasswordHash: "other"})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgres_IngredientRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewIngredientRepository(newTestPool(t))

	gin := &domain.Ingredient{Name: "Gin", Unit: domain.IngredientUnitML, Type: domain.IngredientTypeBase}
	require.NoError(t, repo.Create(ctx, gin))

	bitters := &domain.Ingredient{Name: "Angostura", Unit: domain.IngredientUnitDrop, Type: domain.IngredientTypeBitter}
	require.NoError(t, repo.Upsert(ctx, bitters))
	again := &domain.Ingredient{Name: "Angostura", Unit: domain.IngredientUnitML, Type: domain.IngredientTypeBitter}
	require.NoError(t, repo.Upsert(ctx, again))
	assert.Equal(t, bitters.ID, again.ID)

	got, err := repo.GetByName(ctx, "Angostura")
	require.NoError(t, err)
	assert.Equal(t, domain.IngredientUnitML, got.Unit)

	require.NoError(t, repo.UpdateName(ctx, gin.ID, "London Dry Gin"))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Angostura", list[0].Name)
	assert.Equal(t, "London Dry Gin", list[1].Name)

	require.NoError(t, repo.Delete(ctx, gin.ID))
	assert.ErrorIs(t, repo.Delete(ctx, gin.ID), pgx.ErrNoRows)
	assert.ErrorIs(t, repo.UpdateName(ctx, gin.ID, "Gin"), pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, gin.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgres_CocktailCreateLoadsRelations(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	ids := seedIngredients(t, NewIngredientRepository(pool), "Gin", "Dry Vermouth")
	repo := NewCocktailRepository(pool)

	martini := &domain.Cocktail{
		Name:   "Martini",
		Recipe: "Stir with ice.",
		Ingredients: []domain.CocktailIngredient{
			{IngredientID: ids[0], Quantity: 60},
			{IngredientID: ids[1], Quantity: 10},
		},
		Aliases: []string{"Dry Martini"},
		Tags:    []string{"stirred", "classic"},
	}
	require.NoError(t, repo.Create(ctx, martini))
	assert.NotZero(t, martini.ID)

	got, err := repo.GetByName(ctx, "Martini")
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "Dry Vermouth", got.Ingredients[0].Name)
	assert.Equal(t, 10, got.Ingredients[0].Quantity)
	assert.Equal(t, []string{"Dry Martini"}, got.Aliases)
	assert.Equal(t, []string{"classic", "stirred"}, got.Tags)

	tags, err := NewTagRepository(pool).List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "classic", tags[0].Name)

	recipe := "Stir, strain, twist."
	got.Recipe = recipe
	require.NoError(t, repo.Update(ctx, got))
	updated, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe, updated.Recipe)

	require.NoError(t, repo.Delete(ctx, got.ID))
	assert.Equal(t, 0, countRows(t, pool, "aliases"))
	assert.Equal(t, 0, countRows(t, pool, "cocktail_ingredients"))
	assert.ErrorIs(t, repo.Delete(ctx, got.ID), pgx.ErrNoRows)
}

func TestPostgres_CocktailCreateRollsBack(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	ids := seedIngredients(t, NewIngredientRepository(pool), "Gin")
	repo := NewCocktailRepository(pool)

	require.NoError(t, repo.Create(ctx, &domain.Cocktail{
		Name:        "Martini",
		Recipe:      "Stir.",
		Ingredients: []domain.CocktailIngredient{{IngredientID: ids[0], Quantity: 60}},
		Aliases:     []string{"Dry Martini"},
	}))

	tests := []struct {
		name     string
		cocktail *domain.Cocktail
	}{
		{name: "unknown ingredient", cocktail: &domain.Cocktail{
			Name:        "Gimlet",
			Recipe:      "Shake.",
			Ingredients: []domain.CocktailIngredient{{IngredientID: ids[0], Quantity: 50}, {IngredientID: 9999, Quantity: 20}},
			Tags:        []string{"sour"},
		}},
		{name: "alias taken", cocktail: &domain.Cocktail{
			Name:        "Gibson",
			Recipe:      "Stir.",
			Ingredients: []domain.CocktailIngredient{{IngredientID: ids[0], Quantity: 60}},
			Aliases:     []string{"Dry Martini"},
			Tags:        []string{"onion"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, repo.Create(ctx, tt.cocktail))
			_, err := repo.GetByName(ctx, tt.cocktail.Name)
			assert.ErrorIs(t, err, pgx.ErrNoRows)
		})
	}
	assert.Equal(t, 1, countRows(t, pool, "cocktails"))
	assert.Equal(t, 1, countRows(t, pool, "cocktail_ingredients"))
	assert.Equal(t, 1, countRows(t, pool, "aliases"))
	assert.Equal(t, 0, countRows(t, pool, "tags"))
}

func TestPostgres_CocktailListByTagAndIDs(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	ids := seedIngredients(t, NewIngredientRepository(pool), "Gin", "Coffee Liqueur")
	repo := NewCocktailRepository(pool)

	martini := &domain.Cocktail{Name: "Martini", Recipe: "Stir.", Tags: []string{"classic"},
		Ingredients: []domain.CocktailIngredient{{IngredientID: ids[0], Quantity: 60}}}
	espresso := &domain.Cocktail{Name: "Espresso Martini", Recipe: "Shake.", Tags: []string{"modern"},
		Ingredients: []domain.CocktailIngredient{{IngredientID: ids[1], Quantity: 30}}}
	require.NoError(t, repo.Create(ctx, martini))
	require.NoError(t, repo.Create(ctx, espresso))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Espresso Martini", all[0].Name)

	classic, err := repo.List(ctx, "classic")
	require.NoError(t, err)
	require.Len(t, classic, 1)
	assert.Equal(t, "Martini", classic[0].Name)

	none, err := repo.List(ctx, "tiki")
	require.NoError(t, err)
	assert.Empty(t, none)

	byIDs, err := repo.ListByIDs(ctx, []int64{martini.ID, 9999})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, "Martini", byIDs[0].Name)
	require.Len(t, byIDs[0].Ingredients, 1)

	empty, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgres_CocktailMatch(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	ids := seedIngredients(t, NewIngredientRepository(pool), "Gin", "Campari", "Sweet Vermouth", "Lemon")
	gin, campari, vermouth, lemon := ids[0], ids[1], ids[2], ids[3]
	repo := NewCocktailRepository(pool)

	for _, c := range []*domain.Cocktail{
		{Name: "Negroni", Recipe: "Stir.", Tags: []string{"classic", "bitter"}, Ingredients: []domain.CocktailIngredient{
			{IngredientID: gin, Quantity: 30}, {IngredientID: campari, Quantity: 30}, {IngredientID: vermouth, Quantity: 30}}},
		{Name: "Americano", Recipe: "Build.", Tags: []string{"classic"}, Ingredients: []domain.CocktailIngredient{
			{IngredientID: campari, Quantity: 30}, {IngredientID: vermouth, Quantity: 30}}},
		{Name: "Gin Sour", Recipe: "Shake.", Tags: []string{"sour"}, Ingredients: []domain.CocktailIngredient{
			{IngredientID: gin, Quantity: 60}, {IngredientID: lemon, Quantity: 30}}},
	} {
		require.NoError(t, repo.Create(ctx, c))
	}

	matches, err := repo.Match(ctx, []int64{gin, campari, campari}, nil, 1)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "Negroni", matches[0].Name)
	assert.Equal(t, 3, matches[0].TotalCount)
	assert.Equal(t, 2, matches[0].OwnedCount)
	assert.Equal(t, 1, matches[0].MissingCount)
	assert.Equal(t, []string{"Sweet Vermouth"}, matches[0].MissingIngredients)
	require.Len(t, matches[0].Ingredients, 3)
	assert.Equal(t, "Americano", matches[1].Name)
	assert.Equal(t, "Gin Sour", matches[2].Name)
	assert.Equal(t, []string{"Lemon"}, matches[2].MissingIngredients)

	exact, err := repo.Match(ctx, []int64{campari, vermouth}, nil, 0)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "Americano", exact[0].Name)
	assert.Empty(t, exact[0].MissingIngredients)

	bitter, err := repo.Match(ctx, []int64{gin, campari}, []string{"bitter", "tiki"}, 1)
	require.NoError(t, err)
	require.Len(t, bitter, 1)
	assert.Equal(t, "Negroni", bitter[0].Name)

	nothing, err := repo.Match(ctx, nil, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, nothing)
}
