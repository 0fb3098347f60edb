package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xue-yuan/dionysus/internal/domain"
)

// IngredientRepository persists ingredients.
type IngredientRepository interface {
	Create(ctx context.Context, ingredient *domain.Ingredient) error
	Upsert(ctx context.Context, ingredient *domain.Ingredient) error
	GetByID(ctx context.Context, id int64) (*domain.Ingredient, error)
	GetByName(ctx context.Context, name string) (*domain.Ingredient, error)
	List(ctx context.Context) ([]domain.Ingredient, error)
	UpdateName(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type ingredientRepository struct {
	pool *pgxpool.Pool
}

// NewIngredientRepository returns a Postgres-backed implementation.
func NewIngredientRepository(pool *pgxpool.Pool) IngredientRepository {
	return &ingredientRepository{pool: pool}
}

func (r *ingredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	const query = `
        INSERT INTO ingredients (name, unit, type)
        VALUES ($1, $2, $3)
        RETURNING id`
	return r.pool.QueryRow(ctx, query, ingredient.Name, ingredient.Unit, ingredient.Type).Scan(&ingredient.ID)
}

func (r *ingredientRepository) Upsert(ctx context.Context, ingredient *domain.Ingredient) error {
	const query = `
        INSERT INTO ingredients (name, unit, type)
        VALUES ($1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET unit = EXCLUDED.unit, type = EXCLUDED.type
        RETURNING id`
	return r.pool.QueryRow(ctx, query, ingredient.Name, ingredient.Unit, ingredient.Type).Scan(&ingredient.ID)
}

func (r *ingredientRepository) GetByID(ctx context.Context, id int64) (*domain.Ingredient, error) {
	const query = `SELECT id, name, unit, type FROM ingredients WHERE id=$1`
	return scanIngredient(r.pool.QueryRow(ctx, query, id))
}

func (r *ingredientRepository) GetByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	const query = `SELECT id, name, unit, type FROM ingredients WHERE name=$1`
	return scanIngredient(r.pool.QueryRow(ctx, query, name))
}

func (r *ingredientRepository) List(ctx context.Context) ([]domain.Ingredient, error) {
	const query = `SELECT id, name, unit, type FROM ingredients ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ingredient{}
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Type); err != nil {
			return nil, err
		}
		result = append(result, ing)
	}
	return result, rows.Err()
}

func (r *ingredientRepository) UpdateName(ctx context.Context, id int64, name string) error {
	const query = `UPDATE ingredients SET name=$1 WHERE id=$2`
	return requireAffected(r.pool.Exec(ctx, query, name, id))
}

func (r *ingredientRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM ingredients WHERE id=$1`
	return requireAffected(r.pool.Exec(ctx, query, id))
}

func scanIngredient(row pgx.Row) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	if err := row.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Type); err != nil {
		return nil, err
	}
	return &ing, nil
}
