package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xue-yuan/dionysus/internal/domain"
)

// CocktailRepository persists cocktails with their ingredients, aliases and
// tags.
type CocktailRepository interface {
	Create(ctx context.Context, cocktail *domain.Cocktail) error
	GetByID(ctx context.Context, id int64) (*domain.Cocktail, error)
	GetByName(ctx context.Context, name string) (*domain.Cocktail, error)
	List(ctx context.Context, tag string) ([]domain.Cocktail, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Cocktail, error)
	Match(ctx context.Context, owned []int64, tags []string, maxMissing int) ([]domain.CocktailMatch, error)
	Update(ctx context.Context, cocktail *domain.Cocktail) error
	Delete(ctx context.Context, id int64) error
}

type cocktailRepository struct {
	pool *pgxpool.Pool
}

// NewCocktailRepository returns a Postgres-backed implementation.
func NewCocktailRepository(pool *pgxpool.Pool) CocktailRepository {
	return &cocktailRepository{pool: pool}
}

// Create inserts the cocktail and all of its links in one transaction. Tags
// that do not exist yet are created.
func (r *cocktailRepository) Create(ctx context.Context, cocktail *domain.Cocktail) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertCocktail = `
            INSERT INTO cocktails (name, recipe)
            VALUES ($1, $2)
            RETURNING id`
		if err := tx.QueryRow(ctx, insertCocktail, cocktail.Name, cocktail.Recipe).Scan(&cocktail.ID); err != nil {
			return err
		}

		const insertIngredient = `
            INSERT INTO cocktail_ingredients (cocktail_id, ingredient_id, quantity)
            VALUES ($1, $2, $3)`
		for _, ing := range cocktail.Ingredients {
			if _, err := tx.Exec(ctx, insertIngredient, cocktail.ID, ing.IngredientID, ing.Quantity); err != nil {
				return fmt.Errorf("link ingredient %d: %w", ing.IngredientID, err)
			}
		}

		const insertAlias = `INSERT INTO aliases (alias, cocktail_id) VALUES ($1, $2)`
		for _, alias := range cocktail.Aliases {
			if _, err := tx.Exec(ctx, insertAlias, alias, cocktail.ID); err != nil {
				return fmt.Errorf("add alias %q: %w", alias, err)
			}
		}

		const insertTag = `
            INSERT INTO cocktail_tags (cocktail_id, tag_id)
            VALUES ($1, $2)
            ON CONFLICT DO NOTHING`
		for _, tag := range cocktail.Tags {
			tagID, err := upsertTag(ctx, tx, tag)
			if err != nil {
				return fmt.Errorf("upsert tag %q: %w", tag, err)
			}
			if _, err := tx.Exec(ctx, insertTag, cocktail.ID, tagID); err != nil {
				return fmt.Errorf("tag cocktail %q: %w", tag, err)
			}
		}
		return nil
	})
}

func (r *cocktailRepository) GetByID(ctx context.Context, id int64) (*domain.Cocktail, error) {
	const query = `SELECT id, name, recipe FROM cocktails WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *cocktailRepository) GetByName(ctx context.Context, name string) (*domain.Cocktail, error) {
	const query = `SELECT id, name, recipe FROM cocktails WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *cocktailRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Cocktail, error) {
	var cocktail domain.Cocktail
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&cocktail.ID, &cocktail.Name, &cocktail.Recipe); err != nil {
		return nil, err
	}
	list := []domain.Cocktail{cocktail}
	if err := r.loadRelations(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns every cocktail, optionally only those carrying tag.
func (r *cocktailRepository) List(ctx context.Context, tag string) ([]domain.Cocktail, error) {
	const query = `
        SELECT c.id, c.name, c.recipe
        FROM cocktails c
        WHERE $1::text = '' OR EXISTS (
            SELECT 1 FROM cocktail_tags ct
            JOIN tags t ON t.id = ct.tag_id
            WHERE ct.cocktail_id = c.id AND t.tag = $1
        )
        ORDER BY c.name`
	return r.fetchMany(ctx, query, tag)
}

// ListByIDs returns the cocktails among ids that still exist, ordered by name.
func (r *cocktailRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Cocktail, error) {
	if len(ids) == 0 {
		return []domain.Cocktail{}, nil
	}
	const query = `SELECT id, name, recipe FROM cocktails WHERE id = ANY($1) ORDER BY name`
	return r.fetchMany(ctx, query, ids)
}

// Match ranks cocktails by how many of their ingredients are in owned and
// keeps those missing at most maxMissing. A non-empty tags limits the result
// to cocktails carrying any of them.
func (r *cocktailRepository) Match(ctx context.Context, owned []int64, tags []string, maxMissing int) ([]domain.CocktailMatch, error) {
	if len(owned) == 0 {
		return []domain.CocktailMatch{}, nil
	}
	if tags == nil {
		tags = []string{}
	}
	const query = `
        WITH owned AS (
            SELECT DISTINCT unnest($1::bigint[]) AS ingredient_id
        ),
        summary AS (
            SELECT ci.cocktail_id,
                   COUNT(*) AS total_count,
                   COUNT(o.ingredient_id) AS owned_count,
                   COALESCE(array_agg(i.name ORDER BY i.name) FILTER (WHERE o.ingredient_id IS NULL), '{}') AS missing
            FROM cocktail_ingredients ci
            JOIN ingredients i ON i.id = ci.ingredient_id
            LEFT JOIN owned o ON o.ingredient_id = ci.ingredient_id
            GROUP BY ci.cocktail_id
        )
        SELECT c.id, c.name, c.recipe, s.total_count, s.owned_count, s.missing
        FROM cocktails c
        JOIN summary s ON s.cocktail_id = c.id
        WHERE s.total_count - s.owned_count <= $2
          AND (cardinality($3::text[]) = 0 OR EXISTS (
              SELECT 1 FROM cocktail_tags ct
              JOIN tags t ON t.id = ct.tag_id
              WHERE ct.cocktail_id = c.id AND t.tag = ANY($3)
          ))
        ORDER BY s.total_count - s.owned_count, s.owned_count DESC, c.name`
	rows, err := r.pool.Query(ctx, query, owned, maxMissing, tags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []domain.CocktailMatch{}
	for rows.Next() {
		var m domain.CocktailMatch
		if err := rows.Scan(&m.ID, &m.Name, &m.Recipe, &m.TotalCount, &m.OwnedCount, &m.MissingIngredients); err != nil {
			return nil, err
		}
		m.MissingCount = m.TotalCount - m.OwnedCount
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cocktails := make([]domain.Cocktail, len(matches))
	for i := range matches {
		cocktails[i] = matches[i].Cocktail
	}
	if err := r.loadRelations(ctx, cocktails); err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Cocktail = cocktails[i]
	}
	return matches, nil
}

func (r *cocktailRepository) fetchMany(ctx context.Context, query string, arg any) ([]domain.Cocktail, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Cocktail{}
	for rows.Next() {
		var cocktail domain.Cocktail
		if err := rows.Scan(&cocktail.ID, &cocktail.Name, &cocktail.Recipe); err != nil {
			return nil, err
		}
		result = append(result, cocktail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *cocktailRepository) Update(ctx context.Context, cocktail *domain.Cocktail) error {
	const query = `UPDATE cocktails SET name=$1, recipe=$2 WHERE id=$3`
	return requireAffected(r.pool.Exec(ctx, query, cocktail.Name, cocktail.Recipe, cocktail.ID))
}

func (r *cocktailRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM cocktails WHERE id=$1`
	return requireAffected(r.pool.Exec(ctx, query, id))
}

// loadRelations fills ingredients, aliases and tags of cocktails in place.
func (r *cocktailRepository) loadRelations(ctx context.Context, cocktails []domain.Cocktail) error {
	if len(cocktails) == 0 {
		return nil
	}
	ids := make([]int64, len(cocktails))
	index := make(map[int64]int, len(cocktails))
	for i := range cocktails {
		ids[i] = cocktails[i].ID
		index[cocktails[i].ID] = i
		cocktails[i].Ingredients = []domain.CocktailIngredient{}
		cocktails[i].Aliases = []string{}
		cocktails[i].Tags = []string{}
	}

	const ingredientsQuery = `
        SELECT ci.cocktail_id, i.id, i.name, i.unit, ci.quantity
        FROM cocktail_ingredients ci
        JOIN ingredients i ON i.id = ci.ingredient_id
        WHERE ci.cocktail_id = ANY($1)
        ORDER BY i.name`
	rows, err := r.pool.Query(ctx, ingredientsQuery, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cocktailID int64
		var ing domain.CocktailIngredient
		if err := rows.Scan(&cocktailID, &ing.IngredientID, &ing.Name, &ing.Unit, &ing.Quantity); err != nil {
			rows.Close()
			return err
		}
		c := &cocktails[index[cocktailID]]
		c.Ingredients = append(c.Ingredients, ing)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const aliasesQuery = `SELECT cocktail_id, alias FROM aliases WHERE cocktail_id = ANY($1) ORDER BY alias`
	if err := r.collectStrings(ctx, aliasesQuery, ids, func(id int64, v string) {
		c := &cocktails[index[id]]
		c.Aliases = append(c.Aliases, v)
	}); err != nil {
		return err
	}

	const tagsQuery = `
        SELECT ct.cocktail_id, t.tag
        FROM cocktail_tags ct
        JOIN tags t ON t.id = ct.tag_id
        WHERE ct.cocktail_id = ANY($1)
        ORDER BY t.tag`
	return r.collectStrings(ctx, tagsQuery, ids, func(id int64, v string) {
		c := &cocktails[index[id]]
		c.Tags = append(c.Tags, v)
	})
}

func (r *cocktailRepository) collectStrings(ctx context.Context, query string, ids []int64, add func(int64, string)) error {
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return err
		}
		add(id, value)
	}
	return rows.Err()
}
