package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xue-yuan/dionysus/internal/domain"
)

// TagRepository reads cocktail tags.
type TagRepository interface {
	List(ctx context.Context) ([]domain.Tag, error)
}

type tagRepository struct {
	pool *pgxpool.Pool
}

// NewTagRepository returns a Postgres-backed implementation.
func NewTagRepository(pool *pgxpool.Pool) TagRepository {
	return &tagRepository{pool: pool}
}

func (r *tagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	const query = `SELECT id, tag FROM tags ORDER BY tag`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}

// upsertTag returns the id of name, creating the tag when missing.
func upsertTag(ctx context.Context, q querier, name string) (int64, error) {
	const query = `
        INSERT INTO tags (tag) VALUES ($1)
        ON CONFLICT (tag) DO UPDATE SET tag = EXCLUDED.tag
        RETURNING id`
	var id int64
	err := q.QueryRow(ctx, query, name).Scan(&id)
	return id, err
}
