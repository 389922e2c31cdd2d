package db

import (
	"context"
	"fmt"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

func (s *PostgresStore) listMappings(ctx context.Context, table string) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT tmdb_id, id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s mappings: %w", table, err)
	}
	defer rows.Close()

	mapping := make(map[int64]int)
	for rows.Next() {
		var tmdbID int64
		var localID int
		if err := rows.Scan(&tmdbID, &localID); err != nil {
			return nil, fmt.Errorf("failed to scan %s mapping: %w", table, err)
		}
		mapping[tmdbID] = localID
	}
	return mapping, rows.Err()
}

func (s *PostgresStore) ListGenreMappings(ctx context.Context) (map[int64]int, error) {
	return s.listMappings(ctx, "genres")
}

func (s *PostgresStore) ListKeywordMappings(ctx context.Context) (map[int64]int, error) {
	return s.listMappings(ctx, "keywords")
}

func (s *PostgresStore) upsertNamed(ctx context.Context, table string, tmdbID int64, name string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (tmdb_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tmdb_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, table),
		tmdbID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %s %d: %w", table, tmdbID, err)
	}
	return id, nil
}

func (s *PostgresStore) UpsertGenre(ctx context.Context, tmdbID int64, name string) (int, error) {
	return s.upsertNamed(ctx, "genres", tmdbID, name)
}

func (s *PostgresStore) UpsertKeyword(ctx context.Context, tmdbID int64, name string) (int, error) {
	return s.upsertNamed(ctx, "keywords", tmdbID, name)
}

// batchUpsertNamed writes all pairs in one statement and returns the external
// id to local id mapping for the affected rows.
func (s *PostgresStore) batchUpsertNamed(ctx context.Context, table string, pairs []models.CategoryPair) (map[int64]int, error) {
	if len(pairs) == 0 {
		return map[int64]int{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (tmdb_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tmdb_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s upsert: %w", table, err)
	}
	defer stmt.Close()

	mapping := make(map[int64]int, len(pairs))
	for _, pair := range pairs {
		var id int
		if err := stmt.QueryRowContext(ctx, pair.TMDBID, pair.Name).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to upsert %s %d: %w", table, pair.TMDBID, err)
		}
		mapping[pair.TMDBID] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s batch upsert: %w", table, err)
	}
	return mapping, nil
}

func (s *PostgresStore) BatchUpsertGenres(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	return s.batchUpsertNamed(ctx, "genres", pairs)
}

func (s *PostgresStore) BatchUpsertKeywords(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	return s.batchUpsertNamed(ctx, "keywords", pairs)
}

func (s *PostgresStore) ListMediaCategories(ctx context.Context) ([]*models.MediaCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, created_at, updated_at FROM media_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query media categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.MediaCategory
	for rows.Next() {
		var c models.MediaCategory
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// ReplaceCategoryMovies rewrites the category membership with the given movie
// ids, preserving the given ordering as the display position.
func (s *PostgresStore) ReplaceCategoryMovies(ctx context.Context, categoryID int, movieIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM media_category_movies WHERE media_category_id = $1`, categoryID); err != nil {
		return fmt.Errorf("failed to clear category movies: %w", err)
	}

	for position, movieID := range movieIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO media_category_movies (media_category_id, movie_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			categoryID, movieID, position); err != nil {
			return fmt.Errorf("failed to add category movie: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE media_categories SET updated_at = NOW() WHERE id = $1`, categoryID); err != nil {
		return fmt.Errorf("failed to touch media category: %w", err)
	}

	return tx.Commit()
}
