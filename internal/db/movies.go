package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

const movieColumns = `
	id, tmdb_id, title, original_title, overview, original_language,
	release_date, runtime, budget, revenue, vote_average, vote_count,
	popularity, poster_path, backdrop_path, adult, status,
	hydrated, hydration_source, last_hydrated_at, created_at, updated_at`

func scanMovie(row interface{ Scan(...interface{}) error }) (*models.Movie, error) {
	var m models.Movie
	var releaseDate, lastHydratedAt sql.NullTime
	if err := row.Scan(
		&m.ID,
		&m.TMDBID,
		&m.Title,
		&m.OriginalTitle,
		&m.Overview,
		&m.OriginalLanguage,
		&releaseDate,
		&m.Runtime,
		&m.Budget,
		&m.Revenue,
		&m.VoteAverage,
		&m.VoteCount,
		&m.Popularity,
		&m.PosterPath,
		&m.BackdropPath,
		&m.Adult,
		&m.Status,
		&m.Hydrated,
		&m.HydrationSource,
		&lastHydratedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if releaseDate.Valid {
		m.ReleaseDate = &releaseDate.Time
	}
	if lastHydratedAt.Valid {
		m.LastHydratedAt = &lastHydratedAt.Time
	}
	return &m, nil
}

// GetMovieByTMDBID returns the movie with the given external id, or nil when
// no such row exists.
func (s *PostgresStore) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = $1`, tmdbID)

	movie, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get movie by tmdb id: %w", err)
	}
	return movie, nil
}

// GetMoviesByTMDBIDs returns all movies whose external id is in the given set.
func (s *PostgresStore) GetMoviesByTMDBIDs(ctx context.Context, tmdbIDs []int64) ([]*models.Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = ANY($1)`, pq.Array(tmdbIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query movies by tmdb ids: %w", err)
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// InsertMovieMinimal inserts a partial row from list-response fields only,
// leaving the hydration flag unset. The conditional insert no-ops on conflict
// so two workers racing on the same external id can never create two rows.
// Returns true if a new row was created.
func (s *PostgresStore) InsertMovieMinimal(ctx context.Context, movie *models.Movie) (bool, error) {
	var releaseDate interface{}
	if movie.ReleaseDate != nil {
		releaseDate = *movie.ReleaseDate
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO movies (
			tmdb_id, title, original_title, overview, original_language,
			release_date, vote_average, vote_count, popularity,
			poster_path, backdrop_path, adult, hydrated, hydration_source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13)
		ON CONFLICT (tmdb_id) DO NOTHING`,
		movie.TMDBID,
		movie.Title,
		movie.OriginalTitle,
		movie.Overview,
		movie.OriginalLanguage,
		releaseDate,
		movie.VoteAverage,
		movie.VoteCount,
		movie.Popularity,
		movie.PosterPath,
		movie.BackdropPath,
		movie.Adult,
		movie.HydrationSource,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert movie %d: %w", movie.TMDBID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpsertMovieWithRelationships writes the full movie payload and reconciles
// its genre and keyword links inside one transaction. The conflict update is
// guarded so applying an identical payload twice leaves the row (and its
// updated_at) untouched.
func (s *PostgresStore) UpsertMovieWithRelationships(ctx context.Context, movie *models.Movie, genreIDs, keywordIDs []int) (*models.Movie, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var releaseDate, lastHydratedAt interface{}
	if movie.ReleaseDate != nil {
		releaseDate = *movie.ReleaseDate
	}
	if movie.LastHydratedAt != nil {
		lastHydratedAt = *movie.LastHydratedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO movies (
			tmdb_id, title, original_title, overview, original_language,
			release_date, runtime, budget, revenue, vote_average, vote_count,
			popularity, poster_path, backdrop_path, adult, status,
			hydrated, hydration_source, last_hydrated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			original_title = EXCLUDED.original_title,
			overview = EXCLUDED.overview,
			original_language = EXCLUDED.original_language,
			release_date = EXCLUDED.release_date,
			runtime = EXCLUDED.runtime,
			budget = EXCLUDED.budget,
			revenue = EXCLUDED.revenue,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			popularity = EXCLUDED.popularity,
			poster_path = EXCLUDED.poster_path,
			backdrop_path = EXCLUDED.backdrop_path,
			adult = EXCLUDED.adult,
			status = EXCLUDED.status,
			hydrated = EXCLUDED.hydrated,
			hydration_source = EXCLUDED.hydration_source,
			last_hydrated_at = EXCLUDED.last_hydrated_at,
			updated_at = NOW()
		WHERE (
			movies.title, movies.original_title, movies.overview,
			movies.original_language, movies.release_date, movies.runtime,
			movies.budget, movies.revenue, movies.vote_average,
			movies.vote_count, movies.popularity, movies.poster_path,
			movies.backdrop_path, movies.adult, movies.status, movies.hydrated
		) IS DISTINCT FROM (
			EXCLUDED.title, EXCLUDED.original_title, EXCLUDED.overview,
			EXCLUDED.original_language, EXCLUDED.release_date, EXCLUDED.runtime,
			EXCLUDED.budget, EXCLUDED.revenue, EXCLUDED.vote_average,
			EXCLUDED.vote_count, EXCLUDED.popularity, EXCLUDED.poster_path,
			EXCLUDED.backdrop_path, EXCLUDED.adult, EXCLUDED.status, EXCLUDED.hydrated
		)`,
		movie.TMDBID,
		movie.Title,
		movie.OriginalTitle,
		movie.Overview,
		movie.OriginalLanguage,
		releaseDate,
		movie.Runtime,
		movie.Budget,
		movie.Revenue,
		movie.VoteAverage,
		movie.VoteCount,
		movie.Popularity,
		movie.PosterPath,
		movie.BackdropPath,
		movie.Adult,
		movie.Status,
		movie.Hydrated,
		movie.HydrationSource,
		lastHydratedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert movie %d: %w", movie.TMDBID, err)
	}

	var movieID int
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM movies WHERE tmdb_id = $1`, movie.TMDBID).Scan(&movieID); err != nil {
		return nil, fmt.Errorf("failed to resolve movie row id: %w", err)
	}

	if err := reconcileLinks(ctx, tx, "movie_genres", "genre_id", movieID, genreIDs); err != nil {
		return nil, err
	}
	if err := reconcileLinks(ctx, tx, "movie_keywords", "keyword_id", movieID, keywordIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetMovieByTMDBID(ctx, movie.TMDBID)
}

// reconcileLinks adds missing link rows and removes stale ones, leaving
// already-correct rows untouched.
func reconcileLinks(ctx context.Context, tx *sql.Tx, table, column string, movieID int, ids []int) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE movie_id = $1 AND %s <> ALL($2)`, table, column),
		movieID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to remove stale %s links: %w", table, err)
	}

	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (movie_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column),
			movieID, id)
		if err != nil {
			return fmt.Errorf("failed to add %s link: %w", table, err)
		}
	}
	return nil
}

// ListMovies retrieves movies with pagination, newest first.
func (s *PostgresStore) ListMovies(ctx context.Context, limit, offset int) ([]*models.Movie, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, total, rows.Err()
}

func (s *PostgresStore) CountMovies(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// StreamMovies invokes fn for every movie row in id order. Iteration stops at
// the first error fn returns.
func (s *PostgresStore) StreamMovies(ctx context.Context, fn func(*models.Movie) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query movies for streaming: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return fmt.Errorf("failed to scan movie: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return rows.Err()
}
