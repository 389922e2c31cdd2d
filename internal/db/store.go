package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// Store defines the interface for database operations
type Store interface {
	// Movie operations
	GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error)
	GetMoviesByTMDBIDs(ctx context.Context, tmdbIDs []int64) ([]*models.Movie, error)
	InsertMovieMinimal(ctx context.Context, movie *models.Movie) (bool, error)
	UpsertMovieWithRelationships(ctx context.Context, movie *models.Movie, genreIDs, keywordIDs []int) (*models.Movie, error)
	ListMovies(ctx context.Context, limit, offset int) ([]*models.Movie, int64, error)
	CountMovies(ctx context.Context) (int, error)
	StreamMovies(ctx context.Context, fn func(*models.Movie) error) error

	// Category mapping operations
	ListGenreMappings(ctx context.Context) (map[int64]int, error)
	ListKeywordMappings(ctx context.Context) (map[int64]int, error)
	UpsertGenre(ctx context.Context, tmdbID int64, name string) (int, error)
	UpsertKeyword(ctx context.Context, tmdbID int64, name string) (int, error)
	BatchUpsertGenres(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error)
	BatchUpsertKeywords(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error)

	// Media category operations
	ListMediaCategories(ctx context.Context) ([]*models.MediaCategory, error)
	ReplaceCategoryMovies(ctx context.Context, categoryID int, movieIDs []int) error

	// Discovery cursor
	GetDiscoveryPage(ctx context.Context) (int, error)
	SetDiscoveryPage(ctx context.Context, page int) error

	// Job status operations
	CreateJob(ctx context.Context, jobType models.JobType, totalItems *int) (*models.JobStatus, error)
	StartJob(ctx context.Context, jobID int64) error
	CompleteJob(ctx context.Context, jobID int64) error
	FailJob(ctx context.Context, jobID int64, errorMessage string) error
	CancelJob(ctx context.Context, jobID int64) error
	UpdateTotalItems(ctx context.Context, jobID int64, totalItems int) error
	IncrementJobCounts(ctx context.Context, jobID int64, processedDelta, failedDelta int) error
	GetJobStatus(ctx context.Context, jobID int64) (*models.JobStatus, error)
	ListJobStatuses(ctx context.Context, filter JobStatusFilter) ([]*models.JobStatus, error)
	DeleteJobStatus(ctx context.Context, jobID int64) error
	JobStats(ctx context.Context) ([]*models.JobTypeStats, error)

	// Job log operations
	AppendJobLog(ctx context.Context, jobStatusID int64, level models.LogLevel, message string) error
	ListJobLogs(ctx context.Context, jobStatusID int64, limit int) ([]*models.JobLog, error)

	Ping(ctx context.Context) error
	Close() error
}

// JobStatusFilter narrows ListJobStatuses results.
type JobStatusFilter struct {
	JobType *models.JobType
	Status  *models.JobExecutionStatus
	Limit   int
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "internal/db/migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
