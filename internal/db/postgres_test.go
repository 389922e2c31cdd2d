package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

func setupTestDB(t *testing.T) *PostgresStore {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	store, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())

	t.Cleanup(func() {
		_, err := store.db.Exec(`
			TRUNCATE movie_keywords, movie_genres, media_category_movies,
			         job_logs, job_status, movies, genres, keywords RESTART IDENTITY CASCADE`)
		assert.NoError(t, err)
		store.Close()
	})
	return store
}

func TestPostgresStore_MovieOperations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	t.Run("minimal insert is idempotent", func(t *testing.T) {
		movie := &models.Movie{TMDBID: 603, Title: "The Matrix", HydrationSource: "list_insert"}

		inserted, err := store.InsertMovieMinimal(ctx, movie)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.InsertMovieMinimal(ctx, movie)
		require.NoError(t, err)
		assert.False(t, inserted)

		got, err := store.GetMovieByTMDBID(ctx, 603)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.Hydrated)
		assert.Equal(t, "list_insert", got.HydrationSource)
	})

	t.Run("upsert with relationships hydrates the row", func(t *testing.T) {
		genreID, err := store.UpsertGenre(ctx, 28, "Action")
		require.NoError(t, err)
		keywordID, err := store.UpsertKeyword(ctx, 312, "man vs machine")
		require.NoError(t, err)

		now := time.Now().UTC()
		movie := &models.Movie{
			TMDBID:          603,
			Title:           "The Matrix",
			Runtime:         136,
			Hydrated:        true,
			HydrationSource: "detail_fetch",
			LastHydratedAt:  &now,
		}

		saved, err := store.UpsertMovieWithRelationships(ctx, movie, []int{genreID}, []int{keywordID})
		require.NoError(t, err)
		assert.True(t, saved.Hydrated)
		assert.Equal(t, 136, saved.Runtime)
	})

	t.Run("identical upsert does not touch updated_at", func(t *testing.T) {
		movie := &models.Movie{TMDBID: 604, Title: "The Matrix Reloaded", Hydrated: true}

		first, err := store.UpsertMovieWithRelationships(ctx, movie, nil, nil)
		require.NoError(t, err)

		second, err := store.UpsertMovieWithRelationships(ctx, movie, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

		movie.Title = "The Matrix Reloaded (Remastered)"
		third, err := store.UpsertMovieWithRelationships(ctx, movie, nil, nil)
		require.NoError(t, err)
		assert.True(t, third.UpdatedAt.After(first.UpdatedAt))
	})

	t.Run("get missing movie returns nil", func(t *testing.T) {
		got, err := store.GetMovieByTMDBID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPostgresStore_JobOperations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	t.Run("job lifecycle", func(t *testing.T) {
		job, err := store.CreateJob(ctx, models.JobTypeMovieDiscovery, nil)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusPending, job.Status)

		require.NoError(t, store.StartJob(ctx, job.ID))
		require.NoError(t, store.IncrementJobCounts(ctx, job.ID, 18, 2))
		require.NoError(t, store.CompleteJob(ctx, job.ID))

		got, err := store.GetJobStatus(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
		assert.Equal(t, 18, got.ProcessedItems)
		assert.Equal(t, 2, got.FailedItems)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("terminal status is sticky", func(t *testing.T) {
		job, err := store.CreateJob(ctx, models.JobTypeChangeTracking, nil)
		require.NoError(t, err)
		require.NoError(t, store.StartJob(ctx, job.ID))
		require.NoError(t, store.CancelJob(ctx, job.ID))

		// A late failure report must not overwrite the cancel.
		require.NoError(t, store.FailJob(ctx, job.ID, "late failure"))

		got, err := store.GetJobStatus(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCancelled, got.Status)
	})

	t.Run("logs attach to the job", func(t *testing.T) {
		job, err := store.CreateJob(ctx, models.JobTypeCategoryRefresh, nil)
		require.NoError(t, err)

		require.NoError(t, store.AppendJobLog(ctx, job.ID, models.LogLevelInfo, "batch done"))
		logs, err := store.ListJobLogs(ctx, job.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "batch done", logs[0].Message)
	})

	t.Run("list filters by type", func(t *testing.T) {
		jt := models.JobTypeCategoryRefresh
		statuses, err := store.ListJobStatuses(ctx, JobStatusFilter{JobType: &jt, Limit: 10})
		require.NoError(t, err)
		for _, st := range statuses {
			assert.Equal(t, jt, st.JobType)
		}
	})
}
