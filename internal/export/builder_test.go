package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

type streamStoreStub struct {
	db.Store
	movies []*models.Movie
}

func (s *streamStoreStub) StreamMovies(ctx context.Context, fn func(*models.Movie) error) error {
	for _, m := range s.movies {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func TestBuilder_Build(t *testing.T) {
	release := time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC)
	store := &streamStoreStub{movies: []*models.Movie{
		{TMDBID: 603, Title: "The Matrix", ReleaseDate: &release, Runtime: 136, VoteAverage: 8.2, Hydrated: true},
		{TMDBID: 604, Title: "The Matrix Reloaded"},
	}}

	var buf bytes.Buffer
	rows, err := NewBuilder(store).Build(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, datasetHeader, records[0])
	assert.Equal(t, "603", records[1][0])
	assert.Equal(t, "The Matrix", records[1][1])
	assert.Equal(t, "1999-03-31", records[1][4])
	assert.Equal(t, "true", records[1][13])
	// Missing release date stays empty.
	assert.Equal(t, "", records[2][4])
}

func TestBuilder_BuildStopsOnCancel(t *testing.T) {
	store := &streamStoreStub{movies: []*models.Movie{
		{TMDBID: 1}, {TMDBID: 2}, {TMDBID: 3},
	}}

	seen := 0
	isCancelled := func() bool {
		seen++
		return seen > 1
	}

	var buf bytes.Buffer
	rows, err := NewBuilder(store).Build(context.Background(), &buf, isCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rows)
}
