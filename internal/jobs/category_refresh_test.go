package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/cache"
	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

type genreSyncStoreStub struct {
	db.Store

	mappings  map[int64]int
	listCalls int
	nextID    int
}

func (s *genreSyncStoreStub) ListGenreMappings(ctx context.Context) (map[int64]int, error) {
	s.listCalls++
	out := make(map[int64]int, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out, nil
}

func (s *genreSyncStoreStub) BatchUpsertGenres(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	out := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		s.nextID++
		s.mappings[p.TMDBID] = s.nextID
		out[p.TMDBID] = s.nextID
	}
	return out, nil
}

func genreListServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":12,"name":"Adventure"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCategoryRefreshJob_SyncGenres(t *testing.T) {
	ctx := context.Background()
	server := genreListServer(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tmdbCfg := config.DefaultTMDBConfig()
	tmdbCfg.BearerToken = "test-token"
	tmdbCfg.APIBaseURL = server.URL

	client := tmdb.NewClient(tmdbCfg, logger)
	t.Cleanup(client.Close)

	store := &genreSyncStoreStub{mappings: map[int64]int{}}
	genres := cache.NewGenreCache(store, logger)
	job := NewCategoryRefreshJob(client, nil, store, genres, config.DefaultJobsConfig(), logger)

	require.NoError(t, job.SyncGenres(ctx))
	assert.Equal(t, 1, store.listCalls)
	assert.Len(t, store.mappings, 2)

	// The sync reset the cache, so the next lookup reloads the full table
	// and sees the upserted genres.
	id, ok, err := genres.Get(ctx, 28)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, store.mappings[28], id)
	assert.Equal(t, 2, store.listCalls)
}
