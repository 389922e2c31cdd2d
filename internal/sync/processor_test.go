package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/cache"
	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

type procStoreStub struct {
	db.Store

	movies        map[int64]*models.Movie
	minimalCalls  []int64
	upserted      []*models.Movie
	upsertGenres  [][]int
	upsertKeyword [][]int
	nextID        int
}

func newProcStoreStub() *procStoreStub {
	return &procStoreStub{movies: make(map[int64]*models.Movie), nextID: 100}
}

func (s *procStoreStub) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	return s.movies[tmdbID], nil
}

func (s *procStoreStub) InsertMovieMinimal(ctx context.Context, movie *models.Movie) (bool, error) {
	s.minimalCalls = append(s.minimalCalls, movie.TMDBID)
	if _, exists := s.movies[movie.TMDBID]; exists {
		return false, nil
	}
	s.movies[movie.TMDBID] = movie
	return true, nil
}

func (s *procStoreStub) UpsertMovieWithRelationships(ctx context.Context, movie *models.Movie, genreIDs, keywordIDs []int) (*models.Movie, error) {
	s.upserted = append(s.upserted, movie)
	s.upsertGenres = append(s.upsertGenres, genreIDs)
	s.upsertKeyword = append(s.upsertKeyword, keywordIDs)
	s.movies[movie.TMDBID] = movie
	return movie, nil
}

func (s *procStoreStub) ListGenreMappings(ctx context.Context) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (s *procStoreStub) ListKeywordMappings(ctx context.Context) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (s *procStoreStub) BatchUpsertGenres(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	out := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		out[p.TMDBID] = s.nextID
		s.nextID++
	}
	return out, nil
}

func (s *procStoreStub) BatchUpsertKeywords(ctx context.Context, pairs []models.CategoryPair) (map[int64]int, error) {
	out := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		out[p.TMDBID] = s.nextID
		s.nextID++
	}
	return out, nil
}

type queueStub struct {
	enqueued []int64
	err      error
}

func (q *queueStub) EnqueueHydration(ctx context.Context, tmdbIDs ...int64) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, tmdbIDs...)
	return nil
}

type nopMirror struct{}

func (nopMirror) LoadKeywordMirror(ctx context.Context) (map[int64]int, error) {
	return nil, nil
}

func (nopMirror) StoreKeywordMappings(ctx context.Context, mappings map[int64]int) error {
	return nil
}

// tmdbStubServer answers /movie/{id} and /movie/{id}/keywords with a fixed
// payload and counts detail fetches.
func tmdbStubServer(t *testing.T, detailCalls *int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/603/keywords", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":603,"keywords":[{"id":818,"name":"based on novel"},{"id":4565,"name":"dystopia"}]}`)
	})
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		*detailCalls++
		fmt.Fprint(w, `{
			"id": 603,
			"title": "The Matrix",
			"original_title": "The Matrix",
			"original_language": "en",
			"release_date": "1999-03-30",
			"runtime": 136,
			"vote_average": 8.2,
			"vote_count": 24000,
			"popularity": 85.4,
			"status": "Released",
			"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}]
		}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestProcessor(t *testing.T, store *procStoreStub, queue HydrationQueue, baseURL string) *Processor {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := config.DefaultTMDBConfig()
	cfg.BearerToken = "test-token"
	cfg.APIBaseURL = baseURL
	cfg.Retry.BackoffBase = time.Millisecond

	client := tmdb.NewClient(cfg, logger)
	t.Cleanup(client.Close)

	genres := cache.NewGenreCache(store, logger)
	keywords := cache.NewKeywordCache(store, nopMirror{}, 1000, logger)
	return NewProcessor(store, client, NewLimiter(1000), genres, keywords, queue, logger)
}

func TestProcessorInsertAndQueue(t *testing.T) {
	ctx := context.Background()
	summary := tmdb.MovieSummary{
		ID:          550,
		Title:       "Fight Club",
		ReleaseDate: "1999-10-15",
		VoteAverage: 8.4,
	}

	t.Run("inserts a partial row and queues hydration", func(t *testing.T) {
		store := newProcStoreStub()
		queue := &queueStub{}
		p := newTestProcessor(t, store, queue, "http://unreachable")

		require.NoError(t, p.InsertAndQueue(ctx, summary))

		movie := store.movies[550]
		require.NotNil(t, movie)
		assert.False(t, movie.Hydrated)
		assert.Equal(t, "list_insert", movie.HydrationSource)
		require.NotNil(t, movie.ReleaseDate)
		assert.Equal(t, 1999, movie.ReleaseDate.Year())
		assert.Equal(t, []int64{550}, queue.enqueued)
	})

	t.Run("does not queue an already known movie", func(t *testing.T) {
		store := newProcStoreStub()
		store.movies[550] = &models.Movie{TMDBID: 550, Hydrated: true}
		queue := &queueStub{}
		p := newTestProcessor(t, store, queue, "http://unreachable")

		require.NoError(t, p.InsertAndQueue(ctx, summary))
		assert.Empty(t, queue.enqueued)
	})

	t.Run("queue failure does not fail the insert", func(t *testing.T) {
		store := newProcStoreStub()
		queue := &queueStub{err: errors.New("redis down")}
		p := newTestProcessor(t, store, queue, "http://unreachable")

		require.NoError(t, p.InsertAndQueue(ctx, summary))
		require.NotNil(t, store.movies[550])
	})

	t.Run("cannot be driven from a bare ID", func(t *testing.T) {
		store := newProcStoreStub()
		p := newTestProcessor(t, store, &queueStub{}, "http://unreachable")

		err := p.Process(ctx, 550, StrategyInsertAndQueue)
		require.Error(t, err)
	})
}

func TestProcessorFetchStrategies(t *testing.T) {
	ctx := context.Background()

	t.Run("fetch and insert full leaves a hydrated row alone", func(t *testing.T) {
		var detailCalls int
		server := tmdbStubServer(t, &detailCalls)
		store := newProcStoreStub()
		store.movies[603] = &models.Movie{TMDBID: 603, Hydrated: true}
		p := newTestProcessor(t, store, &queueStub{}, server.URL)

		require.NoError(t, p.Process(ctx, 603, StrategyFetchAndInsertFull))
		assert.Equal(t, 0, detailCalls)
		assert.Empty(t, store.upserted)
	})

	t.Run("fetch and insert full hydrates a partial row", func(t *testing.T) {
		var detailCalls int
		server := tmdbStubServer(t, &detailCalls)
		store := newProcStoreStub()
		store.movies[603] = &models.Movie{TMDBID: 603, Hydrated: false}
		p := newTestProcessor(t, store, &queueStub{}, server.URL)

		require.NoError(t, p.Process(ctx, 603, StrategyFetchAndInsertFull))
		assert.Equal(t, 1, detailCalls)
		require.Len(t, store.upserted, 1)

		movie := store.upserted[0]
		assert.Equal(t, "The Matrix", movie.Title)
		assert.True(t, movie.Hydrated)
		assert.Equal(t, "detail_fetch", movie.HydrationSource)
		require.NotNil(t, movie.LastHydratedAt)
	})

	t.Run("fetch and upsert always writes fresh details", func(t *testing.T) {
		var detailCalls int
		server := tmdbStubServer(t, &detailCalls)
		store := newProcStoreStub()
		store.movies[603] = &models.Movie{TMDBID: 603, Hydrated: true, Title: "stale"}
		p := newTestProcessor(t, store, &queueStub{}, server.URL)

		require.NoError(t, p.Process(ctx, 603, StrategyFetchAndUpsert))
		assert.Equal(t, 1, detailCalls)
		require.Len(t, store.upserted, 1)
		assert.Equal(t, "The Matrix", store.upserted[0].Title)
	})

	t.Run("resolves genre and keyword foreign keys", func(t *testing.T) {
		var detailCalls int
		server := tmdbStubServer(t, &detailCalls)
		store := newProcStoreStub()
		p := newTestProcessor(t, store, &queueStub{}, server.URL)

		require.NoError(t, p.Process(ctx, 603, StrategyFetchAndUpsert))
		require.Len(t, store.upsertGenres, 1)
		assert.Len(t, store.upsertGenres[0], 2)
		require.Len(t, store.upsertKeyword, 1)
		assert.Len(t, store.upsertKeyword[0], 2)
	})

	t.Run("fetch failure surfaces as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		store := newProcStoreStub()
		p := newTestProcessor(t, store, &queueStub{}, server.URL)

		err := p.Process(ctx, 603, StrategyFetchAndUpsert)
		require.Error(t, err)
		assert.Empty(t, store.upserted)
	})
}
