package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/jobs"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

type apiStoreStub struct {
	db.Store

	movies   map[int64]*models.Movie
	statuses map[int64]*models.JobStatus
	deleted  []int64
}

func (s *apiStoreStub) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	return s.movies[tmdbID], nil
}

func (s *apiStoreStub) ListMovies(ctx context.Context, limit, offset int) ([]*models.Movie, int64, error) {
	out := make([]*models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (s *apiStoreStub) GetJobStatus(ctx context.Context, jobID int64) (*models.JobStatus, error) {
	return s.statuses[jobID], nil
}

func (s *apiStoreStub) ListJobStatuses(ctx context.Context, filter db.JobStatusFilter) ([]*models.JobStatus, error) {
	out := make([]*models.JobStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		if filter.JobType != nil && st.JobType != *filter.JobType {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *apiStoreStub) DeleteJobStatus(ctx context.Context, jobID int64) error {
	s.deleted = append(s.deleted, jobID)
	return nil
}

func (s *apiStoreStub) GetMoviesByTMDBIDs(ctx context.Context, tmdbIDs []int64) ([]*models.Movie, error) {
	out := make([]*models.Movie, 0, len(tmdbIDs))
	for _, id := range tmdbIDs {
		if m, ok := s.movies[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type movieSourceStub struct {
	resp *tmdb.MovieListResponse
	err  error
}

func (s *movieSourceStub) DiscoverMovies(ctx context.Context, page int) (*tmdb.MovieListResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type ingesterStub struct {
	ingested []int64
}

func (s *ingesterStub) ProcessSummaries(ctx context.Context, jobID int64, summaries []tmdb.MovieSummary, isCancelled func() bool) (*models.BatchProcessResult, error) {
	for _, sm := range summaries {
		s.ingested = append(s.ingested, sm.ID)
	}
	return &models.BatchProcessResult{Attempted: len(summaries), Succeeded: len(summaries)}, nil
}

func setupTestRouter(store *apiStoreStub) (*gin.Engine, *jobs.Scheduler, *jobs.ExecutionManager) {
	return setupTestRouterWith(store, nil, nil)
}

func setupTestRouterWith(store *apiStoreStub, source MovieSource, ingest SummaryIngester) (*gin.Engine, *jobs.Scheduler, *jobs.ExecutionManager) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := jobs.NewScheduler(logger)
	exec := jobs.NewExecutionManager(logger)
	handler := NewHandler(store, nil, source, ingest, scheduler, exec, logger)
	return SetupRouter(handler), scheduler, exec
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Movies(t *testing.T) {
	store := &apiStoreStub{movies: map[int64]*models.Movie{
		603: {ID: 1, TMDBID: 603, Title: "The Matrix"},
	}}
	router, _, _ := setupTestRouter(store)

	t.Run("get movie", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/movies/603")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The Matrix")
	})

	t.Run("missing movie returns 404", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/movies/999")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid movie id returns 400", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/movies/abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list movies", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/movies?limit=10")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":1`)
	})

	t.Run("invalid limit returns 400", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/movies?limit=-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Discover(t *testing.T) {
	store := &apiStoreStub{movies: map[int64]*models.Movie{
		603: {ID: 1, TMDBID: 603, Title: "The Matrix"},
		550: {ID: 2, TMDBID: 550, Title: "Fight Club"},
	}}
	source := &movieSourceStub{resp: &tmdb.MovieListResponse{
		Page:         2,
		TotalPages:   500,
		TotalResults: 10000,
		Results: []tmdb.MovieSummary{
			{ID: 550, Title: "Fight Club"},
			{ID: 603, Title: "The Matrix"},
		},
	}}
	ingest := &ingesterStub{}
	router, _, _ := setupTestRouterWith(store, source, ingest)

	t.Run("proxies a page and ingests its summaries", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/discover?page=2")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{550, 603}, ingest.ingested)
		assert.Contains(t, w.Body.String(), `"page":2`)
		assert.Contains(t, w.Body.String(), `"total_pages":500`)
		// Movies come back in the upstream list order.
		body := w.Body.String()
		assert.Less(t, strings.Index(body, "Fight Club"), strings.Index(body, "The Matrix"))
	})

	t.Run("invalid page returns 400", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/discover?page=0")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream failure returns 502", func(t *testing.T) {
		failing := &movieSourceStub{err: errors.New("tmdb unavailable")}
		router, _, _ := setupTestRouterWith(store, failing, &ingesterStub{})
		w := doRequest(router, "GET", "/api/v1/discover")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestHandler_Jobs(t *testing.T) {
	store := &apiStoreStub{statuses: map[int64]*models.JobStatus{
		1: {ID: 1, JobType: models.JobTypeMovieDiscovery, Status: models.JobStatusCompleted},
		2: {ID: 2, JobType: models.JobTypeChangeTracking, Status: models.JobStatusRunning},
	}}
	router, _, exec := setupTestRouter(store)

	t.Run("list jobs", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/jobs")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get job", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/jobs/1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), string(models.JobTypeMovieDiscovery))
	})

	t.Run("missing job returns 404", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/jobs/55")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("cancel of non-running job conflicts", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/v1/jobs/1/cancel")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("cancel of running job is accepted", func(t *testing.T) {
		_, cancel := context.WithCancel(context.Background())
		defer cancel()
		signal := exec.Register(2, models.JobTypeChangeTracking, cancel)
		defer exec.Unregister(2)

		w := doRequest(router, "POST", "/api/v1/jobs/2/cancel")
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.True(t, signal.IsCancelled())
	})

	t.Run("delete terminal job", func(t *testing.T) {
		w := doRequest(router, "DELETE", "/api/v1/jobs/1")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, []int64{1}, store.deleted)
	})

	t.Run("delete running job conflicts", func(t *testing.T) {
		w := doRequest(router, "DELETE", "/api/v1/jobs/2")
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandler_Scheduler(t *testing.T) {
	store := &apiStoreStub{}
	router, scheduler, _ := setupTestRouter(store)
	scheduler.RegisterCron(models.JobTypeChangeTracking, "0 2 * * *", func() {})

	t.Run("status before start", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/scheduler/status")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"running":false`)
	})

	t.Run("start and stop", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/v1/scheduler/start")
		assert.Equal(t, http.StatusOK, w.Code)
		require.True(t, scheduler.IsRunning())

		w = doRequest(router, "POST", "/api/v1/scheduler/stop")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, scheduler.IsRunning())
	})

	t.Run("pause and resume", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/v1/scheduler/pause/change_tracking")
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, "POST", "/api/v1/scheduler/resume/change_tracking")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("trigger unknown job type returns 404", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/v1/scheduler/trigger/bogus")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("trigger registered job is accepted", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/v1/scheduler/trigger/change_tracking")
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}
