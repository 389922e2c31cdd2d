package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/jobs"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/redis"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

// MovieSource proxies the TMDB discover feed.
type MovieSource interface {
	DiscoverMovies(ctx context.Context, page int) (*tmdb.MovieListResponse, error)
}

// SummaryIngester fast-inserts list results as minimal rows and queues them
// for background hydration.
type SummaryIngester interface {
	ProcessSummaries(ctx context.Context, jobID int64, summaries []tmdb.MovieSummary, isCancelled func() bool) (*models.BatchProcessResult, error)
}

/// Handler serves the control surface: catalog reads, the discover proxy,
// job audit queries, and scheduler control.
type Handler struct {
	store     db.Store
	redis     *redis.Client
	tmdb      MovieSource
	ingest    SummaryIngester
	scheduler *jobs.Scheduler
	exec      *jobs.ExecutionManager
	logger    *logrus.Logger
}

func NewHandler(store db.Store, redisClient *redis.Client, tmdbClient MovieSource, ingest SummaryIngester, scheduler *jobs.Scheduler, exec *jobs.ExecutionManager, logger *logrus.Logger) *Handler {
	return &Handler{
		store:     store,
		redis:     redisClient,
		tmdb:      tmdbClient,
		ingest:    ingest,
		scheduler: scheduler,
		exec:      exec,
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, errorResponse{Error: message})
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Health reports process, database, and Redis liveness.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(c.Request.Context()); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

// ListMovies returns a page of the catalog, newest first.
func (h *Handler) ListMovies(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil || limit < 1 || limit > 500 {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, "invalid offset parameter")
		return
	}

	movies, total, err := h.store.ListMovies(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list movies")
		respondError(c, http.StatusInternalServerError, "failed to list movies")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetMovie returns one movie by TMDB ID.
func (h *Handler) GetMovie(c *gin.Context) {
	tmdbID, err := strconv.ParseInt(c.Param("tmdbID"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid movie id")
		return
	}

	movie, err := h.store.GetMovieByTMDBID(c.Request.Context(), tmdbID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get movie")
		respondError(c, http.StatusInternalServerError, "failed to get movie")
		return
	}
	if movie == nil {
		respondError(c, http.StatusNotFound, "movie not found")
		return
	}
	c.JSON(http.StatusOK, movie)
}

// DiscoverMovies proxies one TMDB discover page. Movies not yet in the
// catalog are inserted minimally and queued for background hydration, so
// the endpoint answers from list data without waiting on detail fetches.
func (h *Handler) DiscoverMovies(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "invalid page parameter")
		return
	}

	resp, err := h.tmdb.DiscoverMovies(c.Request.Context(), page)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch discover page")
		respondError(c, http.StatusBadGateway, "failed to fetch discover page")
		return
	}

	if _, err := h.ingest.ProcessSummaries(c.Request.Context(), 0, resp.Results, nil); err != nil {
		h.logger.WithError(err).Error("Failed to ingest discover page")
		respondError(c, http.StatusInternalServerError, "failed to ingest discover page")
		return
	}

	tmdbIDs := make([]int64, 0, len(resp.Results))
	for _, s := range resp.Results {
		tmdbIDs = append(tmdbIDs, s.ID)
	}
	movies, err := h.store.GetMoviesByTMDBIDs(c.Request.Context(), tmdbIDs)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load discovered movies")
		respondError(c, http.StatusInternalServerError, "failed to load discovered movies")
		return
	}

	// Keep the TMDB response order.
	byTMDB := make(map[int64]*models.Movie, len(movies))
	for _, m := range movies {
		byTMDB[m.TMDBID] = m
	}
	ordered := make([]*models.Movie, 0, len(tmdbIDs))
	for _, id := range tmdbIDs {
		if m, ok := byTMDB[id]; ok {
			ordered = append(ordered, m)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"movies":        ordered,
		"page":          resp.Page,
		"total_pages":   resp.TotalPages,
		"total_results": resp.TotalResults,
	})
}

// ListJobs returns job executions, newest first, optionally filtered by
// type and status.
func (h *Handler) ListJobs(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil || limit < 1 || limit > 500 {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	filter := db.JobStatusFilter{Limit: limit}
	if raw := c.Query("job_type"); raw != "" {
		jt := models.JobType(raw)
		filter.JobType = &jt
	}
	if raw := c.Query("status"); raw != "" {
		st := models.JobExecutionStatus(raw)
		filter.Status = &st
	}

	statuses, err := h.store.ListJobStatuses(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list job statuses")
		respondError(c, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": statuses})
}

func (h *Handler) jobIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("jobID"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid job id")
		return 0, false
	}
	return id, true
}

// GetJob returns one job execution.
func (h *Handler) GetJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	status, err := h.store.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get job status")
		respondError(c, http.StatusInternalServerError, "failed to get job")
		return
	}
	if status == nil {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelJob requests cancellation of a running job.
func (h *Handler) CancelJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	if !h.exec.Cancel(jobID) {
		respondError(c, http.StatusConflict, "job is not running")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation requested"})
}

// DeleteJob removes a terminal job execution and its logs.
func (h *Handler) DeleteJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	status, err := h.store.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get job status")
		respondError(c, http.StatusInternalServerError, "failed to get job")
		return
	}
	if status == nil {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}
	if !status.Status.IsTerminal() {
		respondError(c, http.StatusConflict, "cannot delete a job that is still running")
		return
	}

	if err := h.store.DeleteJobStatus(c.Request.Context(), jobID); err != nil {
		h.logger.WithError(err).Error("Failed to delete job status")
		respondError(c, http.StatusInternalServerError, "failed to delete job")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetJobLogs returns the audit log lines for one job execution.
func (h *Handler) GetJobLogs(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", 200)
	if err != nil || limit < 1 {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	logs, err := h.store.ListJobLogs(c.Request.Context(), jobID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list job logs")
		respondError(c, http.StatusInternalServerError, "failed to list job logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetJobStats returns per-type execution counts and the catalog size.
func (h *Handler) GetJobStats(c *gin.Context) {
	stats, err := h.store.JobStats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute job stats")
		respondError(c, http.StatusInternalServerError, "failed to compute job stats")
		return
	}

	movieCount, err := h.store.CountMovies(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count movies")
		respondError(c, http.StatusInternalServerError, "failed to compute job stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "total_movies": movieCount})
}

// SchedulerStatus reports the scheduler's run state, the registered
// schedules, and live executions.
func (h *Handler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.scheduler.IsRunning(),
		"jobs":    h.scheduler.Status(),
		"active":  h.exec.RunningJobs(),
	})
}

// StartScheduler starts scheduling. Idempotent.
func (h *Handler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		h.logger.WithError(err).Error("Failed to start scheduler")
		respondError(c, http.StatusInternalServerError, "failed to start scheduler")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// StopScheduler stops scheduling. Running executions finish on their own.
func (h *Handler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) jobTypeParam(c *gin.Context) (models.JobType, bool) {
	jt := models.JobType(c.Param("jobType"))
	switch jt {
	case models.JobTypeMovieDiscovery, models.JobTypeChangeTracking,
		models.JobTypeCategoryRefresh, models.JobTypeDatasetExport:
		return jt, true
	}
	respondError(c, http.StatusNotFound, "unknown job type")
	return "", false
}

// TriggerJob runs a job immediately, outside its schedule.
func (h *Handler) TriggerJob(c *gin.Context) {
	jobType, ok := h.jobTypeParam(c)
	if !ok {
		return
	}
	if err := h.scheduler.Trigger(jobType); err != nil {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

// PauseJob suspends scheduled runs of a job type.
func (h *Handler) PauseJob(c *gin.Context) {
	jobType, ok := h.jobTypeParam(c)
	if !ok {
		return
	}
	if err := h.scheduler.Pause(jobType); err != nil {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// ResumeJob re-enables scheduled runs of a job type.
func (h *Handler) ResumeJob(c *gin.Context) {
	jobType, ok := h.jobTypeParam(c)
	if !ok {
		return
	}
	if err := h.scheduler.Resume(jobType); err != nil {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

// HydrationQueueSize reports how many movies are waiting for hydration.
func (h *Handler) HydrationQueueSize(c *gin.Context) {
	size, err := h.redis.HydrationQueueSize(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read hydration queue")
		respondError(c, http.StatusInternalServerError, "failed to read hydration queue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue_size": size})
}
