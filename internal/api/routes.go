package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the control surface routes.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		movies := v1.Group("/movies")
		{
			movies.GET("", h.ListMovies)
			movies.GET("/:tmdbID", h.GetMovie)
		}

		v1.GET("/discover", h.DiscoverMovies)

		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.GET("", h.ListJobs)
			jobsGroup.GET("/stats", h.GetJobStats)
			jobsGroup.GET("/:jobID", h.GetJob)
			jobsGroup.DELETE("/:jobID", h.DeleteJob)
			jobsGroup.POST("/:jobID/cancel", h.CancelJob)
			jobsGroup.GET("/:jobID/logs", h.GetJobLogs)
		}

		scheduler := v1.Group("/scheduler")
		{
			scheduler.GET("/status", h.SchedulerStatus)
			scheduler.POST("/start", h.StartScheduler)
			scheduler.POST("/stop", h.StopScheduler)
			scheduler.POST("/trigger/:jobType", h.TriggerJob)
			scheduler.POST("/pause/:jobType", h.PauseJob)
			scheduler.POST("/resume/:jobType", h.ResumeJob)
		}

		v1.GET("/hydration/queue", h.HydrationQueueSize)
	}

	return r
}
