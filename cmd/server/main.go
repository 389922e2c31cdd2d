package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/api"
	"github.com/saiteja-velpula/sagepick.core/internal/cache"
	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/export"
	"github.com/saiteja-velpula/sagepick.core/internal/jobs"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
	"github.com/saiteja-velpula/sagepick.core/internal/redis"
	syncpkg "github.com/saiteja-velpula/sagepick.core/internal/sync"
	"github.com/saiteja-velpula/sagepick.core/internal/tmdb"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.DBConnectionString == "" || cfg.TMDB.BearerToken == "" {
		logger.Fatal("Missing required configuration (DB_CONNECTION_STRING and TMDB_BEARER_TOKEN must be set)")
	}

	// Initialize database
	store, err := db.NewPostgresStore(cfg.DBConnectionString)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, func() error {
		return store.Migrate()
	}); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// TMDB client and sync pipeline
	tmdbClient := tmdb.NewClient(cfg.TMDB, logger)
	defer tmdbClient.Close()

	limiter := syncpkg.NewLimiter(cfg.TMDB.MaxRequestsPerSecond)
	genreCache := cache.NewGenreCache(store, logger)
	keywordCache := cache.NewKeywordCache(store, redisClient, cfg.Jobs.KeywordCacheMaxEntries, logger)
	locker := redis.NewMovieLocker(redisClient, cfg.Jobs.LockTTL)

	processor := syncpkg.NewProcessor(store, tmdbClient, limiter, genreCache, keywordCache, redisClient, logger)
	orchestrator := syncpkg.NewOrchestrator(processor, locker, store, logger)

	// Job infrastructure
	execManager := jobs.NewExecutionManager(logger)
	runner := jobs.NewRunner(store, execManager, cfg.Jobs.ErrorRateThreshold, logger)
	scheduler := jobs.NewScheduler(logger)

	discovery := jobs.NewDiscoveryJob(tmdbClient, orchestrator, redisClient, store, cfg.Jobs, logger)
	changeTracking := jobs.NewChangeTrackingJob(tmdbClient, orchestrator, store, logger)
	categoryRefresh := jobs.NewCategoryRefreshJob(tmdbClient, orchestrator, store, genreCache, cfg.Jobs, logger)

	// Warm the genre cache before any movie processing needs it.
	if err := categoryRefresh.SyncGenres(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to preload genres, continuing with lazy load")
	}

	discoveryEstimate := cfg.Jobs.DiscoveryItemsPerRun
	scheduler.RegisterInterval(models.JobTypeMovieDiscovery, cfg.Jobs.DiscoveryInterval, cfg.Jobs.DiscoveryStartDelay, func() {
		_ = runner.Run(context.Background(), models.JobTypeMovieDiscovery, &discoveryEstimate, discovery.Run)
	})
	scheduler.RegisterCron(models.JobTypeChangeTracking, cfg.Jobs.ChangeTrackingSpec, func() {
		_ = runner.Run(context.Background(), models.JobTypeChangeTracking, nil, changeTracking.Run)
	})
	scheduler.RegisterCron(models.JobTypeCategoryRefresh, cfg.Jobs.CategoryRefreshSpec, func() {
		_ = runner.Run(context.Background(), models.JobTypeCategoryRefresh, nil, categoryRefresh.Run)
	})

	if cfg.Export.Enabled {
		s3Writer, err := export.NewS3Writer(cfg.Export)
		if err != nil {
			logger.Fatalf("Failed to initialize export storage: %v", err)
		}
		datasetExport := jobs.NewDatasetExportJob(export.NewBuilder(store), s3Writer, cfg.Export, logger)
		scheduler.RegisterCron(models.JobTypeDatasetExport, cfg.Jobs.DatasetExportSpec, func() {
			_ = runner.Run(context.Background(), models.JobTypeDatasetExport, nil, datasetExport.Run)
		})
	} else {
		logger.Info("Dataset export disabled")
	}

	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Background hydration
	hydration := jobs.NewHydrationWorker(redisClient, orchestrator, cfg.Jobs, logger)
	hydration.Start()
	defer hydration.Stop()

	// Control surface
	apiHandler := api.NewHandler(store, redisClient, tmdbClient, orchestrator, scheduler, execManager, logger)
	router := api.SetupRouter(apiHandler)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
