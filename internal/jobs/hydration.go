package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/config"
	"github.com/saiteja-velpula/sagepick.core/internal/redis"
	syncpkg "github.com/saiteja-velpula/sagepick.core/internal/sync"
)

// HydrationWorker drains the hydration queue in the background, turning
// minimal discovery rows into fully hydrated ones. One bounded batch is in
// flight at a time; IDs pulled but not finished at shutdown go back on the
// queue so nothing is lost.
type HydrationWorker struct {
	redis        *redis.Client
	orchestrator *syncpkg.Orchestrator
	batchSize    int
	pollInterval time.Duration
	logger       *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHydrationWorker(redisClient *redis.Client, orchestrator *syncpkg.Orchestrator, cfg config.JobsConfig, logger *logrus.Logger) *HydrationWorker {
	return &HydrationWorker{
		redis:        redisClient,
		orchestrator: orchestrator,
		batchSize:    cfg.HydrationBatchSize,
		pollInterval: cfg.HydrationPollInterval,
		logger:       logger,
	}
}

// Start launches the worker loop. Call Stop to drain and halt it.
func (w *HydrationWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()

	w.logger.WithFields(logrus.Fields{
		"batch_size":    w.batchSize,
		"poll_interval": w.pollInterval,
	}).Info("Hydration worker started")
}

// Stop signals the loop and waits for the in-flight batch to settle.
func (w *HydrationWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.logger.Info("Hydration worker stopped")
}

func (w *HydrationWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// drainOnce pulls one batch and hydrates it. IDs still unprocessed when
// the context dies are pushed back onto the queue.
func (w *HydrationWorker) drainOnce(ctx context.Context) {
	ids, err := w.redis.DequeueHydration(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).Warn("Failed to pull hydration batch")
		}
		return
	}
	if len(ids) == 0 {
		return
	}

	result, err := w.orchestrator.ProcessBatch(ctx, 0, ids, syncpkg.StrategyFetchAndInsertFull, nil)
	if err != nil {
		// Shutdown mid-batch: whatever did not succeed goes back on the
		// queue for the next process to pick up.
		requeueCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if requeueErr := w.redis.EnqueueHydration(requeueCtx, ids...); requeueErr != nil {
			w.logger.WithError(requeueErr).Error("Failed to requeue hydration batch")
		}
		return
	}

	if result.Failed > 0 {
		w.logger.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"failed":    result.Failed,
		}).Warn("Hydration batch had failures")
	}
}
