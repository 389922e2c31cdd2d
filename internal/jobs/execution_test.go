package jobs

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

func newTestManager() *ExecutionManager {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewExecutionManager(logger)
}

func TestExecutionManager(t *testing.T) {
	t.Run("cancel flips the signal", func(t *testing.T) {
		m := newTestManager()
		_, cancel := context.WithCancel(context.Background())
		defer cancel()

		signal := m.Register(1, models.JobTypeMovieDiscovery, cancel)
		assert.False(t, signal.IsCancelled())

		require.True(t, m.Cancel(1))
		assert.True(t, signal.IsCancelled())
	})

	t.Run("cancel of unknown job returns false", func(t *testing.T) {
		m := newTestManager()
		assert.False(t, m.Cancel(42))
	})

	t.Run("unregister removes the job", func(t *testing.T) {
		m := newTestManager()
		_, cancel := context.WithCancel(context.Background())
		defer cancel()

		m.Register(1, models.JobTypeMovieDiscovery, cancel)
		assert.True(t, m.IsRunning(models.JobTypeMovieDiscovery))

		m.Unregister(1)
		assert.False(t, m.IsRunning(models.JobTypeMovieDiscovery))
		assert.False(t, m.Cancel(1))
	})

	t.Run("unregister of unknown job is a no-op", func(t *testing.T) {
		m := newTestManager()
		m.Unregister(99)
	})

	t.Run("running jobs are grouped by type", func(t *testing.T) {
		m := newTestManager()
		_, cancel := context.WithCancel(context.Background())
		defer cancel()

		m.Register(1, models.JobTypeMovieDiscovery, cancel)
		m.Register(2, models.JobTypeMovieDiscovery, cancel)
		m.Register(3, models.JobTypeChangeTracking, cancel)

		running := m.RunningJobs()
		assert.Len(t, running[models.JobTypeMovieDiscovery], 2)
		assert.Len(t, running[models.JobTypeChangeTracking], 1)
	})

	t.Run("repeated cancel arms the abrupt timer once", func(t *testing.T) {
		m := newTestManager()
		_, cancel := context.WithCancel(context.Background())
		defer cancel()

		m.Register(1, models.JobTypeMovieDiscovery, cancel)
		require.True(t, m.Cancel(1))
		require.True(t, m.Cancel(1))

		m.mu.Lock()
		timer := m.running[1].timer
		m.mu.Unlock()
		assert.NotNil(t, timer)
	})
}
