package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// cancelGrace is how long a cancelled job gets to stop cooperatively before
// its context is cancelled outright.
const cancelGrace = 30 * time.Second

// CancelSignal is the cooperative cancellation flag handed to a running
// job. Runners poll IsCancelled between units of work and stop cleanly
// when it flips.
type CancelSignal struct {
	flag int32
}

func (s *CancelSignal) IsCancelled() bool {
	return atomic.LoadInt32(&s.flag) == 1
}

func (s *CancelSignal) set() {
	atomic.StoreInt32(&s.flag, 1)
}

type runningJob struct {
	jobType models.JobType
	signal  *CancelSignal
	cancel  context.CancelFunc
	timer   *time.Timer
}

// ExecutionManager tracks live job executions so the control surface can
// cancel them. Cancellation is cooperative first: the job's signal flips
// and it gets a grace window to wind down; only after the window does the
// job's context get cancelled abruptly.
type ExecutionManager struct {
	logger *logrus.Logger

	mu      sync.Mutex
	running map[int64]*runningJob
}

func NewExecutionManager(logger *logrus.Logger) *ExecutionManager {
	return &ExecutionManager{
		logger:  logger,
		running: make(map[int64]*runningJob),
	}
}

// Register records a job execution and returns its cancellation signal.
// The cancel func must abort the job's context when invoked.
func (m *ExecutionManager) Register(jobID int64, jobType models.JobType, cancel context.CancelFunc) *CancelSignal {
	signal := &CancelSignal{}

	m.mu.Lock()
	m.running[jobID] = &runningJob{
		jobType: jobType,
		signal:  signal,
		cancel:  cancel,
	}
	m.mu.Unlock()

	return signal
}

// Unregister removes a finished job and disarms any pending abrupt cancel.
func (m *ExecutionManager) Unregister(jobID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.running[jobID]
	if !ok {
		return
	}
	if job.timer != nil {
		job.timer.Stop()
	}
	delete(m.running, jobID)
}

// Cancel requests cancellation of a running job. Returns false when the
// job is not currently running.
func (m *ExecutionManager) Cancel(jobID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.running[jobID]
	if !ok {
		return false
	}

	job.signal.set()
	m.logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"job_type": job.jobType,
	}).Info("Job cancellation requested")

	if job.timer == nil {
		cancel := job.cancel
		jobType := job.jobType
		job.timer = time.AfterFunc(cancelGrace, func() {
			m.logger.WithFields(logrus.Fields{
				"job_id":   jobID,
				"job_type": jobType,
			}).Warn("Job did not stop within grace window, cancelling context")
			cancel()
		})
	}
	return true
}

// IsRunning reports whether any execution of the job type is live.
func (m *ExecutionManager) IsRunning(jobType models.JobType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.running {
		if job.jobType == jobType {
			return true
		}
	}
	return false
}

// RunningJobs lists live execution IDs by type.
func (m *ExecutionManager) RunningJobs() map[models.JobType][]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[models.JobType][]int64)
	for id, job := range m.running {
		out[job.jobType] = append(out[job.jobType], id)
	}
	return out
}
