package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

// registration declares one recurring job: either a cron spec or a fixed
// interval with an optional startup delay.
type registration struct {
	jobType    models.JobType
	spec       string
	interval   time.Duration
	startDelay time.Duration
	run        func()
}

// JobScheduleStatus describes one scheduled job for the control surface.
type JobScheduleStatus struct {
	JobType  models.JobType `json:"job_type"`
	Schedule string         `json:"schedule"`
	Paused   bool           `json:"paused"`
	NextRun  *time.Time     `json:"next_run,omitempty"`
}

// Scheduler owns the recurring jobs. Overlapping runs of the same job are
// skipped rather than queued, and a panicking job never takes the process
// down. Stopping discards the underlying cron entirely; a later start
// rebuilds it from the registrations, so no stale entry state survives a
// stop/start cycle.
type Scheduler struct {
	logger *logrus.Logger

	mu            sync.Mutex
	cron          *cron.Cron
	registrations []registration
	entries       map[models.JobType]cron.EntryID
	paused        map[models.JobType]bool
	startedAt     time.Time
	running       bool
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		entries: make(map[models.JobType]cron.EntryID),
		paused:  make(map[models.JobType]bool),
	}
}

// RegisterCron schedules a job on a standard cron spec.
func (s *Scheduler) RegisterCron(jobType models.JobType, spec string, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations = append(s.registrations, registration{
		jobType: jobType,
		spec:    spec,
		run:     run,
	})
}

// RegisterInterval schedules a job on a fixed interval. Runs before the
// start delay has elapsed are skipped, which keeps heavy jobs away from
// process startup.
func (s *Scheduler) RegisterInterval(jobType models.JobType, interval, startDelay time.Duration, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations = append(s.registrations, registration{
		jobType:    jobType,
		interval:   interval,
		startDelay: startDelay,
		run:        run,
	})
}

// wrap applies the pause gate and the startup delay gate around a job run.
func (s *Scheduler) wrap(reg registration) func() {
	return func() {
		s.mu.Lock()
		paused := s.paused[reg.jobType]
		notYet := reg.startDelay > 0 && time.Since(s.startedAt) < reg.startDelay
		s.mu.Unlock()

		if paused {
			s.logger.WithField("job_type", reg.jobType).Debug("Skipping paused job")
			return
		}
		if notYet {
			s.logger.WithField("job_type", reg.jobType).Debug("Skipping job, startup delay not elapsed")
			return
		}
		reg.run()
	}
}

// Start builds a fresh cron from the registrations and starts it. Calling
// Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	s.entries = make(map[models.JobType]cron.EntryID)
	for _, reg := range s.registrations {
		spec := reg.spec
		if spec == "" {
			spec = fmt.Sprintf("@every %s", reg.interval)
		}
		id, err := c.AddFunc(spec, s.wrap(reg))
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", reg.jobType, err)
		}
		s.entries[reg.jobType] = id
	}

	s.cron = c
	s.startedAt = time.Now()
	s.running = true
	c.Start()

	s.logger.WithField("jobs", len(s.registrations)).Info("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for in-flight runs to return. The cron
// instance is discarded; pause flags survive.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.cron = nil
	s.entries = make(map[models.JobType]cron.EntryID)
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger runs a registered job immediately, bypassing its schedule and
// any pause flag. Returns an error for unknown job types.
func (s *Scheduler) Trigger(jobType models.JobType) error {
	s.mu.Lock()
	var run func()
	for _, reg := range s.registrations {
		if reg.jobType == jobType {
			run = reg.run
			break
		}
	}
	s.mu.Unlock()

	if run == nil {
		return fmt.Errorf("unknown job type %q", jobType)
	}

	s.logger.WithField("job_type", jobType).Info("Job triggered manually")
	go run()
	return nil
}

// Pause keeps a job registered but skips its scheduled runs.
func (s *Scheduler) Pause(jobType models.JobType) error {
	return s.setPaused(jobType, true)
}

func (s *Scheduler) Resume(jobType models.JobType) error {
	return s.setPaused(jobType, false)
}

func (s *Scheduler) setPaused(jobType models.JobType, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.registrations {
		if reg.jobType == jobType {
			s.paused[jobType] = paused
			return nil
		}
	}
	return fmt.Errorf("unknown job type %q", jobType)
}

// Status reports every registered job with its schedule, pause flag, and
// next planned run.
func (s *Scheduler) Status() []JobScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobScheduleStatus, 0, len(s.registrations))
	for _, reg := range s.registrations {
		spec := reg.spec
		if spec == "" {
			spec = fmt.Sprintf("@every %s", reg.interval)
		}

		status := JobScheduleStatus{
			JobType:  reg.jobType,
			Schedule: spec,
			Paused:   s.paused[reg.jobType],
		}
		if s.running {
			if id, ok := s.entries[reg.jobType]; ok {
				next := s.cron.Entry(id).Next
				if !next.IsZero() {
					status.NextRun = &next
				}
			}
		}
		out = append(out, status)
	}
	return out
}
