package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/metrics"
)

const defaultCycleTimeout = 30 * time.Second

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config controls the refresh schedule.
type Config struct {
	Interval     time.Duration
	InitialDelay time.Duration
	CycleTimeout time.Duration
}

// Scheduler periodically refreshes the weather snapshot.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	cfg       Config
	log       *logrus.Entry
}

// New creates a new Scheduler.
func New(cfg Config, refresher Refresher) *Scheduler {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = defaultCycleTimeout
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		cfg:       cfg,
		log:       logging.WithComponent("scheduler"),
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// The first run happens after InitialDelay; cycles never overlap.
func (s *Scheduler) Start() error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("scheduler: refresh interval must be positive, got %s", s.cfg.Interval)
	}

	job := s.scheduler.Every(s.cfg.Interval).SingletonMode()
	if s.cfg.InitialDelay > 0 {
		job = job.StartAt(time.Now().Add(s.cfg.InitialDelay))
	} else {
		job = job.StartImmediately()
	}

	if _, err := job.Do(func() { s.Cycle(context.Background()) }); err != nil {
		return fmt.Errorf("scheduler: schedule refresh job: %w", err)
	}

	s.scheduler.StartAsync()
	s.log.WithFields(logrus.Fields{
		"interval":      s.cfg.Interval,
		"initial_delay": s.cfg.InitialDelay,
	}).Info("refresh scheduled")
	return nil
}

// Cycle runs one isolated refresh. Errors and panics are logged and counted;
// they never reach the caller, so one bad cycle cannot stop the schedule.
func (s *Scheduler) Cycle(parent context.Context) {
	start := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			s.log.WithField("panic", r).Error("refresh cycle panicked")
		}
		metrics.RefreshTotal.WithLabelValues(status).Inc()
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(parent, s.cfg.CycleTimeout)
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		status = "failure"
		s.log.WithError(err).Warn("weather refresh failed; keeping last snapshot")
		return
	}
	s.log.WithField("took", time.Since(start)).Debug("refresh cycle completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
