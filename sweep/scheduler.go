// Package sweep runs periodic housekeeping jobs on a cron scheduler.
//
// The service registers two jobs: expired cache entries are removed every
// few minutes and usage samples past the retention horizon are pruned
// hourly. Neither job affects correctness; both only bound memory.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/usage"
)

// Default intervals.
const (
	DefaultCacheInterval = 5 * time.Minute
	DefaultUsageInterval = time.Hour
)

var (
	// ErrInvalidJob is returned by Add for a job without a name, run func or
	// with an interval below one second.
	ErrInvalidJob = errors.New("sweep: invalid job")

	// ErrUnknownJob is returned by RunNow for an unregistered name.
	ErrUnknownJob = errors.New("sweep: unknown job")
)

// Job is one periodic housekeeping task. Run returns how many items it removed.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// CacheJob removes expired cache entries.
func CacheJob(c cache.Sweeper, interval time.Duration) Job {
	return Job{
		Name:     "cache",
		Interval: interval,
		Run: func(ctx context.Context) (int, error) {
			return c.RemoveExpired(ctx), nil
		},
	}
}

// UsageJob drops usage samples older than retention.
func UsageJob(t *usage.Tracker, interval, retention time.Duration) Job {
	return Job{
		Name:     "usage",
		Interval: interval,
		Run: func(context.Context) (int, error) {
			return t.Prune(retention), nil
		},
	}
}

// Scheduler runs registered jobs at fixed intervals.
type Scheduler struct {
	cron    *cron.Cron
	logger  observe.Logger
	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running bool
}

// NewScheduler creates a scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(logger observe.Logger) *Scheduler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger.With(observe.F("component", "sweep")),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. Jobs may be added before or after Start.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval < time.Second {
		return fmt.Errorf("%w: %q every %s", ErrInvalidJob, job.Name, job.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job.Name]; ok {
		s.cron.Remove(id)
	}
	id := s.cron.Schedule(cron.Every(job.Interval), cron.FuncJob(func() {
		s.runJob(ctx, job)
	}))
	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	return nil
}

// Start begins running jobs. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info(ctx, "sweep scheduler started", observe.F("jobs", len(s.jobs)))

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info(context.Background(), "sweep scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// RunNow runs the named job synchronously and returns how many items it removed.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runJob(ctx, job)
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (removed int, err error) {
	logger := s.logger.With(observe.F("job", job.Name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep: job %s panicked: %v", job.Name, r)
			logger.Error(ctx, "sweep panicked", observe.F("error", err.Error()))
		}
	}()

	removed, err = job.Run(ctx)
	if err != nil {
		logger.Error(ctx, "sweep failed", observe.F("error", err.Error()))
		return removed, err
	}

	if removed > 0 {
		logger.Info(ctx, "sweep completed", observe.F("removed", removed))
	} else {
		logger.Debug(ctx, "sweep completed, nothing removed")
	}
	return removed, nil
}
