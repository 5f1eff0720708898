package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// scheduleKind discriminates how a job's next run is derived.
type scheduleKind int

const (
	kindInterval scheduleKind = iota
	kindDaily
)

type job struct {
	name     string
	kind     scheduleKind
	interval time.Duration
	hour     int // civil hour for daily jobs
	run      func(ctx context.Context) error
}

// Scheduler runs the engine's background jobs. Interval jobs fire immediately
// and then every interval; daily jobs fire once per civil day at a fixed
// wall-clock hour in the engine's timezone.
type Scheduler struct {
	loc    *time.Location
	jobs   []job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(loc *time.Location) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		loc:    loc,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddIntervalJob registers a job that runs on start and then every interval.
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, job{name: name, kind: kindInterval, interval: interval, run: fn})
	slog.Info("Cron job registered", "name", name, "interval", interval)
}

// AddDailyJob registers a job that runs once per day at the given civil hour.
func (s *Scheduler) AddDailyJob(name string, hour int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, job{name: name, kind: kindDaily, hour: hour, run: fn})
	slog.Info("Cron job registered", "name", name, "daily_at_hour", hour)
}

// Start begins running all registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(j)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all jobs.
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) runJob(j job) {
	defer s.wg.Done()

	if j.kind == kindInterval {
		s.executeJob(j)
	}

	for {
		timer := time.NewTimer(s.untilNext(j))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			slog.Info("Cron job stopping", "name", j.name)
			return
		case <-timer.C:
			s.executeJob(j)
		}
	}
}

func (s *Scheduler) untilNext(j job) time.Duration {
	if j.kind == kindInterval {
		return j.interval
	}
	return time.Until(nextDailyRun(time.Now().In(s.loc), j.hour))
}

// nextDailyRun returns the next instant the given civil hour occurs strictly
// after now.
func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) executeJob(j job) {
	start := time.Now()
	slog.Debug("Cron job starting", "name", j.name)

	if err := j.run(s.ctx); err != nil {
		slog.Error("Cron job failed", "name", j.name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", j.name, "duration", time.Since(start))
	}
}

// RunOnce runs every registered job once, regardless of schedule.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if err := j.run(ctx); err != nil {
			slog.Error("Cron job failed", "name", j.name, "error", err)
		}
	}
}
