// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bilancio/internal/log"
)

// Job runs once per tick with the tick time.
type Job func(ctx context.Context, now time.Time) error

type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger
	now    func() time.Time

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]Job
}

// New creates a scheduler evaluating schedules in loc. Overlapping runs of
// the same job are skipped and panics are recovered.
func New(logger *log.Logger, loc *time.Location) *Scheduler {
	logger = logger.WithComponent(log.ComponentScheduler)
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		now:    time.Now,
		ctx:    context.Background(),
		jobs:   make(map[string]Job),
	}
}

// Add registers job under name with a standard five-field spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	if _, dup := s.jobs[name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("job %q already registered", name)
	}
	s.jobs[name] = job
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, func() { s.run(name) }); err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	s.logger.Info("Job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start begins ticking. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop stops ticking and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow runs a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(name)
}

func (s *Scheduler) run(name string) error {
	s.mu.Lock()
	job, ctx := s.jobs[name], s.ctx
	s.mu.Unlock()

	start := s.now()
	err := job(ctx, start)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.ErrorContext(ctx, "Job failed", "job", name, log.FieldError, err, log.FieldDuration, elapsed.Milliseconds())
		return err
	}
	s.logger.InfoContext(ctx, "Job finished", "job", name, log.FieldDuration, elapsed.Milliseconds())
	return nil
}

// cronLogger adapts the component logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
