// Package cronx runs jobs on cron-style schedules.
//
// It wraps github.com/robfig/cron/v3 with the standard five-field parser
// (plus descriptors such as "@daily" and "@every 1h"), evaluated in the
// configured location. Panicking jobs are recovered and logged.
package cronx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler registers jobs and runs them on their schedule.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	started bool
	logger  *slog.Logger
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	location *time.Location
}

// WithLocation evaluates schedules in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// New creates a Scheduler. Nothing runs until the first job is scheduled.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	o := options{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger: logger,
	}
}

// Validate reports whether spec parses with the scheduler's parser.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Schedule registers job to run on spec and starts the scheduler if needed.
// The returned func removes the job; it is safe to call more than once.
func (s *Scheduler) Schedule(spec string, job func()) (func(), error) {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.mu.Unlock()

	s.logger.Debug("cron job scheduled", "spec", spec, "entry_id", int(id))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.cron.Remove(id)
			s.logger.Debug("cron job removed", "spec", spec, "entry_id", int(id))
		})
	}, nil
}

// NextRun returns the earliest upcoming activation across all jobs, or the
// zero time when nothing is scheduled.
func (s *Scheduler) NextRun() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger. Routine scheduler chatter is
// demoted to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

var _ cron.Logger = cronLogger{}
