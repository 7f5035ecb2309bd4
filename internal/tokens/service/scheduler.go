package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSchedule runs the renewal sweep daily at 02:00 local time.
const DefaultSchedule = "0 2 * * *"

// Trigger runs job on a cron-style schedule until the returned cancel func
// is called.
type Trigger interface {
	Schedule(spec string, job func()) (cancel func(), err error)
}

// Sweeper runs one renewal sweep. *RenewalService implements it.
type Sweeper interface {
	CheckAndRenewAll(ctx context.Context) SweepReport
}

// State is the lifecycle state of a RenewalScheduler.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SchedulerStatus is a snapshot of a RenewalScheduler.
type SchedulerStatus struct {
	State    State
	Schedule string
	InFlight bool

	// LastReason is why the most recent sweep started ("startup",
	// "schedule" or a manual reason).
	LastReason     string
	LastStartedAt  time.Time
	LastFinishedAt time.Time
	LastReport     *SweepReport

	// NextRunAt is zero when the trigger cannot tell.
	NextRunAt time.Time

	Runs            int
	SkippedTriggers int
}

// RenewalScheduler runs renewal sweeps unattended: once when started and
// then on every trigger activation. It moves Idle -> Running -> Stopped and
// cannot be restarted once stopped.
//
// At most one sweep is in flight. Activations that arrive while a sweep is
// still running are skipped.
type RenewalScheduler struct {
	sweeper  Sweeper
	trigger  Trigger
	schedule string
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	cancel     func()
	inFlight   bool
	lastReason string
	lastStart  time.Time
	lastFinish time.Time
	lastReport *SweepReport
	runs       int
	skipped    int

	wg sync.WaitGroup
}

// NewRenewalScheduler creates an idle scheduler. An empty schedule means
// DefaultSchedule.
func NewRenewalScheduler(sweeper Sweeper, trigger Trigger, schedule string, logger *slog.Logger) *RenewalScheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalScheduler{
		sweeper:  sweeper,
		trigger:  trigger,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the recurring trigger and fires one sweep in the
// background. It returns without waiting for that sweep.
func (s *RenewalScheduler) Start() error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrSchedulerRunning
	case StateStopped:
		s.mu.Unlock()
		return ErrSchedulerStopped
	}

	cancel, err := s.trigger.Schedule(s.schedule, s.onTrigger)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("register renewal trigger: %w", err)
	}
	s.cancel = cancel
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("renewal scheduler started", "schedule", s.schedule)

	if err := s.fire("startup"); err != nil {
		s.logger.Warn("startup sweep not started", "error", err)
	}
	return nil
}

// Stop cancels the trigger so no further sweeps start. A sweep already in
// flight runs to completion; use Wait to block on it. Stop only acts on a
// running scheduler; on an idle or stopped one it does nothing.
func (s *RenewalScheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Info("renewal scheduler stopped")
}

// Wait blocks until no sweep is in flight or ctx is done.
func (s *RenewalScheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow starts an out-of-band sweep. It fails with
// ErrSchedulerNotRunning unless the scheduler is running and with
// ErrSweepInProgress when a sweep is already in flight.
func (s *RenewalScheduler) TriggerNow(reason string) error {
	if reason == "" {
		reason = "manual"
	}
	return s.fire(reason)
}

// Status returns a snapshot of the scheduler.
func (s *RenewalScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	st := SchedulerStatus{
		State:           s.state,
		Schedule:        s.schedule,
		InFlight:        s.inFlight,
		LastReason:      s.lastReason,
		LastStartedAt:   s.lastStart,
		LastFinishedAt:  s.lastFinish,
		Runs:            s.runs,
		SkippedTriggers: s.skipped,
	}
	if s.lastReport != nil {
		report := *s.lastReport
		st.LastReport = &report
	}
	s.mu.Unlock()

	if st.State == StateRunning {
		if n, ok := s.trigger.(interface{ NextRun() time.Time }); ok {
			st.NextRunAt = n.NextRun()
		}
	}
	return st
}

func (s *RenewalScheduler) onTrigger() {
	err := s.fire("schedule")
	if errors.Is(err, ErrSweepInProgress) {
		s.logger.Warn("scheduled renewal sweep skipped, previous sweep still running")
	}
}

// fire starts a sweep in the background if the scheduler is running and
// idle.
func (s *RenewalScheduler) fire(reason string) error {
	s.mu.Lock()
	switch {
	case s.state == StateStopped:
		s.mu.Unlock()
		return ErrSchedulerStopped
	case s.state != StateRunning:
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	case s.inFlight:
		s.skipped++
		s.mu.Unlock()
		return ErrSweepInProgress
	}

	s.inFlight = true
	s.lastReason = reason
	s.lastStart = time.Now()
	s.runs++
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("renewal sweep triggered", "reason", reason)
	go s.sweep(reason)
	return nil
}

func (s *RenewalScheduler) sweep(reason string) {
	defer s.wg.Done()

	// Not tied to Stop: an in-flight sweep is allowed to finish
	report := s.sweeper.CheckAndRenewAll(context.Background())

	s.mu.Lock()
	s.inFlight = false
	s.lastFinish = time.Now()
	s.lastReport = &report
	s.mu.Unlock()

	s.logger.Debug("renewal sweep recorded", "reason", reason, "run_id", report.RunID.String())
}
