// Package jobs runs background cron tasks: quest rotation at local midnight
// and periodic snapshot flushing.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRotationSpec fires at local midnight.
const DefaultRotationSpec = "0 0 * * *"

// Rotator re-issues quests whose period rolled over and reports how many users changed.
type Rotator interface {
	RotateQuests(ctx context.Context) int
}

// Flusher waits for pending snapshot saves.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	rotator Rotator
	log     *slog.Logger
	loc     *time.Location

	rotationSpec string
	flusher      Flusher
	flushSpec    string

	mu      sync.Mutex
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRotationSpec overrides DefaultRotationSpec.
func WithRotationSpec(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.rotationSpec = spec
		}
	}
}

// WithFlush flushes f on spec, e.g. "@every 1m".
func WithFlush(f Flusher, spec string) Option {
	return func(s *Scheduler) {
		s.flusher = f
		s.flushSpec = spec
	}
}

// NewScheduler creates a scheduler for r.
func NewScheduler(r Rotator, opts ...Option) *Scheduler {
	s := &Scheduler{
		rotator:      r,
		log:          slog.Default(),
		loc:          time.UTC,
		rotationSpec: DefaultRotationSpec,
	}
	for _, o := range opts {
		o(s)
	}
	s.cron = cron.New(cron.WithLocation(s.loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return s
}

// Start registers the jobs and starts the runner. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc(s.rotationSpec, func() { s.RunRotation(ctx) }); err != nil {
		return fmt.Errorf("rotation spec %q: %w", s.rotationSpec, err)
	}
	if s.flusher != nil && s.flushSpec != "" {
		if _, err := s.cron.AddFunc(s.flushSpec, func() { s.runFlush(ctx) }); err != nil {
			return fmt.Errorf("flush spec %q: %w", s.flushSpec, err)
		}
	}

	s.cron.Start()
	s.started = true
	s.log.Info("scheduler started", "rotation", s.rotationSpec, "location", s.loc.String())
	return nil
}

// RunRotation rotates quests of every open session once.
func (s *Scheduler) RunRotation(ctx context.Context) int {
	start := time.Now()
	n := s.rotator.RotateQuests(ctx)
	s.log.Info("quest rotation", "rotated", n, "duration", time.Since(start))
	return n
}

func (s *Scheduler) runFlush(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.flusher.Flush(fctx); err != nil {
		s.log.Warn("snapshot flush failed", "error", err)
	}
}

// Entries reports the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Stop stops the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.log.Info("scheduler stopped")
}
