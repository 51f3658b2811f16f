// Package scheduler fires a job once at startup and then daily at a wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/events"
)

const maxPollInterval = time.Minute

type TickFunc func(ctx context.Context) error

type Config struct {
	Hour, Minute int
	Location     *time.Location

	// PollInterval is how often the clock is checked. Capped at one minute.
	PollInterval time.Duration
}

// Scheduler owns its firing state. A run is due when the current time has
// reached today's trigger and nothing fired since that trigger, so a late or
// missed poll still fires once. A trigger arriving while a tick is still
// running is dropped.
type Scheduler struct {
	config Config
	events events.Sink
	logger *logrus.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastFired  time.Time
	inProgress atomic.Bool
	wg         sync.WaitGroup
}

func New(config Config, sink events.Sink, logger *logrus.Logger) *Scheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.PollInterval <= 0 || config.PollInterval > maxPollInterval {
		config.PollInterval = maxPollInterval
	}
	if sink == nil {
		sink = events.Discard{}
	}
	return &Scheduler{
		config: config,
		events: sink,
		logger: logger,
		now:    time.Now,
	}
}

// Run fires onTick immediately, then polls until ctx is cancelled. On
// cancellation it stops polling and waits for the running tick to return.
func (s *Scheduler) Run(ctx context.Context, onTick TickFunc) error {
	s.logger.WithFields(logrus.Fields{
		"run_time": fmt.Sprintf("%02d:%02d", s.config.Hour, s.config.Minute),
		"timezone": s.config.Location.String(),
	}).Info("Scheduler started")

	s.fire(ctx, onTick, s.now(), "startup")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping, waiting for running tick")
			s.wg.Wait()
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.poll(ctx, onTick, s.now())
		}
	}
}

// poll fires onTick when a run is due at now.
func (s *Scheduler) poll(ctx context.Context, onTick TickFunc, now time.Time) {
	if !s.due(now) {
		return
	}
	s.fire(ctx, onTick, now, "schedule")
}

func (s *Scheduler) due(now time.Time) bool {
	trigger := s.trigger(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(trigger) && s.lastFired.Before(trigger)
}

// fire marks now as fired and starts onTick unless a tick is still running.
func (s *Scheduler) fire(ctx context.Context, onTick TickFunc, now time.Time, reason string) {
	s.mu.Lock()
	s.lastFired = now
	s.mu.Unlock()

	if !s.inProgress.CompareAndSwap(false, true) {
		s.logger.WithField("trigger", reason).Warn("Previous run still in progress, skipping trigger")
		s.events.Emit(ctx, events.New(events.TickSkipped, "", "", map[string]any{
			"trigger": reason,
			"at":      now.Format(time.RFC3339),
		}))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inProgress.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Scheduled run panicked")
			}
		}()

		s.logger.WithField("trigger", reason).Info("Starting scheduled run")
		if err := onTick(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled run failed")
		}
		s.logger.WithField("next_run", s.NextRun(s.now())).Info("Waiting for next scheduled run")
	}()
}

// trigger returns today's trigger time in the configured location.
func (s *Scheduler) trigger(now time.Time) time.Time {
	local := now.In(s.config.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
}

// NextRun is the first trigger after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	next := s.trigger(now)
	if !now.Before(next) {
		local := next
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
	}
	return next
}

// LastFired returns when the scheduler last fired.
func (s *Scheduler) LastFired() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFired
}

// Wait blocks until the running tick, if any, returns.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
