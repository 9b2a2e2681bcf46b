// Package schedule runs the scan pipeline after the US close on trading days.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"basescan/internal/market"
)

// DefaultSpec fires at 16:30 on weekdays. The first field is seconds.
const DefaultSpec = "0 30 16 * * MON-FRI"

// Job is the work run on each trigger.
type Job func(ctx context.Context) error

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler manages the after-close cron task.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	loc      *time.Location
	job      Job
	ctx      context.Context
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastErr error
	runs    int
}

// New parses spec in the named timezone (America/New_York when empty).
func New(ctx context.Context, spec, timezone string, job Job, logger zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	loc := market.ETLocation()
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		loc = l
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	logger = logger.With().Str("component", "schedule").Logger()
	s := &Scheduler{
		schedule: sched,
		loc:      loc,
		job:      job,
		ctx:      ctx,
		logger:   logger,
		now:      time.Now,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(spec, s.Trigger); err != nil {
		return nil, fmt.Errorf("register scan task: %w", err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Time("next", s.Next()).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns the next trigger time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now().In(s.loc))
}

// Trigger runs the job unless today is not a trading day in the
// scheduler's timezone.
func (s *Scheduler) Trigger() {
	now := s.now().In(s.loc)
	if !market.IsTradingDay(now) {
		s.logger.Info().Str("date", now.Format("2006-01-02")).Msg("Market closed, skipping scan")
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	s.logger.Info().Msg("Running scheduled scan")
	err := s.job(s.ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled scan failed")
		return
	}
	s.logger.Info().Time("next", s.Next()).Msg("Scheduled scan finished")
}

// Stats returns the number of completed runs and the last run's error.
func (s *Scheduler) Stats() (runs int, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
