package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerOptions configures the background jobs. An empty cron spec or a
// zero expiry disables the corresponding job.
type SchedulerOptions struct {
	RateRefreshCron string
	ExpiryCron      string
	PendingExpiry   time.Duration
	JobTimeout      time.Duration
}

// PendingExpirer fails pending tickets older than a maximum age
type PendingExpirer interface {
	ExpirePending(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler runs the exchange-rate reload and pending-expiry jobs
type Scheduler struct {
	cron *cron.Cron
	jobs int
	log  *zap.Logger
}

// NewScheduler registers the enabled jobs; it does not start them
func NewScheduler(rates ExchangeRateService, expirer PendingExpirer, opts SchedulerOptions, log *zap.Logger) (*Scheduler, error) {
	log = log.Named("scheduler")
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		log:  log,
	}

	if opts.RateRefreshCron != "" {
		if _, err := s.cron.AddFunc(opts.RateRefreshCron, s.wrap("exchange_rate_reload", opts.JobTimeout, func(ctx context.Context) error {
			return rates.Reload(ctx)
		})); err != nil {
			return nil, fmt.Errorf("schedule exchange rate reload: %w", err)
		}
		s.jobs++
	}

	if opts.PendingExpiry > 0 && opts.ExpiryCron != "" {
		maxAge := opts.PendingExpiry
		if _, err := s.cron.AddFunc(opts.ExpiryCron, s.wrap("pending_expiry", opts.JobTimeout, func(ctx context.Context) error {
			_, err := expirer.ExpirePending(ctx, maxAge)
			return err
		})); err != nil {
			return nil, fmt.Errorf("schedule pending expiry: %w", err)
		}
		s.jobs++
	}
	return s, nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int { return s.jobs }

// Start runs the jobs in the background
func (s *Scheduler) Start() {
	if s.jobs == 0 {
		return
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", s.jobs))
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) wrap(name string, timeout time.Duration, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
