// Package scheduler runs the periodic reminder check on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/robfig/cron/v3"
)

// Checker runs one full reminder and overdue pass.
type Checker interface {
	CheckAllTasks(ctx context.Context) (service.CheckReport, error)
}

// Scheduler owns a single cron entry. A run that is still going when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a scheduler that calls checker every interval in loc.
func New(checker Checker, interval time.Duration, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("check interval must be at least 1s, got %s", interval)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "scheduler"))

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		checker:  checker,
		interval: interval,
		timeout:  interval,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
	}

	spec := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("register check job %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs one check bounded by the interval. Errors are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.checker.CheckAllTasks(ctx)
	if err != nil {
		s.logger.Error("scheduled check failed",
			slog.String("error", redact.Error(err)),
			slog.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("scheduled check finished",
		slog.Int("sent", report.Total.Sent),
		slog.Int("skipped", report.Total.Skipped),
		slog.Int("failed", report.Total.Failed),
		slog.Duration("elapsed", time.Since(start)))
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	s.cron.Start()
}

// Stop cancels the running check, if any, and waits for it to return or
// for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled check: %w", ctx.Err())
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", redact.Error(err)}, keysAndValues...)...)
}
