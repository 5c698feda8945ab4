// Package scheduler runs the periodic poll scans on a cron runtime owned by
// the process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vncsmyrnk/pollcore/internal/core/services"
)

const (
	DefaultStatusSpec   = "@every 5m"
	DefaultReminderSpec = "@every 5m"
	scanTimeout         = 4 * time.Minute
)

// Scanner is implemented by services.ScanService.
type Scanner interface {
	RunStatusScan(ctx context.Context) error
	RunReminderScan(ctx context.Context) error
}

type Config struct {
	StatusSpec   string
	ReminderSpec string
}

type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	logger  *slog.Logger
}

func New(scanner Scanner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatusSpec == "" {
		cfg.StatusSpec = DefaultStatusSpec
	}
	if cfg.ReminderSpec == "" {
		cfg.ReminderSpec = DefaultReminderSpec
	}

	cronLogger := slogLogger{logger: logger.With("component", "cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		scanner: scanner,
		logger:  logger.With("component", "scheduler"),
	}

	if _, err := s.cron.AddFunc(cfg.StatusSpec, s.job("status", scanner.RunStatusScan)); err != nil {
		return nil, fmt.Errorf("invalid status scan schedule %q: %w", cfg.StatusSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.job("reminder", scanner.RunReminderScan)); err != nil {
		return nil, fmt.Errorf("invalid reminder scan schedule %q: %w", cfg.ReminderSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop prevents new ticks and waits for running scans or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// job wraps a scan so that its errors are logged and never reach cron.
func (s *Scheduler) job(name string, scan func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		err := scan(ctx)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrScanInProgress):
			s.logger.Warn("scan skipped, previous run still in progress", "scan", name)
		default:
			s.logger.Error("scan failed", "scan", name, "error", err)
		}
	}
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
