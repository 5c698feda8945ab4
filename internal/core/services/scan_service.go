package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// ErrScanInProgress is returned when a scan is started while the previous
// run of the same scan has not finished.
var ErrScanInProgress = errors.New("scan already in progress")

type ScanConfig struct {
	// TrailingWindow is how far back the status scan looks for start and end
	// dates. It should be slightly longer than the tick interval.
	TrailingWindow time.Duration
	// ReminderLead and ReminderWidth select ongoing polls ending in
	// [now+lead, now+lead+width].
	ReminderLead  time.Duration
	ReminderWidth time.Duration
	// Concurrency bounds how many polls are processed at once.
	Concurrency int
}

func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		TrailingWindow: 6 * time.Minute,
		ReminderLead:   10 * time.Minute,
		ReminderWidth:  5 * time.Minute,
		Concurrency:    4,
	}
}

type ScanService struct {
	lifecycle ports.PollLifecycle
	votes     ports.VoteRepository
	notifier  ports.NotificationDispatcher
	cfg       ScanConfig
	clock     ports.Clock
	logger    *slog.Logger

	statusMu   sync.Mutex
	reminderMu sync.Mutex
}

var _ ports.ScanService = (*ScanService)(nil)

func NewScanService(lifecycle ports.PollLifecycle, votes ports.VoteRepository, notifier ports.NotificationDispatcher, cfg ScanConfig, opts ...Option) *ScanService {
	o := resolveOptions(opts)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &ScanService{
		lifecycle: lifecycle,
		votes:     votes,
		notifier:  notifier,
		cfg:       cfg,
		clock:     o.clock,
		logger:    o.logger.With("component", "scan"),
	}
}

// RunStatusScan activates pending polls whose start date and completes
// ongoing polls whose end date fell inside the trailing window.
func (s *ScanService) RunStatusScan(ctx context.Context) error {
	now := s.clock.Now()
	return s.RunStatusScanWindow(ctx, now.Add(-s.cfg.TrailingWindow), now)
}

// RunStatusScanWindow runs the status scan over an explicit window. It is
// used directly to catch up after the scheduler was down.
func (s *ScanService) RunStatusScanWindow(ctx context.Context, from, to time.Time) error {
	if !s.statusMu.TryLock() {
		return ErrScanInProgress
	}
	defer s.statusMu.Unlock()

	started := time.Now()
	activated, activateErr := s.forEachDue(ctx, domain.PollStatusPending, domain.DateFieldStart, from, to, s.lifecycle.Activate)
	completed, completeErr := s.forEachDue(ctx, domain.PollStatusOngoing, domain.DateFieldEnd, from, to, s.lifecycle.Complete)

	s.logger.Info("status scan finished",
		"from", from, "to", to,
		"activated", activated, "completed", completed,
		"duration", time.Since(started),
	)
	return errors.Join(activateErr, completeErr)
}

// forEachDue applies fn to every due poll. Failures on single polls are
// logged and do not stop the others; only a failed listing is returned.
func (s *ScanService) forEachDue(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time, fn func(context.Context, int64) (bool, error)) (int, error) {
	polls, err := s.lifecycle.ListDue(ctx, status, field, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s polls by %s: %w", status, field, err)
	}

	var (
		mu      sync.Mutex
		changed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, poll := range polls {
		g.Go(func() error {
			ok, err := fn(gctx, poll.ID)
			if err != nil {
				s.logger.Error("failed to transition poll", "poll_id", poll.ID, "status", status, "error", err)
				return nil
			}
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return changed, nil
}

// RunReminderScan reminds invited users who have not voted yet on polls that
// are about to end.
func (s *ScanService) RunReminderScan(ctx context.Context) error {
	if !s.reminderMu.TryLock() {
		return ErrScanInProgress
	}
	defer s.reminderMu.Unlock()

	now := s.clock.Now()
	from := now.Add(s.cfg.ReminderLead)
	to := from.Add(s.cfg.ReminderWidth)

	polls, err := s.lifecycle.ListDue(ctx, domain.PollStatusOngoing, domain.DateFieldEnd, from, to)
	if err != nil {
		return fmt.Errorf("failed to list polls ending soon: %w", err)
	}

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, poll := range polls {
		if poll.IsPublic || len(poll.InvitedUserIDs) == 0 {
			continue
		}
		g.Go(func() error {
			sent, err := s.remind(gctx, poll)
			if err != nil {
				s.logger.Error("failed to send reminders", "poll_id", poll.ID, "error", err)
				return nil
			}
			mu.Lock()
			total += sent
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("reminder scan finished", "from", from, "to", to, "polls", len(polls), "reminders", total)
	return nil
}

func (s *ScanService) remind(ctx context.Context, poll *domain.Poll) (int, error) {
	voters, err := s.votes.VoterIDs(ctx, poll.ID)
	if err != nil {
		return 0, err
	}

	pending := addedIDs(voters, poll.InvitedUserIDs)
	for _, userID := range pending {
		s.notifier.Dispatch(ctx, domain.VoteReminder(poll.ID, userID))
	}
	return len(pending), nil
}
