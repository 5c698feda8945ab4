package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// PollService owns the poll state machine. It implements both
// ports.PollService and ports.PollLifecycle.
type PollService struct {
	polls    ports.PollRepository
	votes    ports.VoteRepository
	groups   ports.GroupRepository
	files    ports.FileStorage
	notifier ports.NotificationDispatcher
	clock    ports.Clock
	logger   *slog.Logger
}

var (
	_ ports.PollService   = (*PollService)(nil)
	_ ports.PollLifecycle = (*PollService)(nil)
)

func NewPollService(
	polls ports.PollRepository,
	votes ports.VoteRepository,
	groups ports.GroupRepository,
	files ports.FileStorage,
	notifier ports.NotificationDispatcher,
	opts ...Option,
) *PollService {
	o := resolveOptions(opts)
	return &PollService{
		polls:    polls,
		votes:    votes,
		groups:   groups,
		files:    files,
		notifier: notifier,
		clock:    o.clock,
		logger:   o.logger,
	}
}

func (s *PollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	now := s.clock.Now()

	poll := &domain.Poll{
		AuthorID:   input.AuthorID,
		Title:      strings.TrimSpace(input.Title),
		Question:   strings.TrimSpace(input.Question),
		AnswerType: input.AnswerType,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		IsPublic:   input.IsPublic,
		Token:      uuid.NewString(),
	}
	if err := validatePollFields(poll); err != nil {
		return nil, err
	}

	if input.Draft {
		poll.Status = domain.PollStatusDraft
	} else {
		status, start, err := scheduleStatus(poll.StartDate, poll.EndDate, now)
		if err != nil {
			return nil, err
		}
		poll.Status, poll.StartDate = status, start
	}

	invited, err := s.resolveInvited(ctx, input.InvitedUserIDs, input.InvitedGroupIDs)
	if err != nil {
		return nil, err
	}
	poll.InvitedUserIDs = invited

	uploads, err := s.storeUploads(ctx, input.Background, input.Pictures)
	if err != nil {
		return nil, err
	}
	poll.BackgroundURL = uploads.background

	options, err := buildOptions(poll.AnswerType, input.AnswerOptions, uploads, nil)
	if err != nil {
		s.deleteFiles(ctx, uploads.all())
		return nil, err
	}
	poll.AnswerOptions = options

	if err := s.polls.Create(ctx, poll); err != nil {
		s.deleteFiles(ctx, uploads.all())
		return nil, err
	}
	s.deleteFiles(ctx, unreferenced(uploads.all(), poll.FileURLs()))

	s.logger.Info("poll created", "poll_id", poll.ID, "status", poll.Status, "author_id", poll.AuthorID)

	if poll.Status == domain.PollStatusOngoing {
		s.notifier.Dispatch(ctx, domain.InvitationRequested(poll.ID, nil))
	}
	return poll, nil
}

func (s *PollService) GetPoll(ctx context.Context, id int64) (*domain.Poll, error) {
	return s.polls.GetByID(ctx, id)
}

func (s *PollService) ListPolls(ctx context.Context, filter ports.PollFilter) ([]*domain.Poll, error) {
	return s.polls.List(ctx, filter)
}

// Post publishes a draft, applying the same date rule as creation.
func (s *PollService) Post(ctx context.Context, pollID, actorID int64) (*domain.Poll, error) {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusDraft {
		return nil, domain.ErrPollNotDraft
	}

	status, start, err := scheduleStatus(poll.StartDate, poll.EndDate, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.transition(ctx, domain.StatusTransition{
		PollID:    poll.ID,
		From:      domain.PollStatusDraft,
		To:        status,
		StartDate: start,
	})
	if err != nil {
		return nil, err
	}

	if status == domain.PollStatusOngoing {
		s.notifier.Dispatch(ctx, domain.InvitationRequested(poll.ID, nil))
	}
	return s.polls.GetByID(ctx, poll.ID)
}

func (s *PollService) StartNow(ctx context.Context, pollID, actorID int64) (*domain.Poll, error) {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusPending {
		return nil, domain.ErrPollNotPending
	}

	now := s.clock.Now()
	if poll.EndDate != nil && !poll.EndDate.After(now) {
		return nil, domain.NewValidationError("end date has already passed")
	}

	err = s.transition(ctx, domain.StatusTransition{
		PollID:    poll.ID,
		From:      domain.PollStatusPending,
		To:        domain.PollStatusOngoing,
		StartDate: &now,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, domain.InvitationRequested(poll.ID, nil))
	return s.polls.GetByID(ctx, poll.ID)
}

func (s *PollService) EndNow(ctx context.Context, pollID, actorID int64) (*domain.Poll, error) {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusOngoing {
		return nil, domain.ErrPollNotOngoing
	}

	now := s.clock.Now()
	changed, err := s.complete(ctx, poll.ID, &now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domain.ErrTransitionLost
	}
	return s.polls.GetByID(ctx, poll.ID)
}

func (s *PollService) Delete(ctx context.Context, pollID, actorID int64) error {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return err
	}
	if poll.Status == domain.PollStatusOngoing {
		return domain.ErrPollDeleteOngoing
	}

	if err := s.polls.Delete(ctx, poll.ID); err != nil {
		return err
	}
	s.deleteFiles(ctx, poll.FileURLs())

	s.logger.Info("poll deleted", "poll_id", poll.ID)
	return nil
}

// UpdateInvitedUsers replaces the invited set. Only users that were not
// invited before are notified, and only while the poll is ongoing.
func (s *PollService) UpdateInvitedUsers(ctx context.Context, pollID, actorID int64, userIDs []int64) (*domain.Poll, error) {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return nil, err
	}
	if poll.Status == domain.PollStatusCompleted {
		return nil, domain.ErrPollCompleted
	}

	next := normalizeIDs(userIDs)
	added := addedIDs(poll.InvitedUserIDs, next)

	if err := s.polls.SetInvitedUsers(ctx, poll.ID, next); err != nil {
		return nil, err
	}

	if poll.Status == domain.PollStatusOngoing && len(added) > 0 {
		s.notifier.Dispatch(ctx, domain.InvitationRequested(poll.ID, added))
	}
	return s.polls.GetByID(ctx, poll.ID)
}

// SendNotification re-sends a poll-wide notification. Results go out as the
// same participant and author pair that completion emits.
func (s *PollService) SendNotification(ctx context.Context, pollID, actorID int64, kind ports.NotificationKind) error {
	poll, err := s.authorPoll(ctx, pollID, actorID)
	if err != nil {
		return err
	}

	switch kind {
	case ports.NotificationKindInvitation:
		if poll.Status != domain.PollStatusOngoing {
			return domain.ErrNotificationRefused
		}
		s.notifier.Dispatch(ctx, domain.InvitationRequested(poll.ID, nil))
	case ports.NotificationKindResults:
		if poll.Status != domain.PollStatusCompleted {
			return domain.ErrNotificationRefused
		}
		s.notifier.Dispatch(ctx, domain.PollCompletedParticipant(poll.ID))
		s.notifier.Dispatch(ctx, domain.PollCompletedAuthor(poll.ID))
	default:
		return domain.NewValidationError("unknown notification kind %q", kind)
	}
	return nil
}

func (s *PollService) ListDue(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error) {
	return s.polls.ListByStatusWindow(ctx, status, field, from, to)
}

// Activate moves a pending poll to ongoing, keeping its stored start date.
// It reports false when the poll was no longer pending.
func (s *PollService) Activate(ctx context.Context, pollID int64) (bool, error) {
	changed, err := s.polls.Transition(ctx, domain.StatusTransition{
		PollID: pollID,
		From:   domain.PollStatusPending,
		To:     domain.PollStatusOngoing,
	})
	if err != nil || !changed {
		return false, err
	}

	s.logger.Info("poll activated", "poll_id", pollID)
	s.notifier.Dispatch(ctx, domain.InvitationRequested(pollID, nil))
	return true, nil
}

// Complete moves an ongoing poll to completed, keeping its stored end date.
func (s *PollService) Complete(ctx context.Context, pollID int64) (bool, error) {
	return s.complete(ctx, pollID, nil)
}

func (s *PollService) complete(ctx context.Context, pollID int64, endDate *time.Time) (bool, error) {
	changed, err := s.polls.Transition(ctx, domain.StatusTransition{
		PollID:  pollID,
		From:    domain.PollStatusOngoing,
		To:      domain.PollStatusCompleted,
		EndDate: endDate,
	})
	if err != nil || !changed {
		return false, err
	}
	s.logger.Info("poll completed", "poll_id", pollID)

	markErr := s.markWinners(ctx, pollID)

	s.notifier.Dispatch(ctx, domain.PollCompletedParticipant(pollID))
	s.notifier.Dispatch(ctx, domain.PollCompletedAuthor(pollID))

	if markErr != nil {
		return true, fmt.Errorf("poll %d completed but winners were not stored: %w", pollID, markErr)
	}
	return true, nil
}

// markWinners recomputes the winning set from the current vote counts.
func (s *PollService) markWinners(ctx context.Context, pollID int64) error {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if !poll.AnswerType.HasOptions() {
		return nil
	}

	winners := domain.WinningOptions(poll.AnswerOptions)
	ids := make([]int64, 0, len(winners))
	for _, opt := range winners {
		ids = append(ids, opt.ID)
	}
	return s.polls.MarkWinners(ctx, pollID, ids)
}

func (s *PollService) transition(ctx context.Context, t domain.StatusTransition) error {
	if !domain.CanTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s to %s", domain.ErrStateConflict, t.From, t.To)
	}
	changed, err := s.polls.Transition(ctx, t)
	if err != nil {
		return err
	}
	if !changed {
		return domain.ErrTransitionLost
	}
	s.logger.Info("poll status changed", "poll_id", t.PollID, "from", t.From, "to", t.To)
	return nil
}

func (s *PollService) authorPoll(ctx context.Context, pollID, actorID int64) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.AuthorID != actorID {
		return nil, domain.ErrNotPollAuthor
	}
	return poll, nil
}

// resolveInvited merges explicit user ids with the members of the given groups.
func (s *PollService) resolveInvited(ctx context.Context, userIDs, groupIDs []int64) ([]int64, error) {
	ids := append([]int64(nil), userIDs...)
	if len(groupIDs) > 0 {
		members, err := s.groups.MemberIDs(ctx, normalizeIDs(groupIDs))
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
	}
	return normalizeIDs(ids), nil
}

func (s *PollService) deleteFiles(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.files.DeleteFile(ctx, url); err != nil {
			s.logger.Warn("failed to delete file", "url", url, "error", err)
		}
	}
}

// scheduleStatus applies the date rule shared by creation and posting. A
// missing or past start date means the poll opens now.
func scheduleStatus(start, end *time.Time, now time.Time) (domain.PollStatus, *time.Time, error) {
	if end != nil && !end.After(now) {
		return "", nil, domain.NewValidationError("end date must be in the future")
	}
	if start != nil && start.After(now) {
		return domain.PollStatusPending, start, nil
	}
	return domain.PollStatusOngoing, &now, nil
}

func validatePollFields(poll *domain.Poll) error {
	if poll.Title == "" {
		return domain.NewValidationError("title is required")
	}
	if poll.Question == "" {
		return domain.NewValidationError("question is required")
	}
	if !poll.AnswerType.Valid() {
		return domain.NewValidationError("unknown answer type %q", poll.AnswerType)
	}
	if poll.StartDate != nil && poll.EndDate != nil && !poll.EndDate.After(*poll.StartDate) {
		return domain.NewValidationError("end date must be after start date")
	}
	return nil
}

func unreferenced(urls, referenced []string) []string {
	keep := make(map[string]struct{}, len(referenced))
	for _, url := range referenced {
		keep[url] = struct{}{}
	}
	var out []string
	for _, url := range urls {
		if _, ok := keep[url]; !ok {
			out = append(out, url)
		}
	}
	return out
}
