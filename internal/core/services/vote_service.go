package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type voteService struct {
	pollRepo ports.PollRepository
	voteRepo ports.VoteRepository
	logger   *slog.Logger
}

func NewVoteService(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, opts ...Option) ports.VoteService {
	o := resolveOptions(opts)
	return &voteService{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		logger:   o.logger,
	}
}

// UpsertVote records the participant's answer, replacing any earlier answer
// to the same poll. The write is a single atomic upsert.
func (s *voteService) UpsertVote(ctx context.Context, input ports.VoteInput) (*domain.Vote, error) {
	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusOngoing {
		return nil, domain.ErrPollNotOngoing
	}

	vote := &domain.Vote{
		PollID:        poll.ID,
		ParticipantID: input.ParticipantID,
	}

	if poll.AnswerType == domain.AnswerTypeInput {
		if len(input.AnswerOptionIDs) > 0 {
			return nil, domain.NewValidationError("input polls do not take answer options")
		}
		if input.Input == nil || strings.TrimSpace(*input.Input) == "" {
			return nil, domain.NewValidationError("an answer is required")
		}
		text := strings.TrimSpace(*input.Input)
		vote.Input = &text
	} else {
		if input.Input != nil && strings.TrimSpace(*input.Input) != "" {
			return nil, domain.NewValidationError("%s polls do not take free text answers", poll.AnswerType)
		}

		optionIDs := normalizeIDs(input.AnswerOptionIDs)
		if len(optionIDs) == 0 {
			return nil, domain.NewValidationError("at least one answer option is required")
		}
		if poll.AnswerType == domain.AnswerTypeSingle && len(optionIDs) != 1 {
			return nil, domain.NewValidationError("single choice polls take exactly one answer option")
		}
		for _, id := range optionIDs {
			if _, ok := poll.Option(id); !ok {
				return nil, domain.ErrAnswerOptionNotFound
			}
		}
		vote.AnswerOptionIDs = optionIDs
	}

	saved, err := s.voteRepo.Upsert(ctx, vote)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("vote recorded", "poll_id", saved.PollID, "participant_id", saved.ParticipantID)
	return saved, nil
}

func (s *voteService) GetVoteForParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error) {
	return s.voteRepo.GetByParticipant(ctx, pollID, participantID)
}

func (s *voteService) ListVotes(ctx context.Context, filter ports.VoteFilter) ([]*domain.Vote, error) {
	return s.voteRepo.List(ctx, filter)
}

func (s *voteService) ListVoterIDs(ctx context.Context, pollID int64) ([]int64, error) {
	return s.voteRepo.VoterIDs(ctx, pollID)
}
