package services

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// GetResults aggregates the current votes of a poll. Choice polls report per
// option counts and the winning set; input polls report the free text answers.
func (s *PollService) GetResults(ctx context.Context, pollID int64) (*domain.PollResult, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	votes, err := s.votes.List(ctx, ports.VoteFilter{PollID: poll.ID})
	if err != nil {
		return nil, err
	}

	result := &domain.PollResult{
		PollID:     poll.ID,
		AnswerType: poll.AnswerType,
		Status:     poll.Status,
		TotalVotes: int64(len(votes)),
	}

	if !poll.AnswerType.HasOptions() {
		for _, vote := range votes {
			if vote.Input != nil {
				result.Answers = append(result.Answers, *vote.Input)
			}
		}
		return result, nil
	}

	result.Options, _ = domain.OptionStats(poll.AnswerOptions)
	result.Winners = domain.WinningOptions(poll.AnswerOptions)
	return result, nil
}
