package ports

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

type VoteFilter struct {
	PollID        int64 `json:"poll_id,omitempty"`
	ParticipantID int64 `json:"participant_id,omitempty"`
	Limit         int   `json:"limit,omitempty"`
	Offset        int   `json:"offset,omitempty"`
}

type VoteRepository interface {
	// Upsert inserts the vote or replaces the participant's existing vote on
	// the same poll in a single atomic statement. The statement itself
	// requires the poll to be ongoing and fails with ErrPollNotOngoing.
	Upsert(ctx context.Context, vote *domain.Vote) (*domain.Vote, error)
	GetByParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error)
	List(ctx context.Context, filter VoteFilter) ([]*domain.Vote, error)
	VoterIDs(ctx context.Context, pollID int64) ([]int64, error)
}

type VoteInput struct {
	PollID          int64
	ParticipantID   int64
	Input           *string
	AnswerOptionIDs []int64
}

type VoteService interface {
	UpsertVote(ctx context.Context, input VoteInput) (*domain.Vote, error)
	GetVoteForParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error)
	ListVotes(ctx context.Context, filter VoteFilter) ([]*domain.Vote, error)
	ListVoterIDs(ctx context.Context, pollID int64) ([]int64, error)
}
