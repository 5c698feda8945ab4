package cached

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/cache"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type voteRepository struct {
	next  ports.VoteRepository
	cache *cache.Store
}

func NewVoteRepository(next ports.VoteRepository, store *cache.Store) ports.VoteRepository {
	return &voteRepository{
		next:  next,
		cache: store,
	}
}

// Upsert invalidates the poll namespace as well: cached polls carry vote
// counts derived from the votes table.
func (r *voteRepository) Upsert(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	saved, err := r.next.Upsert(ctx, vote)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Invalidate(ctx, NamespaceVote); err != nil {
		return nil, err
	}
	if err := r.cache.Invalidate(ctx, NamespacePoll); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *voteRepository) GetByParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error) {
	shape := map[string]any{"op": "participant", "poll_id": pollID, "participant_id": participantID}
	return cache.GetOrLoad(ctx, r.cache, NamespaceVote, shape, func(ctx context.Context) (*domain.Vote, error) {
		return r.next.GetByParticipant(ctx, pollID, participantID)
	})
}

func (r *voteRepository) List(ctx context.Context, filter ports.VoteFilter) ([]*domain.Vote, error) {
	shape := map[string]any{"op": "list", "filter": filter}
	return cache.GetOrLoad(ctx, r.cache, NamespaceVote, shape, func(ctx context.Context) ([]*domain.Vote, error) {
		return r.next.List(ctx, filter)
	})
}

func (r *voteRepository) VoterIDs(ctx context.Context, pollID int64) ([]int64, error) {
	shape := map[string]any{"op": "voters", "poll_id": pollID}
	return cache.GetOrLoad(ctx, r.cache, NamespaceVote, shape, func(ctx context.Context) ([]int64, error) {
		return r.next.VoterIDs(ctx, pollID)
	})
}
