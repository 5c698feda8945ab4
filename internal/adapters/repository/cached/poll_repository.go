// Package cached wraps the entity repositories with the cache-aside read
// path. Reads go through cache.GetOrLoad; writes go straight to the wrapped
// repository and then clear the namespaces they make stale.
package cached

import (
	"context"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/cache"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const (
	NamespacePoll  = "poll"
	NamespaceVote  = "vote"
	NamespaceGroup = "group"
)

type pollRepository struct {
	next  ports.PollRepository
	cache *cache.Store
}

func NewPollRepository(next ports.PollRepository, store *cache.Store) ports.PollRepository {
	return &pollRepository{
		next:  next,
		cache: store,
	}
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	if err := r.next.Create(ctx, poll); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespacePoll)
}

func (r *pollRepository) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	shape := map[string]any{"op": "get", "id": id}
	return cache.GetOrLoad(ctx, r.cache, NamespacePoll, shape, func(ctx context.Context) (*domain.Poll, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *pollRepository) List(ctx context.Context, filter ports.PollFilter) ([]*domain.Poll, error) {
	shape := map[string]any{"op": "list", "filter": filter}
	return cache.GetOrLoad(ctx, r.cache, NamespacePoll, shape, func(ctx context.Context) ([]*domain.Poll, error) {
		return r.next.List(ctx, filter)
	})
}

// ListByStatusWindow is time dependent and only used by scans, so it bypasses
// the cache.
func (r *pollRepository) ListByStatusWindow(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error) {
	return r.next.ListByStatusWindow(ctx, status, field, from, to)
}

func (r *pollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	if err := r.next.Update(ctx, poll); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespacePoll)
}

func (r *pollRepository) Transition(ctx context.Context, t domain.StatusTransition) (bool, error) {
	changed, err := r.next.Transition(ctx, t)
	if err != nil || !changed {
		return changed, err
	}
	return true, r.cache.Invalidate(ctx, NamespacePoll)
}

func (r *pollRepository) SetInvitedUsers(ctx context.Context, pollID int64, userIDs []int64) error {
	if err := r.next.SetInvitedUsers(ctx, pollID, userIDs); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespacePoll)
}

func (r *pollRepository) MarkWinners(ctx context.Context, pollID int64, optionIDs []int64) error {
	if err := r.next.MarkWinners(ctx, pollID, optionIDs); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespacePoll)
}

// Delete clears the vote namespace too, since the poll's votes go with it.
func (r *pollRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, NamespacePoll); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespaceVote)
}
