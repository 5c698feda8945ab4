package cached

import (
	"context"
	"sort"

	"github.com/vncsmyrnk/pollcore/internal/cache"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type groupRepository struct {
	next  ports.GroupRepository
	cache *cache.Store
}

func NewGroupRepository(next ports.GroupRepository, store *cache.Store) ports.GroupRepository {
	return &groupRepository{
		next:  next,
		cache: store,
	}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	if err := r.next.Create(ctx, group); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, NamespaceGroup)
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	shape := map[string]any{"op": "get", "id": id}
	return cache.GetOrLoad(ctx, r.cache, NamespaceGroup, shape, func(ctx context.Context) (*domain.Group, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *groupRepository) MemberIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	// The member set does not depend on the order ids were given in.
	ids := append([]int64(nil), groupIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	shape := map[string]any{"op": "members", "group_ids": ids}
	return cache.GetOrLoad(ctx, r.cache, NamespaceGroup, shape, func(ctx context.Context) ([]int64, error) {
		return r.next.MemberIDs(ctx, ids)
	})
}
