package ports

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id int64) (*domain.Group, error)
	// MemberIDs returns the distinct members of all the given groups.
	MemberIDs(ctx context.Context, groupIDs []int64) ([]int64, error)
}

type CreateGroupInput struct {
	OwnerID   int64
	Name      string
	MemberIDs []int64
}

type GroupService interface {
	Create(ctx context.Context, input CreateGroupInput) (*domain.Group, error)
	GetGroup(ctx context.Context, id int64) (*domain.Group, error)
}
