package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type groupService struct {
	repo   ports.GroupRepository
	logger *slog.Logger
}

func NewGroupService(repo ports.GroupRepository, opts ...Option) ports.GroupService {
	o := resolveOptions(opts)
	return &groupService{
		repo:   repo,
		logger: o.logger,
	}
}

func (s *groupService) Create(ctx context.Context, input ports.CreateGroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("group name is required")
	}

	group := &domain.Group{
		Name:      name,
		OwnerID:   input.OwnerID,
		MemberIDs: normalizeIDs(input.MemberIDs),
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("group created", "group_id", group.ID, "members", len(group.MemberIDs))
	return group, nil
}

func (s *groupService) GetGroup(ctx context.Context, id int64) (*domain.Group, error) {
	return s.repo.GetByID(ctx, id)
}
