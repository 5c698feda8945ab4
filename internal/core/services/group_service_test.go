package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

func TestGroupService(t *testing.T) {
	ctx := context.Background()
	service := NewGroupService(memGroupRepo{newMemStore()})

	group, err := service.Create(ctx, ports.CreateGroupInput{OwnerID: 1, Name: " team ", MemberIDs: []int64{3, 0, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "team", group.Name)
	assert.Equal(t, []int64{2, 3}, group.MemberIDs)

	fetched, err := service.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.MemberIDs, fetched.MemberIDs)

	_, err = service.Create(ctx, ports.CreateGroupInput{OwnerID: 2, Name: "team"})
	assert.ErrorIs(t, err, domain.ErrGroupNameTaken)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	_, err = service.Create(ctx, ports.CreateGroupInput{OwnerID: 2, Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.GetGroup(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}
