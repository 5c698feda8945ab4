package cached

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/pollcore/internal/adapters/cache/memory"
	"github.com/vncsmyrnk/pollcore/internal/cache"
	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// countingPolls serves a single poll and counts reads that reach it.
type countingPolls struct {
	poll  domain.Poll
	reads int
	lists int
	// changed is what Transition reports.
	changed bool
}

func (c *countingPolls) Create(ctx context.Context, poll *domain.Poll) error { return nil }

func (c *countingPolls) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	c.reads++
	if id != c.poll.ID {
		return nil, domain.ErrPollNotFound
	}
	p := c.poll
	return &p, nil
}

func (c *countingPolls) List(ctx context.Context, filter ports.PollFilter) ([]*domain.Poll, error) {
	c.lists++
	p := c.poll
	return []*domain.Poll{&p}, nil
}

func (c *countingPolls) ListByStatusWindow(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error) {
	c.lists++
	return nil, nil
}

func (c *countingPolls) Update(ctx context.Context, poll *domain.Poll) error {
	c.poll = *poll
	return nil
}

func (c *countingPolls) Transition(ctx context.Context, t domain.StatusTransition) (bool, error) {
	if c.changed {
		c.poll.Status = t.To
	}
	return c.changed, nil
}

func (c *countingPolls) SetInvitedUsers(ctx context.Context, pollID int64, userIDs []int64) error {
	return nil
}

func (c *countingPolls) MarkWinners(ctx context.Context, pollID int64, optionIDs []int64) error {
	return nil
}

func (c *countingPolls) Delete(ctx context.Context, id int64) error { return nil }

type countingVotes struct {
	reads   int
	upserts int
}

func (c *countingVotes) Upsert(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	c.upserts++
	return vote, nil
}

func (c *countingVotes) GetByParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error) {
	c.reads++
	return &domain.Vote{ID: 1, PollID: pollID, ParticipantID: participantID}, nil
}

func (c *countingVotes) List(ctx context.Context, filter ports.VoteFilter) ([]*domain.Vote, error) {
	c.reads++
	return nil, nil
}

func (c *countingVotes) VoterIDs(ctx context.Context, pollID int64) ([]int64, error) {
	c.reads++
	return []int64{1, 2}, nil
}

type countingGroups struct {
	memberReads int
}

func (c *countingGroups) Create(ctx context.Context, group *domain.Group) error {
	group.ID = 1
	return nil
}

func (c *countingGroups) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	return &domain.Group{ID: id}, nil
}

func (c *countingGroups) MemberIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	c.memberReads++
	return []int64{7}, nil
}

func newStore() (*cache.Store, *memory.Backend) {
	backend := memory.New()
	return cache.New(backend), backend
}

func TestPollRepositoryCachesReads(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	next := &countingPolls{poll: domain.Poll{ID: 1, Title: "Lunch", Status: domain.PollStatusOngoing, Token: "tok"}}
	repo := NewPollRepository(next, store)

	for range 3 {
		poll, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Lunch", poll.Title)
		assert.Equal(t, "tok", poll.Token)
	}
	assert.Equal(t, 1, next.reads)

	_, err := repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
	assert.Equal(t, 3, next.reads, "not found is never cached")

	_, err = repo.List(ctx, ports.PollFilter{AuthorID: 1, Limit: 10})
	require.NoError(t, err)
	_, err = repo.List(ctx, ports.PollFilter{Limit: 10, AuthorID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, next.lists)
}

func TestPollRepositoryWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore()
	next := &countingPolls{poll: domain.Poll{ID: 1, Status: domain.PollStatusOngoing}}
	repo := NewPollRepository(next, store)

	_, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)

	changed, err := repo.Transition(ctx, domain.StatusTransition{PollID: 1, From: domain.PollStatusPending, To: domain.PollStatusOngoing})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, backend.Len(), "a lost transition keeps the cache")

	next.changed = true
	_, err = repo.Transition(ctx, domain.StatusTransition{PollID: 1, From: domain.PollStatusOngoing, To: domain.PollStatusCompleted})
	require.NoError(t, err)
	assert.Zero(t, backend.Len())

	poll, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusCompleted, poll.Status)
	assert.Equal(t, 2, next.reads)

	require.NoError(t, repo.MarkWinners(ctx, 1, []int64{1}))
	assert.Zero(t, backend.Len())
}

func TestPollRepositoryBypassesCacheForScans(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore()
	next := &countingPolls{}
	repo := NewPollRepository(next, store)

	for range 2 {
		_, err := repo.ListByStatusWindow(ctx, domain.PollStatusOngoing, domain.DateFieldEnd, time.Now(), time.Now())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.lists)
	assert.Zero(t, backend.Len())
}

func TestVoteUpsertInvalidatesPollsAndVotes(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore()
	polls := &countingPolls{poll: domain.Poll{ID: 1}}
	votes := &countingVotes{}
	pollRepo := NewPollRepository(polls, store)
	voteRepo := NewVoteRepository(votes, store)

	_, err := pollRepo.GetByID(ctx, 1)
	require.NoError(t, err)
	_, err = voteRepo.VoterIDs(ctx, 1)
	require.NoError(t, err)
	_, err = voteRepo.VoterIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, votes.reads)
	assert.Equal(t, 2, backend.Len())

	_, err = voteRepo.Upsert(ctx, &domain.Vote{PollID: 1, ParticipantID: 2})
	require.NoError(t, err)
	assert.Zero(t, backend.Len())

	_, err = voteRepo.VoterIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, votes.reads)
}

func TestPollDeleteInvalidatesVotes(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore()
	pollRepo := NewPollRepository(&countingPolls{poll: domain.Poll{ID: 1}}, store)
	voteRepo := NewVoteRepository(&countingVotes{}, store)

	_, err := voteRepo.GetByParticipant(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 1, backend.Len())

	require.NoError(t, pollRepo.Delete(ctx, 1))
	assert.Zero(t, backend.Len())
}

func TestGroupMembersIgnoreIDOrder(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore()
	next := &countingGroups{}
	repo := NewGroupRepository(next, store)

	_, err := repo.MemberIDs(ctx, []int64{3, 1, 2})
	require.NoError(t, err)
	members, err := repo.MemberIDs(ctx, []int64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, members)
	assert.Equal(t, 1, next.memberReads)

	require.NoError(t, repo.Create(ctx, &domain.Group{Name: "team"}))
	assert.Zero(t, backend.Len())
}
