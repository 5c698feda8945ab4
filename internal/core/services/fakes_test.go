package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// memStore is an in-memory stand-in for the Postgres repositories. Reads
// return copies, and vote counts are derived from the stored votes.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	polls    map[int64]*domain.Poll
	votes    map[[2]int64]*domain.Vote
	groups   map[int64]*domain.Group
	users    map[string]*domain.User
	tokens   []*domain.PasswordResetToken
	upserts  int
	failList error
}

func newMemStore() *memStore {
	return &memStore{
		polls:  make(map[int64]*domain.Poll),
		votes:  make(map[[2]int64]*domain.Vote),
		groups: make(map[int64]*domain.Group),
		users:  make(map[string]*domain.User),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func clonePoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.AnswerOptions = slices.Clone(p.AnswerOptions)
	c.InvitedUserIDs = slices.Clone(p.InvitedUserIDs)
	return &c
}

func (m *memStore) withCounts(p *domain.Poll) *domain.Poll {
	c := clonePoll(p)
	for i := range c.AnswerOptions {
		var count int64
		for _, v := range m.votes {
			if v.PollID == c.ID && slices.Contains(v.AnswerOptionIDs, c.AnswerOptions[i].ID) {
				count++
			}
		}
		c.AnswerOptions[i].VoteCount = count
	}
	return c
}

// poll returns the stored poll for assertions.
func (m *memStore) poll(id int64) *domain.Poll {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withCounts(m.polls[id])
}

func (m *memStore) voteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.votes)
}

type memPollRepo struct{ *memStore }

func (r memPollRepo) Create(ctx context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll.ID = r.id()
	for i := range poll.AnswerOptions {
		poll.AnswerOptions[i].ID = r.id()
		poll.AnswerOptions[i].PollID = poll.ID
	}
	r.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r memPollRepo) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return r.withCounts(p), nil
}

func (r memPollRepo) List(ctx context.Context, filter ports.PollFilter) ([]*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Poll
	for _, p := range r.polls {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		out = append(out, r.withCounts(p))
	}
	slices.SortFunc(out, func(a, b *domain.Poll) int { return int(a.ID - b.ID) })
	return out, nil
}

func (r memPollRepo) ListByStatusWindow(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	var out []*domain.Poll
	for _, p := range r.polls {
		if p.Status != status {
			continue
		}
		date := p.StartDate
		if field == domain.DateFieldEnd {
			date = p.EndDate
		}
		if date == nil || date.Before(from) || date.After(to) {
			continue
		}
		out = append(out, r.withCounts(p))
	}
	slices.SortFunc(out, func(a, b *domain.Poll) int { return int(a.ID - b.ID) })
	return out, nil
}

func (r memPollRepo) Update(ctx context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.polls[poll.ID]
	if !ok {
		return domain.ErrPollNotFound
	}
	switch {
	case !stored.Status.Editable():
		return domain.ErrPollNotEditable
	case stored.Status != poll.Status:
		return domain.ErrTransitionLost
	}
	for i := range poll.AnswerOptions {
		if poll.AnswerOptions[i].ID == 0 {
			poll.AnswerOptions[i].ID = r.id()
		}
		poll.AnswerOptions[i].PollID = poll.ID
	}
	r.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r memPollRepo) Transition(ctx context.Context, t domain.StatusTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[t.PollID]
	if !ok || p.Status != t.From {
		return false, nil
	}
	p.Status = t.To
	if t.StartDate != nil {
		p.StartDate = t.StartDate
	}
	if t.EndDate != nil {
		p.EndDate = t.EndDate
	}
	return true, nil
}

func (r memPollRepo) SetInvitedUsers(ctx context.Context, pollID int64, userIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	p.InvitedUserIDs = slices.Clone(userIDs)
	return nil
}

func (r memPollRepo) MarkWinners(ctx context.Context, pollID int64, optionIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.polls[pollID]
	for i := range p.AnswerOptions {
		p.AnswerOptions[i].IsWinner = slices.Contains(optionIDs, p.AnswerOptions[i].ID)
	}
	return nil
}

func (r memPollRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	if stored.Status == domain.PollStatusOngoing {
		return domain.ErrPollDeleteOngoing
	}
	delete(r.polls, id)
	for key := range r.votes {
		if key[0] == id {
			delete(r.votes, key)
		}
	}
	return nil
}

type memVoteRepo struct{ *memStore }

func (r memVoteRepo) Upsert(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll, ok := r.polls[vote.PollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	if poll.Status != domain.PollStatusOngoing {
		return nil, domain.ErrPollNotOngoing
	}
	r.upserts++
	key := [2]int64{vote.PollID, vote.ParticipantID}
	saved := *vote
	saved.AnswerOptionIDs = slices.Clone(vote.AnswerOptionIDs)
	if existing, ok := r.votes[key]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.ID = r.id()
	}
	r.votes[key] = &saved
	out := saved
	return &out, nil
}

func (r memVoteRepo) GetByParticipant(ctx context.Context, pollID, participantID int64) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.votes[[2]int64{pollID, participantID}]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	out := *v
	return &out, nil
}

func (r memVoteRepo) List(ctx context.Context, filter ports.VoteFilter) ([]*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Vote
	for _, v := range r.votes {
		if filter.PollID != 0 && v.PollID != filter.PollID {
			continue
		}
		c := *v
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.Vote) int { return int(a.ID - b.ID) })
	return out, nil
}

func (r memVoteRepo) VoterIDs(ctx context.Context, pollID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for key := range r.votes {
		if key[0] == pollID {
			ids = append(ids, key[1])
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type memGroupRepo struct{ *memStore }

func (r memGroupRepo) Create(ctx context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.Name == group.Name {
			return domain.ErrGroupNameTaken
		}
	}
	group.ID = r.id()
	c := *group
	r.groups[group.ID] = &c
	return nil
}

func (r memGroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	c := *g
	return &c, nil
}

func (r memGroupRepo) MemberIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, id := range groupIDs {
		if g, ok := r.groups[id]; ok {
			ids = append(ids, g.MemberIDs...)
		}
	}
	return ids, nil
}

type memUserRepo struct{ *memStore }

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUserRepo) StorePasswordResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = r.id()
	r.tokens = append(r.tokens, token)
	return nil
}

// fakeFiles records stored and deleted files.
type fakeFiles struct {
	mu      sync.Mutex
	n       int
	stored  map[string]bool
	deleted []string
	failOn  string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: make(map[string]bool)}
}

func (f *fakeFiles) ResolvePictureURL(ctx context.Context, file ports.UploadedFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file.Filename == f.failOn {
		return "", fmt.Errorf("upload of %s failed", file.Filename)
	}
	f.n++
	url := fmt.Sprintf("http://files/%d-%s", f.n, file.Filename)
	f.stored[url] = true
	return url, nil
}

func (f *fakeFiles) DeleteFile(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, url)
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeFiles) live() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for url := range f.stored {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (n *recordingNotifier) Dispatch(ctx context.Context, event domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []domain.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationType
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.events)
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// harness bundles a poll service with its fakes.
type harness struct {
	store    *memStore
	files    *fakeFiles
	notifier *recordingNotifier
	clock    *fixedClock
	polls    *PollService
	votes    ports.VoteService
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness() *harness {
	h := &harness{
		store:    newMemStore(),
		files:    newFakeFiles(),
		notifier: &recordingNotifier{},
		clock:    &fixedClock{now: baseTime},
	}
	h.polls = NewPollService(
		memPollRepo{h.store}, memVoteRepo{h.store}, memGroupRepo{h.store},
		h.files, h.notifier, WithClock(h.clock),
	)
	h.votes = NewVoteService(memPollRepo{h.store}, memVoteRepo{h.store})
	return h
}

func ptr[T any](v T) *T {
	return &v
}
