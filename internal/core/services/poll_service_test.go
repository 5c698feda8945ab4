package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const authorID = int64(100)

func choiceInput(answerType domain.AnswerType, contents ...string) ports.CreatePollInput {
	input := ports.CreatePollInput{
		AuthorID:   authorID,
		Title:      "Lunch",
		Question:   "Where do we eat?",
		AnswerType: answerType,
	}
	for _, c := range contents {
		input.AnswerOptions = append(input.AnswerOptions, ports.AnswerOptionInput{Content: c})
	}
	return input
}

func picture(name string) ports.UploadedFile {
	return ports.UploadedFile{Filename: name, ContentType: "image/png", Size: 3, Content: strings.NewReader("png")}
}

func editInputFrom(poll *domain.Poll) ports.EditPollInput {
	input := ports.EditPollInput{
		PollID:         poll.ID,
		ActorID:        poll.AuthorID,
		Title:          poll.Title,
		Question:       poll.Question,
		AnswerType:     poll.AnswerType,
		StartDate:      poll.StartDate,
		EndDate:        poll.EndDate,
		IsPublic:       poll.IsPublic,
		InvitedUserIDs: poll.InvitedUserIDs,
	}
	for _, opt := range poll.AnswerOptions {
		input.AnswerOptions = append(input.AnswerOptions, ports.AnswerOptionInput{
			ID:         opt.ID,
			Content:    opt.Content,
			PictureURL: opt.PictureURL,
		})
	}
	return input
}

func TestCreateInitialStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("No start date opens the poll now", func(t *testing.T) {
		h := newHarness()

		poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeCheckbox, "A", "B"))
		require.NoError(t, err)

		assert.Equal(t, domain.PollStatusOngoing, poll.Status)
		require.NotNil(t, poll.StartDate)
		assert.Equal(t, baseTime, *poll.StartDate)
		assert.NotEmpty(t, poll.Token)
		assert.Equal(t, []domain.NotificationType{domain.NotificationInvitationRequested}, h.notifier.types())
		assert.Empty(t, h.notifier.all()[0].InvitedUserIDs)
	})

	t.Run("Future start date is pending", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.StartDate = ptr(baseTime.Add(time.Hour))

		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, domain.PollStatusPending, poll.Status)
		assert.Empty(t, h.notifier.types())
	})

	t.Run("Past start date opens the poll now", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.StartDate = ptr(baseTime.Add(-time.Hour))

		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, domain.PollStatusOngoing, poll.Status)
		assert.Equal(t, baseTime, *poll.StartDate)
	})

	t.Run("Draft ignores dates", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.Draft = true

		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, domain.PollStatusDraft, poll.Status)
		assert.Nil(t, poll.StartDate)
		assert.Empty(t, h.notifier.types())
	})
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(*ports.CreatePollInput){
		"missing title":           func(in *ports.CreatePollInput) { in.Title = "  " },
		"unknown answer type":     func(in *ports.CreatePollInput) { in.AnswerType = "ranking" },
		"single option":           func(in *ports.CreatePollInput) { in.AnswerOptions = in.AnswerOptions[:1] },
		"empty option":            func(in *ports.CreatePollInput) { in.AnswerOptions[1].Content = "" },
		"end before start":        func(in *ports.CreatePollInput) { in.StartDate, in.EndDate = ptr(baseTime.Add(2*time.Hour)), ptr(baseTime.Add(time.Hour)) },
		"end already passed":      func(in *ports.CreatePollInput) { in.EndDate = ptr(baseTime.Add(-time.Minute)) },
		"unknown existing option": func(in *ports.CreatePollInput) { in.AnswerOptions[0].ID = 42 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			input := choiceInput(domain.AnswerTypeCheckbox, "A", "B")
			mutate(&input)

			_, err := h.polls.Create(ctx, input)
			assert.Error(t, err)
			assert.Empty(t, h.store.polls)
		})
	}
}

func TestCreatePictures(t *testing.T) {
	ctx := context.Background()

	t.Run("Image index resolves to the uploaded picture", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "Cat", "Dog")
		input.Pictures = []ports.UploadedFile{picture("cat.png"), picture("dog.png"), picture("unused.png")}
		input.AnswerOptions[0].ImageIndex = ptr(0)
		input.AnswerOptions[1].ImageIndex = ptr(1)
		input.Background = ptr(picture("bg.png"))

		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		assert.Contains(t, poll.AnswerOptions[0].PictureURL, "cat.png")
		assert.Contains(t, poll.AnswerOptions[1].PictureURL, "dog.png")
		assert.Contains(t, poll.BackgroundURL, "bg.png")
		assert.ElementsMatch(t, poll.FileURLs(), h.files.live())
	})

	t.Run("Image index without upload is rejected and cleaned up", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "Cat", "Dog")
		input.Pictures = []ports.UploadedFile{picture("cat.png")}
		input.AnswerOptions[1].ImageIndex = ptr(3)

		_, err := h.polls.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, h.files.live())
	})

	t.Run("Pictures on an input poll are rejected after being removed", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeInput)
		input.Pictures = []ports.UploadedFile{picture("a.png"), picture("b.png")}

		_, err := h.polls.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, h.files.live())
		assert.Len(t, h.files.deleted, 2)
	})

	t.Run("Failed upload removes earlier uploads", func(t *testing.T) {
		h := newHarness()
		h.files.failOn = "broken.png"
		input := choiceInput(domain.AnswerTypeSingle, "Cat", "Dog")
		input.Pictures = []ports.UploadedFile{picture("cat.png"), picture("broken.png")}

		_, err := h.polls.Create(ctx, input)
		assert.Error(t, err)
		assert.Empty(t, h.files.live())
	})
}

func TestCreateInvitesGroupMembers(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	group := &domain.Group{Name: "team", MemberIDs: []int64{3, 4}}
	require.NoError(t, memGroupRepo{h.store}.Create(ctx, group))

	input := choiceInput(domain.AnswerTypeSingle, "A", "B")
	input.InvitedUserIDs = []int64{4, 2, 2}
	input.InvitedGroupIDs = []int64{group.ID}

	poll, err := h.polls.Create(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3, 4}, poll.InvitedUserIDs)
}

func TestStatusFollowsLegalEdgesOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	draftInput := choiceInput(domain.AnswerTypeSingle, "A", "B")
	draftInput.Draft = true
	draft, err := h.polls.Create(ctx, draftInput)
	require.NoError(t, err)

	_, err = h.polls.EndNow(ctx, draft.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrPollNotOngoing)
	_, err = h.polls.StartNow(ctx, draft.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrPollNotPending)
	changed, err := h.polls.Complete(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.PollStatusDraft, h.store.poll(draft.ID).Status)

	ongoing, err := h.polls.Post(ctx, draft.ID, authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusOngoing, ongoing.Status)

	_, err = h.polls.Post(ctx, draft.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrPollNotDraft)
	changed, err = h.polls.Activate(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	completed, err := h.polls.EndNow(ctx, draft.ID, authorID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusCompleted, completed.Status)

	_, err = h.polls.EndNow(ctx, draft.ID, authorID)
	assert.ErrorIs(t, err, domain.ErrPollNotOngoing)
	_, err = h.polls.Edit(ctx, editInputFrom(completed))
	assert.ErrorIs(t, err, domain.ErrPollNotEditable)
}

func TestPostDraftWithFutureStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	input := choiceInput(domain.AnswerTypeSingle, "A", "B")
	input.Draft = true
	input.StartDate = ptr(baseTime.Add(time.Hour))
	draft, err := h.polls.Create(ctx, input)
	require.NoError(t, err)

	pending, err := h.polls.Post(ctx, draft.ID, authorID)
	require.NoError(t, err)

	assert.Equal(t, domain.PollStatusPending, pending.Status)
	assert.Empty(t, h.notifier.types())
}

func TestStartNow(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	input := choiceInput(domain.AnswerTypeSingle, "A", "B")
	input.StartDate = ptr(baseTime.Add(time.Hour))
	pending, err := h.polls.Create(ctx, input)
	require.NoError(t, err)

	h.clock.Set(baseTime.Add(10 * time.Minute))
	poll, err := h.polls.StartNow(ctx, pending.ID, authorID)
	require.NoError(t, err)

	assert.Equal(t, domain.PollStatusOngoing, poll.Status)
	assert.Equal(t, baseTime.Add(10*time.Minute), *poll.StartDate)
	assert.Equal(t, []domain.NotificationType{domain.NotificationInvitationRequested}, h.notifier.types())
}

func TestEndNowComputesWinners(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeCheckbox, "A", "B", "C"))
	require.NoError(t, err)
	a, b, c := poll.AnswerOptions[0].ID, poll.AnswerOptions[1].ID, poll.AnswerOptions[2].ID

	ballots := [][]int64{{a, b}, {a, b, c}, {a, c}, {b, c}, {b, c}, {b}, {c}}
	for i, ids := range ballots {
		_, err := h.votes.UpsertVote(ctx, ports.VoteInput{PollID: poll.ID, ParticipantID: int64(i + 1), AnswerOptionIDs: ids})
		require.NoError(t, err)
	}
	h.notifier.reset()

	h.clock.Set(baseTime.Add(time.Hour))
	completed, err := h.polls.EndNow(ctx, poll.ID, authorID)
	require.NoError(t, err)

	assert.Equal(t, domain.PollStatusCompleted, completed.Status)
	assert.Equal(t, baseTime.Add(time.Hour), *completed.EndDate)

	winners := map[int64]bool{}
	for _, opt := range completed.AnswerOptions {
		winners[opt.ID] = opt.IsWinner
	}
	assert.Equal(t, map[int64]bool{a: false, b: true, c: true}, winners)
	assert.ElementsMatch(t, []domain.NotificationType{
		domain.NotificationPollCompletedParticipant,
		domain.NotificationPollCompletedAuthor,
	}, h.notifier.types())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Ongoing poll must be ended first", func(t *testing.T) {
		h := newHarness()
		poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeSingle, "A", "B"))
		require.NoError(t, err)

		assert.ErrorIs(t, h.polls.Delete(ctx, poll.ID, authorID), domain.ErrPollDeleteOngoing)
	})

	t.Run("Removes the poll and its files", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.Draft = true
		input.Background = ptr(picture("bg.png"))
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		require.NoError(t, h.polls.Delete(ctx, poll.ID, authorID))

		_, err = h.polls.GetPoll(ctx, poll.ID)
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
		assert.Empty(t, h.files.live())
	})

	t.Run("Only the author", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.Draft = true
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		assert.ErrorIs(t, h.polls.Delete(ctx, poll.ID, authorID+1), domain.ErrForbidden)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	newDraftWithPictures := func(t *testing.T, h *harness) *domain.Poll {
		input := choiceInput(domain.AnswerTypeCheckbox, "Cat", "Dog", "Fish")
		input.Draft = true
		input.Background = ptr(picture("bg.png"))
		input.Pictures = []ports.UploadedFile{picture("cat.png"), picture("dog.png"), picture("fish.png")}
		for i := range input.AnswerOptions {
			input.AnswerOptions[i].ImageIndex = ptr(i)
		}
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)
		require.Len(t, h.files.live(), 4)
		return poll
	}

	t.Run("Switching to input discards options and pictures", func(t *testing.T) {
		h := newHarness()
		poll := newDraftWithPictures(t, h)

		input := editInputFrom(poll)
		input.AnswerType = domain.AnswerTypeInput

		edited, err := h.polls.Edit(ctx, input)
		require.NoError(t, err)

		assert.Empty(t, edited.AnswerOptions)
		assert.Equal(t, []string{poll.BackgroundURL}, h.files.live())
	})

	t.Run("Removed option loses its picture", func(t *testing.T) {
		h := newHarness()
		poll := newDraftWithPictures(t, h)

		input := editInputFrom(poll)
		input.AnswerOptions = input.AnswerOptions[:2]

		edited, err := h.polls.Edit(ctx, input)
		require.NoError(t, err)

		assert.Len(t, edited.AnswerOptions, 2)
		assert.Equal(t, poll.AnswerOptions[0].ID, edited.AnswerOptions[0].ID)
		assert.NotContains(t, h.files.live(), poll.AnswerOptions[2].PictureURL)
		assert.Contains(t, h.files.deleted, poll.AnswerOptions[2].PictureURL)
	})

	t.Run("Replaced pictures are deleted", func(t *testing.T) {
		h := newHarness()
		poll := newDraftWithPictures(t, h)

		input := editInputFrom(poll)
		input.Background = ptr(picture("new-bg.png"))
		input.Pictures = []ports.UploadedFile{picture("new-cat.png")}
		input.AnswerOptions[0].PictureURL = ""
		input.AnswerOptions[0].ImageIndex = ptr(0)
		input.AnswerOptions = append(input.AnswerOptions, ports.AnswerOptionInput{Content: "Bird"})

		edited, err := h.polls.Edit(ctx, input)
		require.NoError(t, err)

		assert.Len(t, edited.AnswerOptions, 4)
		assert.Contains(t, edited.BackgroundURL, "new-bg.png")
		assert.Contains(t, edited.AnswerOptions[0].PictureURL, "new-cat.png")
		assert.ElementsMatch(t, edited.FileURLs(), h.files.live())
		assert.Contains(t, h.files.deleted, poll.BackgroundURL)
		assert.Contains(t, h.files.deleted, poll.AnswerOptions[0].PictureURL)
	})

	t.Run("Pictures on input edit are rejected and cleaned up", func(t *testing.T) {
		h := newHarness()
		poll := newDraftWithPictures(t, h)

		input := editInputFrom(poll)
		input.AnswerType = domain.AnswerTypeInput
		input.Pictures = []ports.UploadedFile{picture("late.png")}

		_, err := h.polls.Edit(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ElementsMatch(t, poll.FileURLs(), h.files.live())
		assert.Len(t, h.store.poll(poll.ID).AnswerOptions, 3)
	})

	t.Run("Foreign picture url is rejected", func(t *testing.T) {
		h := newHarness()
		poll := newDraftWithPictures(t, h)

		input := editInputFrom(poll)
		input.AnswerOptions[0].PictureURL = "http://elsewhere/x.png"

		_, err := h.polls.Edit(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Pending poll keeps a future start", func(t *testing.T) {
		h := newHarness()
		in := choiceInput(domain.AnswerTypeSingle, "A", "B")
		in.StartDate = ptr(baseTime.Add(time.Hour))
		poll, err := h.polls.Create(ctx, in)
		require.NoError(t, err)

		input := editInputFrom(poll)
		input.StartDate = nil

		_, err = h.polls.Edit(ctx, input)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Ongoing poll is not editable", func(t *testing.T) {
		h := newHarness()
		poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeSingle, "A", "B"))
		require.NoError(t, err)

		_, err = h.polls.Edit(ctx, editInputFrom(poll))
		assert.ErrorIs(t, err, domain.ErrPollNotEditable)
	})
}

func TestUpdateInvitedUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("Only new invitees are notified while ongoing", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.InvitedUserIDs = []int64{1, 2}
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)
		h.notifier.reset()

		updated, err := h.polls.UpdateInvitedUsers(ctx, poll.ID, authorID, []int64{2, 3, 4, 3})
		require.NoError(t, err)

		assert.Equal(t, []int64{2, 3, 4}, updated.InvitedUserIDs)
		events := h.notifier.all()
		require.Len(t, events, 1)
		assert.Equal(t, domain.NotificationInvitationRequested, events[0].Type)
		assert.Equal(t, []int64{3, 4}, events[0].InvitedUserIDs)
	})

	t.Run("Pending poll is not notified", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.StartDate = ptr(baseTime.Add(time.Hour))
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)

		_, err = h.polls.UpdateInvitedUsers(ctx, poll.ID, authorID, []int64{7})
		require.NoError(t, err)
		assert.Empty(t, h.notifier.types())
	})

	t.Run("Unchanged set sends nothing", func(t *testing.T) {
		h := newHarness()
		input := choiceInput(domain.AnswerTypeSingle, "A", "B")
		input.InvitedUserIDs = []int64{1}
		poll, err := h.polls.Create(ctx, input)
		require.NoError(t, err)
		h.notifier.reset()

		_, err = h.polls.UpdateInvitedUsers(ctx, poll.ID, authorID, []int64{1})
		require.NoError(t, err)
		assert.Empty(t, h.notifier.types())
	})
}

func TestSendNotification(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	input := choiceInput(domain.AnswerTypeSingle, "A", "B")
	input.StartDate = ptr(baseTime.Add(time.Hour))
	poll, err := h.polls.Create(ctx, input)
	require.NoError(t, err)

	assert.ErrorIs(t, h.polls.SendNotification(ctx, poll.ID, authorID, ports.NotificationKindInvitation), domain.ErrNotificationRefused)
	assert.ErrorIs(t, h.polls.SendNotification(ctx, poll.ID, authorID, ports.NotificationKindResults), domain.ErrNotificationRefused)

	_, err = h.polls.StartNow(ctx, poll.ID, authorID)
	require.NoError(t, err)
	h.notifier.reset()

	require.NoError(t, h.polls.SendNotification(ctx, poll.ID, authorID, ports.NotificationKindInvitation))
	assert.ErrorIs(t, h.polls.SendNotification(ctx, poll.ID, authorID, ports.NotificationKindResults), domain.ErrNotificationRefused)
	assert.ErrorIs(t, h.polls.SendNotification(ctx, poll.ID, authorID, "digest"), domain.ErrValidation)

	_, err = h.polls.EndNow(ctx, poll.ID, authorID)
	require.NoError(t, err)
	h.notifier.reset()

	require.NoError(t, h.polls.SendNotification(ctx, poll.ID, authorID, ports.NotificationKindResults))
	assert.Equal(t, []domain.NotificationType{
		domain.NotificationPollCompletedParticipant,
		domain.NotificationPollCompletedAuthor,
	}, h.notifier.types())
}

func TestGetResults(t *testing.T) {
	ctx := context.Background()

	t.Run("Choice poll", func(t *testing.T) {
		h := newHarness()
		poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeSingle, "A", "B"))
		require.NoError(t, err)
		a, b := poll.AnswerOptions[0].ID, poll.AnswerOptions[1].ID

		for i, id := range []int64{a, b, b} {
			_, err := h.votes.UpsertVote(ctx, ports.VoteInput{PollID: poll.ID, ParticipantID: int64(i + 1), AnswerOptionIDs: []int64{id}})
			require.NoError(t, err)
		}

		result, err := h.polls.GetResults(ctx, poll.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(3), result.TotalVotes)
		require.Len(t, result.Winners, 1)
		assert.Equal(t, b, result.Winners[0].ID)
		assert.InDelta(t, 66.67, result.Options[1].Percentage, 0.01)
		assert.Empty(t, result.Answers)
	})

	t.Run("Input poll", func(t *testing.T) {
		h := newHarness()
		poll, err := h.polls.Create(ctx, choiceInput(domain.AnswerTypeInput))
		require.NoError(t, err)

		for i, text := range []string{"pizza", " sushi "} {
			_, err := h.votes.UpsertVote(ctx, ports.VoteInput{PollID: poll.ID, ParticipantID: int64(i + 1), Input: ptr(text)})
			require.NoError(t, err)
		}

		result, err := h.polls.GetResults(ctx, poll.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(2), result.TotalVotes)
		assert.ElementsMatch(t, []string{"pizza", "sushi"}, result.Answers)
		assert.Empty(t, result.Winners)
	})
}

// activatingPolls starts the poll right after the first read, like a status
// scan landing between an edit's check and its write.
type activatingPolls struct {
	memPollRepo
	once sync.Once
}

func (r *activatingPolls) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	poll, err := r.memPollRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		_, _ = r.memPollRepo.Transition(ctx, domain.StatusTransition{
			PollID: id,
			From:   domain.PollStatusPending,
			To:     domain.PollStatusOngoing,
		})
	})
	return poll, nil
}

func TestEditLosesToConcurrentActivation(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	input := choiceInput(domain.AnswerTypeSingle, "Pizza", "Sushi")
	input.StartDate = ptr(baseTime.Add(time.Hour))
	input.EndDate = ptr(baseTime.Add(2 * time.Hour))
	poll, err := h.polls.Create(ctx, input)
	require.NoError(t, err)
	require.Equal(t, domain.PollStatusPending, poll.Status)

	polls := &activatingPolls{memPollRepo: memPollRepo{h.store}}
	svc := NewPollService(polls, memVoteRepo{h.store}, memGroupRepo{h.store}, h.files, h.notifier, WithClock(h.clock))

	edit := editInputFrom(poll)
	edit.Title = "Dinner"
	edit.AnswerOptions = []ports.AnswerOptionInput{{Content: "Tacos"}, {Content: "Ramen"}}
	edit.Background = ptr(picture("bg.png"))

	_, err = svc.Edit(ctx, edit)
	assert.ErrorIs(t, err, domain.ErrPollNotEditable)
	assert.Empty(t, h.files.live(), "the upload is cleaned up")

	stored, err := h.polls.GetPoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusOngoing, stored.Status)
	assert.Equal(t, "Lunch", stored.Title)
	require.Len(t, stored.AnswerOptions, 2)
	assert.Equal(t, poll.AnswerOptions[0].ID, stored.AnswerOptions[0].ID)
	assert.Equal(t, "Pizza", stored.AnswerOptions[0].Content)
}

func TestDeleteOngoingIsRefusedByRepository(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	input := choiceInput(domain.AnswerTypeSingle, "Pizza", "Sushi")
	input.StartDate = ptr(baseTime.Add(time.Hour))
	poll, err := h.polls.Create(ctx, input)
	require.NoError(t, err)

	polls := &activatingPolls{memPollRepo: memPollRepo{h.store}}
	svc := NewPollService(polls, memVoteRepo{h.store}, memGroupRepo{h.store}, h.files, h.notifier, WithClock(h.clock))

	assert.ErrorIs(t, svc.Delete(ctx, poll.ID, authorID), domain.ErrPollDeleteOngoing)
	_, err = h.polls.GetPoll(ctx, poll.ID)
	assert.NoError(t, err)
}
