package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

type PollFilter struct {
	AuthorID int64             `json:"author_id,omitempty"`
	Status   domain.PollStatus `json:"status,omitempty"`
	IsPublic *bool             `json:"is_public,omitempty"`
	Query    string            `json:"query,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}

type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id int64) (*domain.Poll, error)
	List(ctx context.Context, filter PollFilter) ([]*domain.Poll, error)
	ListByStatusWindow(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error)
	// Update rewrites the poll row, its answer options and its invited users.
	// It only applies while the stored status still equals poll.Status and is
	// draft or pending: ErrPollNotEditable when the poll moved past pending,
	// ErrTransitionLost when it moved between editable states.
	Update(ctx context.Context, poll *domain.Poll) error
	// Transition applies the status change only if the poll still has the
	// expected predecessor status. It reports whether the row changed.
	Transition(ctx context.Context, t domain.StatusTransition) (bool, error)
	SetInvitedUsers(ctx context.Context, pollID int64, userIDs []int64) error
	MarkWinners(ctx context.Context, pollID int64, optionIDs []int64) error
	// Delete refuses ongoing polls with ErrPollDeleteOngoing.
	Delete(ctx context.Context, id int64) error
}

type AnswerOptionInput struct {
	// ID is zero for an option that does not exist yet.
	ID      int64
	Content string
	// PictureURL keeps a picture stored by an earlier submission.
	PictureURL string
	// ImageIndex points into the submission's uploaded pictures.
	ImageIndex *int
}

type CreatePollInput struct {
	AuthorID        int64
	Title           string
	Question        string
	AnswerType      domain.AnswerType
	StartDate       *time.Time
	EndDate         *time.Time
	IsPublic        bool
	Draft           bool
	AnswerOptions   []AnswerOptionInput
	InvitedUserIDs  []int64
	InvitedGroupIDs []int64
	Background      *UploadedFile
	Pictures        []UploadedFile
}

type EditPollInput struct {
	PollID           int64
	ActorID          int64
	Title            string
	Question         string
	AnswerType       domain.AnswerType
	StartDate        *time.Time
	EndDate          *time.Time
	IsPublic         bool
	AnswerOptions    []AnswerOptionInput
	InvitedUserIDs   []int64
	InvitedGroupIDs  []int64
	Background       *UploadedFile
	RemoveBackground bool
	Pictures         []UploadedFile
}

type NotificationKind string

const (
	NotificationKindInvitation NotificationKind = "invitation"
	NotificationKindResults    NotificationKind = "results"
)

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	Edit(ctx context.Context, input EditPollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id int64) (*domain.Poll, error)
	ListPolls(ctx context.Context, filter PollFilter) ([]*domain.Poll, error)
	Post(ctx context.Context, pollID, actorID int64) (*domain.Poll, error)
	StartNow(ctx context.Context, pollID, actorID int64) (*domain.Poll, error)
	EndNow(ctx context.Context, pollID, actorID int64) (*domain.Poll, error)
	Delete(ctx context.Context, pollID, actorID int64) error
	UpdateInvitedUsers(ctx context.Context, pollID, actorID int64, userIDs []int64) (*domain.Poll, error)
	SendNotification(ctx context.Context, pollID, actorID int64, kind NotificationKind) error
	GetResults(ctx context.Context, pollID int64) (*domain.PollResult, error)
}

// PollLifecycle is the part of the poll service driven by the scheduler.
type PollLifecycle interface {
	ListDue(ctx context.Context, status domain.PollStatus, field domain.DateField, from, to time.Time) ([]*domain.Poll, error)
	Activate(ctx context.Context, pollID int64) (bool, error)
	Complete(ctx context.Context, pollID int64) (bool, error)
}
