package domain

import (
	"time"
)

type AnswerType string

const (
	AnswerTypeInput    AnswerType = "input"
	AnswerTypeSingle   AnswerType = "single"
	AnswerTypeCheckbox AnswerType = "checkbox"
)

func (t AnswerType) Valid() bool {
	switch t {
	case AnswerTypeInput, AnswerTypeSingle, AnswerTypeCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether polls of this type carry answer options.
func (t AnswerType) HasOptions() bool {
	return t == AnswerTypeSingle || t == AnswerTypeCheckbox
}

type PollStatus string

const (
	PollStatusDraft     PollStatus = "draft"
	PollStatusPending   PollStatus = "pending"
	PollStatusOngoing   PollStatus = "ongoing"
	PollStatusCompleted PollStatus = "completed"
)

// pollTransitions lists every legal edge of the poll state machine.
var pollTransitions = map[PollStatus][]PollStatus{
	PollStatusDraft:   {PollStatusPending, PollStatusOngoing},
	PollStatusPending: {PollStatusOngoing},
	PollStatusOngoing: {PollStatusCompleted},
}

// CanTransition reports whether a poll may move from one status to another.
func CanTransition(from, to PollStatus) bool {
	for _, next := range pollTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether the poll content may still be changed.
func (s PollStatus) Editable() bool {
	return s == PollStatusDraft || s == PollStatusPending
}

type Poll struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Question       string         `json:"question"`
	AnswerType     AnswerType     `json:"answer_type"`
	Status         PollStatus     `json:"status"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	IsPublic       bool           `json:"is_public"`
	BackgroundURL  string         `json:"background_url,omitempty"`
	AuthorID       int64          `json:"author_id"`
	Token          string         `json:"token,omitempty"`
	AnswerOptions  []AnswerOption `json:"answer_options"`
	InvitedUserIDs []int64        `json:"invited_user_ids"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type AnswerOption struct {
	ID         int64  `json:"id"`
	PollID     int64  `json:"poll_id"`
	Content    string `json:"content"`
	PictureURL string `json:"picture_url,omitempty"`
	Position   int    `json:"position"`
	VoteCount  int64  `json:"vote_count"`
	IsWinner   bool   `json:"is_winner"`
}

// Option returns the answer option with the given id, if the poll has it.
func (p *Poll) Option(id int64) (AnswerOption, bool) {
	for _, opt := range p.AnswerOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return AnswerOption{}, false
}

// IsInvited reports whether the user may vote on the poll.
func (p *Poll) IsInvited(userID int64) bool {
	if p.IsPublic {
		return true
	}
	for _, id := range p.InvitedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FileURLs returns every stored file the poll references.
func (p *Poll) FileURLs() []string {
	var urls []string
	if p.BackgroundURL != "" {
		urls = append(urls, p.BackgroundURL)
	}
	for _, opt := range p.AnswerOptions {
		if opt.PictureURL != "" {
			urls = append(urls, opt.PictureURL)
		}
	}
	return urls
}

// StatusTransition is a compare-and-set request against a poll's status.
// Nil dates leave the stored value untouched.
type StatusTransition struct {
	PollID    int64
	From      PollStatus
	To        PollStatus
	StartDate *time.Time
	EndDate   *time.Time
}

type DateField string

const (
	DateFieldStart DateField = "start_date"
	DateFieldEnd   DateField = "end_date"
)
