package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationInvitationRequested      NotificationType = "invitation-requested"
	NotificationPollCompletedParticipant NotificationType = "poll-completed-participant"
	NotificationPollCompletedAuthor      NotificationType = "poll-completed-author"
	NotificationVoteReminder             NotificationType = "vote-reminder"
	NotificationPasswordResetRequested   NotificationType = "password-reset-requested"
)

// Notification is an outbound domain event. It carries ids only; consumers
// load whatever current state they need.
type Notification struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	PollID         int64            `json:"poll_id,omitempty"`
	UserID         int64            `json:"user_id,omitempty"`
	InvitedUserIDs []int64          `json:"invited_user_ids,omitempty"`
	Token          string           `json:"token,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

func newNotification(t NotificationType) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// InvitationRequested asks the consumer to invite users to a poll. An empty
// invitedUserIDs means every current invitee.
func InvitationRequested(pollID int64, invitedUserIDs []int64) Notification {
	n := newNotification(NotificationInvitationRequested)
	n.PollID = pollID
	n.InvitedUserIDs = invitedUserIDs
	return n
}

func PollCompletedParticipant(pollID int64) Notification {
	n := newNotification(NotificationPollCompletedParticipant)
	n.PollID = pollID
	return n
}

func PollCompletedAuthor(pollID int64) Notification {
	n := newNotification(NotificationPollCompletedAuthor)
	n.PollID = pollID
	return n
}

func VoteReminder(pollID, userID int64) Notification {
	n := newNotification(NotificationVoteReminder)
	n.PollID = pollID
	n.UserID = userID
	return n
}

func PasswordResetRequested(userID int64, token string) Notification {
	n := newNotification(NotificationPasswordResetRequested)
	n.UserID = userID
	n.Token = token
	return n
}
