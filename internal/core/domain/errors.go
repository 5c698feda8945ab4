package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of them, so
// callers can match either the kind or the specific error with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrIntegrity     = errors.New("integrity violation")
	ErrForbidden     = errors.New("forbidden")
)

var (
	ErrPollNotFound         = fmt.Errorf("poll %w", ErrNotFound)
	ErrAnswerOptionNotFound = fmt.Errorf("answer option %w", ErrNotFound)
	ErrVoteNotFound         = fmt.Errorf("vote %w", ErrNotFound)
	ErrGroupNotFound        = fmt.Errorf("group %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)

	ErrPollNotOngoing      = fmt.Errorf("%w: poll is not ongoing", ErrStateConflict)
	ErrPollNotEditable     = fmt.Errorf("%w: poll can only be edited while draft or pending", ErrStateConflict)
	ErrPollNotDraft        = fmt.Errorf("%w: poll is not a draft", ErrStateConflict)
	ErrPollNotPending      = fmt.Errorf("%w: poll is not pending", ErrStateConflict)
	ErrPollDeleteOngoing   = fmt.Errorf("%w: an ongoing poll must be ended before it is deleted", ErrStateConflict)
	ErrPollCompleted       = fmt.Errorf("%w: poll is already completed", ErrStateConflict)
	ErrNotificationRefused = fmt.Errorf("%w: poll state does not allow this notification", ErrStateConflict)
	ErrTransitionLost      = fmt.Errorf("%w: poll status changed concurrently", ErrStateConflict)

	ErrGroupNameTaken = fmt.Errorf("%w: group name already exists", ErrIntegrity)
	ErrDuplicateEntry = fmt.Errorf("%w: duplicate entry", ErrIntegrity)

	ErrNotPollAuthor = fmt.Errorf("%w: only the poll author may do this", ErrForbidden)
)

// NewValidationError builds a validation error carrying a human readable reason.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
