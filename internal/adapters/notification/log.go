package notification

import (
	"context"
	"log/slog"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

// LogPublisher only logs notifications. It is used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.logger.InfoContext(ctx, "notification",
		"id", n.ID,
		"type", n.Type,
		"poll_id", n.PollID,
		"user_id", n.UserID,
		"invited_user_ids", n.InvitedUserIDs,
	)
	return nil
}
