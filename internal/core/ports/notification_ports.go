package ports

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

// NotificationDispatcher hands notifications to the outbound channel. It never
// blocks the caller and never reports delivery failures back.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n domain.Notification)
}

// NotificationPublisher writes one notification to a broker.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}
