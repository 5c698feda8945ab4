// Package notification delivers domain events to the mail worker. Dispatch
// is asynchronous and at-most-once: events are queued in memory and dropped
// when the queue is full or the publisher fails.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const (
	DefaultQueueSize = 256
	publishTimeout   = 10 * time.Second
)

type AsyncDispatcher struct {
	publisher ports.NotificationPublisher
	logger    *slog.Logger
	queue     chan domain.Notification

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ ports.NotificationDispatcher = (*AsyncDispatcher)(nil)

// NewAsyncDispatcher starts the drain goroutine. Close must be called to
// flush the queue.
func NewAsyncDispatcher(publisher ports.NotificationPublisher, queueSize int, logger *slog.Logger) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &AsyncDispatcher{
		publisher: publisher,
		logger:    logger.With("component", "notification"),
		queue:     make(chan domain.Notification, queueSize),
		done:      make(chan struct{}),
	}
	go d.drain()
	return d
}

// Dispatch never blocks. The caller's context is not used for delivery, so
// a finished request does not cancel its notifications.
func (d *AsyncDispatcher) Dispatch(_ context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "type", n.Type, "poll_id", n.PollID)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification dropped, queue full", "type", n.Type, "poll_id", n.PollID)
	}
}

// Close stops accepting events and waits until the queued ones are published
// or ctx expires.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) drain() {
	defer close(d.done)
	for n := range d.queue {
		d.publish(n)
	}
}

func (d *AsyncDispatcher) publish(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, n); err != nil {
		d.logger.Error("failed to publish notification", "id", n.ID, "type", n.Type, "poll_id", n.PollID, "error", err)
		return
	}
	d.logger.Debug("notification published", "id", n.ID, "type", n.Type, "poll_id", n.PollID)
}
