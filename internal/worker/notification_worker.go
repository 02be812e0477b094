package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

const defaultQueueSize = 256

// Handler processes a single event.
type Handler interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves ticket events off the request path and hands
// them to a Handler on a background goroutine.
type NotificationWorker struct {
	handler Handler
	logger  *zap.Logger
	queue   chan events.Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// StartNotificationWorker subscribes to every ticket event and starts the
// consuming goroutine. Call Stop to drain the queue.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, handler Handler, logger *zap.Logger, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &NotificationWorker{
		handler: handler,
		logger:  logger,
		queue:   make(chan events.Event, queueSize),
		done:    make(chan struct{}),
	}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
	go w.run(context.WithoutCancel(ctx))
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	for event := range w.queue {
		if err := w.handler.Handle(ctx, event); err != nil {
			w.logger.Error("notification failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

// Stop stops accepting events and waits until queued ones are handled or
// ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
