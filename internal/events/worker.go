package events

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned by Worker.Publish when the buffer has no room.
var ErrQueueFull = errors.New("event queue is full")

// Worker decouples callers from a slow sink: Publish enqueues, Run forwards
// queued events to the next publisher until its context ends.
type Worker struct {
	next   Publisher
	inbox  chan Event
	logger *slog.Logger
}

var _ Publisher = (*Worker)(nil)

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(next Publisher, buffer int, opts ...WorkerOption) *Worker {
	if buffer <= 0 {
		buffer = 1
	}
	w := &Worker{next: next, inbox: make(chan Event, buffer), logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish never blocks; it fails with ErrQueueFull instead.
func (w *Worker) Publish(_ context.Context, event Event) error {
	select {
	case w.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run forwards events until ctx is done, then drains what is already queued
// with a fresh context so shutdown does not drop accepted events.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.forward(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.forward(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, event Event) {
	if err := w.next.Publish(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to forward domain event",
			"type", string(event.Type),
			"organization_id", event.OrganizationID,
			"error", err,
		)
	}
}

// Close closes the next publisher. Call it after Run has returned.
func (w *Worker) Close() error {
	return w.next.Close()
}
