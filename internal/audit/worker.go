package audit

import (
	"context"
	"log/slog"
)

// Sink receives events after they are persisted. The Kafka publisher
// implements it; nil means store-only.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from a channel, persists them, and fans out to
// the optional sink. The store append is the durability point; sink failures
// are logged, not retried here.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
			if w.sink == nil {
				continue
			}
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"error", err,
					"event_id", event.ID,
					"action", event.Action,
				)
			}
		}
	}
}
