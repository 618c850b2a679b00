package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string) ([]Event, error)
}

// Publisher captures structured audit events synchronously. Tests and the
// in-memory wiring use it directly; production wiring feeds the worker via
// ChannelPublisher instead.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	stamp(&event)
	return p.store.Append(ctx, event)
}

// ChannelPublisher hands events to the background worker. Emit blocks only
// until the context is done, so a wedged pipeline cannot stall request
// handling indefinitely.
type ChannelPublisher struct {
	inbox chan<- Event
}

func NewChannelPublisher(inbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	stamp(&event)
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}
