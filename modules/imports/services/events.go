package services

import (
	"context"
	"encoding/json"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
)

// EventSink records lifecycle events. Emit runs on the caller's transaction.
type EventSink interface {
	Emit(ctx context.Context, evt importjob.LifecycleEvent) error
}

type outboxSink struct {
	publisher outbox.Publisher
}

func NewOutboxSink(publisher outbox.Publisher) EventSink {
	return &outboxSink{publisher: publisher}
}

func (s *outboxSink) Emit(ctx context.Context, evt importjob.LifecycleEvent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = s.publisher.Enqueue(ctx, tx, outbox.Message{
		Topic:       importjob.TopicFor(evt.Status),
		AggregateID: evt.ImportID,
		Payload:     payload,
	})
	return err
}

type nopSink struct{}

func (nopSink) Emit(context.Context, importjob.LifecycleEvent) error { return nil }
