package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is the unit stored in an outbox table.
type Message struct {
	Topic       string
	EventID     uuid.UUID
	AggregateID uuid.UUID
	Payload     json.RawMessage
}

// Meta is the dispatch metadata handed to subscribers.
type Meta struct {
	Table       pgx.Identifier
	Topic       string
	EventID     uuid.UUID
	AggregateID uuid.UUID
	Sequence    int64
	Attempts    int
}

type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}
