package eventbus

import (
	"context"

	"github.com/iota-uz/bookkeeper/pkg/eventbus"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
)

// Dispatcher forwards relayed messages to subscribers with the signature
// func(meta *outbox.Meta, payload json.RawMessage) error.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func New(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	meta := msg.Meta
	return d.bus.PublishE(&meta, msg.Payload)
}
