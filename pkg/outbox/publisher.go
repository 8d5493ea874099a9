package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/bookkeeper/pkg/repo"
)

type Publisher interface {
	Enqueue(ctx context.Context, tx repo.Tx, msg Message) (sequence int64, err error)
}

type publisher struct {
	table pgx.Identifier
	m     *metrics
}

// NewPublisher writes into table. Enqueue must run on the caller's transaction so the
// message commits or rolls back with the state change it describes.
func NewPublisher(table pgx.Identifier) (Publisher, error) {
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	return &publisher{table: table, m: getMetrics()}, nil
}

func (p *publisher) Enqueue(ctx context.Context, tx repo.Tx, msg Message) (int64, error) {
	if msg.Topic == "" {
		return 0, invalidConfig("topic is required")
	}
	if msg.EventID == uuid.Nil {
		msg.EventID = uuid.New()
	}
	if len(msg.Payload) == 0 {
		msg.Payload = []byte("{}")
	}

	q := fmt.Sprintf(
		`INSERT INTO %s (topic, payload, event_id, aggregate_id, available_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		 RETURNING sequence`,
		p.table.Sanitize(),
	)

	var sequence int64
	if err := tx.QueryRow(ctx, q, msg.Topic, msg.Payload, msg.EventID, msg.AggregateID).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("outbox enqueue: %w", err)
	}

	p.m.enqueueTotal.WithLabelValues(TableLabel(p.table), msg.Topic).Inc()
	return sequence, nil
}
