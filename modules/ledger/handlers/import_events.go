package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/eventbus"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

// ImportEventsHandler refreshes the ledger views once an import completes.
type ImportEventsHandler struct {
	pool      *pgxpool.Pool
	refresher refresher
	log       *logrus.Entry
	timeout   time.Duration
}

func RegisterImportEventsHandler(bus eventbus.EventBus, pool *pgxpool.Pool, r refresher, log *logrus.Logger) *ImportEventsHandler {
	h := &ImportEventsHandler{
		pool:      pool,
		refresher: r,
		timeout:   time.Minute,
	}
	if log != nil {
		h.log = logrus.NewEntry(log).WithField("component", "ledger-import-events")
	}
	bus.Subscribe(h.onOutboxMessage)
	return h
}

func (h *ImportEventsHandler) onOutboxMessage(meta *outbox.Meta, payload json.RawMessage) error {
	if meta == nil || meta.Topic != importjob.TopicImportCompleted {
		return nil
	}
	var evt importjob.LifecycleEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}
	if evt.Imported == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if h.pool != nil {
		ctx = composables.WithPool(ctx, h.pool)
	}
	if err := h.refresher.Refresh(ctx); err != nil {
		return err
	}
	if h.log != nil {
		h.log.WithField("import_id", evt.ImportID).Info("ledger views refreshed")
	}
	return nil
}
