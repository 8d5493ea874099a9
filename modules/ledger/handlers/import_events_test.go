package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/pkg/eventbus"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
)

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return nil
}

func TestImportEventsHandler_RefreshesOnCompletedImports(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)
	r := &countingRefresher{}
	RegisterImportEventsHandler(bus, nil, r, nil)

	payload, err := json.Marshal(importjob.LifecycleEvent{ImportID: uuid.New(), Status: importjob.StatusComplete, Imported: 3})
	require.NoError(t, err)

	require.NoError(t, bus.PublishE(&outbox.Meta{Topic: importjob.TopicImportCompleted}, json.RawMessage(payload)))
	require.Equal(t, 1, r.calls)

	require.NoError(t, bus.PublishE(&outbox.Meta{Topic: importjob.TopicImportFailed}, json.RawMessage(payload)))
	require.Equal(t, 1, r.calls)

	empty, err := json.Marshal(importjob.LifecycleEvent{ImportID: uuid.New(), Status: importjob.StatusComplete})
	require.NoError(t, err)
	require.NoError(t, bus.PublishE(&outbox.Meta{Topic: importjob.TopicImportCompleted}, json.RawMessage(empty)))
	require.Equal(t, 1, r.calls, "imports that wrote nothing do not refresh")
}
