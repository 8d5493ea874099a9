package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
)

type stubHandler struct {
	validateErrs []string
	create       func() (*uuid.UUID, error)
}

func (s *stubHandler) Transform(Row) (json.RawMessage, []string)  { return nil, nil }
func (s *stubHandler) UniqueKey(json.RawMessage) string            { return "" }
func (s *stubHandler) Lookup() ExistingLookup                      { return nil }
func (s *stubHandler) Validate(json.RawMessage) (any, []string)    { return struct{}{}, s.validateErrs }
func (s *stubHandler) Create(context.Context, ItemContext, any) (*uuid.UUID, error) {
	return s.create()
}

func processOne(t *testing.T, maxBytes int, h TypeHandler) importitem.Item {
	t.Helper()
	db := newMemDB(time.Now)
	items := &memItems{db: db}
	p := NewItemProcessor(items, maxBytes, nil)
	p.inSavepoint = db.tx

	ctx := context.Background()
	item := importitem.New(uuid.New(), "", importitem.StatusProcessed, json.RawMessage(`{}`), nil)
	require.NoError(t, items.CreateMany(ctx, []importitem.Item{item}))
	p.Process(ctx, h, item, Caches{})

	stored, err := items.List(ctx, item.ImportID(), nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	return stored[0]
}

func TestItemProcessor_Outcomes(t *testing.T) {
	id := uuid.New()
	ok := processOne(t, 0, &stubHandler{create: func() (*uuid.UUID, error) { return &id, nil }})
	require.Equal(t, importitem.StatusImported, ok.Status())
	require.Equal(t, id, *ok.RelationID())

	invalid := processOne(t, 0, &stubHandler{validateErrs: []string{"amount: is required"}})
	require.Equal(t, importitem.StatusImportError, invalid.Status())
	require.Equal(t, []string{"amount: is required"}, invalid.ErrorInfo().Errors)

	nothing := processOne(t, 0, &stubHandler{create: func() (*uuid.UUID, error) { return nil, nil }})
	require.Equal(t, importitem.StatusImportError, nothing.Status())
	require.Equal(t, "not found", nothing.ErrorInfo().Message)
}

func TestItemProcessor_PanicStackIsBounded(t *testing.T) {
	got := processOne(t, 256, &stubHandler{create: func() (*uuid.UUID, error) {
		panic(strings.Repeat("x", 1000))
	}})
	require.Equal(t, importitem.StatusImportError, got.Status())
	require.Contains(t, got.ErrorInfo().Message, "panic")
	require.LessOrEqual(t, len(got.ErrorInfo().Stack), 256)
	require.Nil(t, got.RelationID())
}
