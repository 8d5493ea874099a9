package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/constants"
)

// Caches holds titled entities loaded once per import batch. Handlers only read it.
type Caches map[entity.Kind][]entity.Entity

// ItemContext identifies the item a handler is creating a domain row for.
type ItemContext struct {
	ImportID uuid.UUID
	ItemID   uuid.UUID
	Caches   Caches
}

// TypeHandler knows how to validate, dedup and create one import type.
// It is chosen once per import.
type TypeHandler interface {
	// Transform validates a raw row and returns the normalized processed info, or error messages.
	Transform(row Row) (json.RawMessage, []string)
	// Validate decodes and re-validates stored processed info.
	Validate(processed json.RawMessage) (any, []string)
	UniqueKey(processed json.RawMessage) string
	Lookup() ExistingLookup
	Create(ctx context.Context, ic ItemContext, dto any) (*uuid.UUID, error)
}

type HandlerFactory struct {
	entities     entity.Repository
	transactions transaction.Repository
	mappings     importmapping.Repository
	resolver     *LinkedEntityResolver
}

func NewHandlerFactory(
	entities entity.Repository,
	transactions transaction.Repository,
	mappings importmapping.Repository,
	resolver *LinkedEntityResolver,
) *HandlerFactory {
	return &HandlerFactory{
		entities:     entities,
		transactions: transactions,
		mappings:     mappings,
		resolver:     resolver,
	}
}

// For returns the handler of imp and the number of leading lines to skip in its file.
func (f *HandlerFactory) For(ctx context.Context, imp importjob.Import) (TypeHandler, int, error) {
	switch imp.Type() {
	case importjob.TypeTransaction:
		return f.transactionHandler(), 0, nil
	case importjob.TypeMappedImport:
		if imp.MappingID() == nil {
			return nil, 0, ErrMappingRequired
		}
		m, err := f.mappings.GetByID(ctx, *imp.MappingID())
		if err != nil {
			return nil, 0, fmt.Errorf("load import mapping: %w", err)
		}
		return &mappedHandler{transactionHandler: f.transactionHandler(), config: m.Config()}, m.Config().SkipRows, nil
	}
	kind := entity.Kind(imp.Type())
	if !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown import type %q", ErrInvalidRegister, imp.Type())
	}
	return &entityHandler{kind: kind, repo: f.entities}, 0, nil
}

func (f *HandlerFactory) transactionHandler() *transactionHandler {
	return &transactionHandler{repo: f.transactions, resolver: f.resolver}
}

func decodeRow(row any, dst any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

type entityHandler struct {
	kind entity.Kind
	repo entity.Repository
}

func (h *entityHandler) Transform(row Row) (json.RawMessage, []string) {
	var dto entity.CreateDTO
	if err := decodeRow(row, &dto); err != nil {
		return nil, []string{"row: " + err.Error()}
	}
	return validated(&dto, dto.Ok)
}

func (h *entityHandler) Validate(processed json.RawMessage) (any, []string) {
	var dto entity.CreateDTO
	if err := json.Unmarshal(processed, &dto); err != nil {
		return nil, []string{"row: " + err.Error()}
	}
	if errs, ok := dto.Ok(); !ok {
		return nil, errs.Messages()
	}
	return &dto, nil
}

func (h *entityHandler) UniqueKey(processed json.RawMessage) string {
	var dto entity.CreateDTO
	if err := json.Unmarshal(processed, &dto); err != nil {
		return ""
	}
	return h.titleKey(dto.Title)
}

func (h *entityHandler) titleKey(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}
	return string(h.kind) + ":" + title
}

// Lookup matches keys against the existing titles of the handler's kind.
func (h *entityHandler) Lookup() ExistingLookup {
	return func(ctx context.Context, keys []string) ([]string, error) {
		existing, err := h.repo.List(ctx, h.kind, nil)
		if err != nil {
			return nil, err
		}
		titles := make(map[string]struct{}, len(existing))
		for _, e := range existing {
			titles[h.titleKey(e.Title())] = struct{}{}
		}
		var out []string
		for _, k := range keys {
			if _, ok := titles[k]; ok {
				out = append(out, k)
			}
		}
		return out, nil
	}
}

func (h *entityHandler) Create(ctx context.Context, ic ItemContext, dto any) (*uuid.UUID, error) {
	d, ok := dto.(*entity.CreateDTO)
	if !ok {
		return nil, fmt.Errorf("unexpected %s payload %T", h.kind, dto)
	}
	created, err := h.repo.Create(ctx, d.ToEntity(h.kind, entity.WithImport(ic.ImportID, ic.ItemID)))
	if err != nil {
		return nil, err
	}
	id := created.ID()
	return &id, nil
}

type transactionHandler struct {
	repo     transaction.Repository
	resolver *LinkedEntityResolver
}

func (h *transactionHandler) Transform(row Row) (json.RawMessage, []string) {
	var dto transaction.CreateDTO
	if err := decodeRow(row, &dto); err != nil {
		return nil, []string{"row: " + err.Error()}
	}
	return validated(&dto, dto.Ok)
}

func (h *transactionHandler) Validate(processed json.RawMessage) (any, []string) {
	var dto transaction.CreateDTO
	if err := json.Unmarshal(processed, &dto); err != nil {
		return nil, []string{"row: " + err.Error()}
	}
	if errs, ok := dto.Ok(); !ok {
		return nil, errs.Messages()
	}
	return &dto, nil
}

func (h *transactionHandler) UniqueKey(processed json.RawMessage) string {
	var dto transaction.CreateDTO
	if err := json.Unmarshal(processed, &dto); err != nil {
		return ""
	}
	return strings.TrimSpace(dto.UniqueID)
}

func (h *transactionHandler) Lookup() ExistingLookup {
	return h.repo.ExistingUniqueIDs
}

func (h *transactionHandler) Create(ctx context.Context, ic ItemContext, dto any) (*uuid.UUID, error) {
	d, ok := dto.(*transaction.CreateDTO)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction payload %T", dto)
	}
	tag := WithImportTag(ic.ImportID, ic.ItemID)

	account, err := h.resolver.CreateOrGet(ctx, entity.KindAccount, d.Account, ic.Caches[entity.KindAccount], tag)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	entry := transaction.Entry{AccountID: account.ID()}
	if entry.Amount, err = decimal.NewFromString(string(d.Amount)); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	optional := []struct {
		kind entity.Kind
		ref  *entity.Ref
		dst  **uuid.UUID
	}{
		{entity.KindCategory, d.Category, &entry.CategoryID},
		{entity.KindBill, d.Bill, &entry.BillID},
		{entity.KindBudget, d.Budget, &entry.BudgetID},
		{entity.KindTag, d.Tag, &entry.TagID},
	}
	for _, o := range optional {
		if o.ref == nil {
			continue
		}
		e, err := h.resolver.CreateOrGet(ctx, o.kind, *o.ref, ic.Caches[o.kind], tag)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.kind, err)
		}
		if e != nil {
			id := e.ID()
			*o.dst = &id
		}
	}
	for _, ref := range d.Labels {
		e, err := h.resolver.CreateOrGet(ctx, entity.KindLabel, ref, ic.Caches[entity.KindLabel], tag)
		if err != nil {
			return nil, fmt.Errorf("label: %w", err)
		}
		if e != nil {
			entry.LabelIDs = append(entry.LabelIDs, e.ID())
		}
	}

	date, err := time.Parse(constants.DateLayout, d.Date)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	created, err := h.repo.Create(ctx, transaction.New(date, d.Description, entry,
		transaction.WithUniqueID(d.UniqueID),
		transaction.WithImport(ic.ImportID, ic.ItemID),
	))
	if err != nil {
		return nil, err
	}
	id := created.ID()
	return &id, nil
}

// mappedHandler reshapes foreign rows into transactions and then behaves like transactionHandler.
type mappedHandler struct {
	*transactionHandler
	config importmapping.Config
}

func (h *mappedHandler) Transform(row Row) (json.RawMessage, []string) {
	dto, errs := applyMapping(h.config, row)
	if len(errs) > 0 {
		return nil, errs
	}
	return validated(&dto, dto.Ok)
}
