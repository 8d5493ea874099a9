package services

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/logging"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
)

const (
	msgNotFound          = "not found"
	defaultErrorMaxBytes = 8192
)

// ItemProcessor turns one processed item into a domain row. It never fails: every
// outcome ends up as a terminal item status.
type ItemProcessor struct {
	items         importitem.Repository
	errorMaxBytes int
	log           *logrus.Entry
	m             *metrics

	inSavepoint func(ctx context.Context, fn func(context.Context) error) error
}

func NewItemProcessor(items importitem.Repository, errorMaxBytes int, log *logrus.Entry) *ItemProcessor {
	if log == nil {
		log = logging.Nop()
	}
	if errorMaxBytes <= 0 {
		errorMaxBytes = defaultErrorMaxBytes
	}
	return &ItemProcessor{
		items:         items,
		errorMaxBytes: errorMaxBytes,
		log:           log,
		m:             getMetrics(),
		inSavepoint:   composables.InSavepoint,
	}
}

func (p *ItemProcessor) Process(ctx context.Context, h TypeHandler, item importitem.Item, caches Caches) {
	status, relationID, info := p.run(ctx, h, item, caches)
	if err := p.items.SetResult(ctx, item.ID(), status, relationID, info); err != nil {
		p.log.WithError(err).WithField("item_id", item.ID()).Error("failed to store item result")
	}
	p.m.itemsTotal.WithLabelValues(string(status)).Inc()
}

func (p *ItemProcessor) run(
	ctx context.Context,
	h TypeHandler,
	item importitem.Item,
	caches Caches,
) (importitem.Status, *uuid.UUID, *errorinfo.ErrorInfo) {
	dto, errs := h.Validate(item.ProcessedInfo())
	if len(errs) > 0 {
		return importitem.StatusImportError, nil, errorinfo.FromMessages("row failed validation", errs)
	}

	var (
		relationID *uuid.UUID
		stack      []byte
	)
	err := p.inSavepoint(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack = debug.Stack()
				err = errors.Errorf("panic: %v", r)
			}
		}()
		relationID, err = h.Create(ctx, ItemContext{ImportID: item.ImportID(), ItemID: item.ID(), Caches: caches}, dto)
		return err
	})
	if err != nil {
		info := errorinfo.FromError(errors.Wrap(err, "create"), p.errorMaxBytes)
		if stack != nil {
			info.Stack = outbox.TruncateString(fmt.Sprintf("%s\n%s", info.Stack, stack), p.errorMaxBytes)
		}
		return importitem.StatusImportError, nil, info
	}
	if relationID == nil {
		return importitem.StatusImportError, nil, &errorinfo.ErrorInfo{Message: msgNotFound}
	}
	return importitem.StatusImported, relationID, nil
}
