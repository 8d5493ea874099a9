package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/filestore"
	"github.com/iota-uz/bookkeeper/pkg/logging"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

// LedgerLinks reports and detaches ledger rows that reference an import.
type LedgerLinks interface {
	CountByImport(ctx context.Context, importID uuid.UUID) (int64, error)
	ClearImport(ctx context.Context, importID uuid.UUID) (int64, error)
}

type Options struct {
	Timeout         time.Duration
	WatchdogTimeout time.Duration
	Retention       time.Duration
	ErrorMaxBytes   int
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	if o.WatchdogTimeout <= 0 {
		o.WatchdogTimeout = 15 * time.Minute
	}
	if o.Retention <= 0 {
		o.Retention = 30 * 24 * time.Hour
	}
	if o.ErrorMaxBytes <= 0 {
		o.ErrorMaxBytes = defaultErrorMaxBytes
	}
}

type ImportServiceDeps struct {
	Imports   importjob.Repository
	Items     importitem.Repository
	Entities  entity.Repository
	Files     filestore.Store
	Handlers  *HandlerFactory
	Resolver  *UniqueIDResolver
	Processor *ItemProcessor
	Workflow  *FilterWorkflow
	Links     LedgerLinks
	Events    EventSink
	Logger    *logrus.Entry
}

// ImportService drives imports through created → processed → awaitingImport → importing → complete.
type ImportService struct {
	imports   importjob.Repository
	items     importitem.Repository
	entities  entity.Repository
	files     filestore.Store
	handlers  *HandlerFactory
	resolver  *UniqueIDResolver
	processor *ItemProcessor
	workflow  *FilterWorkflow
	links     LedgerLinks
	events    EventSink
	opts      Options
	log       *logrus.Entry
	m         *metrics

	inTx func(ctx context.Context, fn func(context.Context) error) error
	now  func() time.Time
}

func NewImportService(deps ImportServiceDeps, opts Options) *ImportService {
	opts.setDefaults()
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	events := deps.Events
	if events == nil {
		events = nopSink{}
	}
	return &ImportService{
		imports:   deps.Imports,
		items:     deps.Items,
		entities:  deps.Entities,
		files:     deps.Files,
		handlers:  deps.Handlers,
		resolver:  deps.Resolver,
		processor: deps.Processor,
		workflow:  deps.Workflow,
		links:     deps.Links,
		events:    events,
		opts:      opts,
		log:       log,
		m:         getMetrics(),
		inTx:      composables.InTx,
		now:       time.Now,
	}
}

type RegisterDTO struct {
	Filename          string           `json:"filename" validate:"required,max=255"`
	Content           []byte           `json:"-"`
	Rows              []map[string]any `json:"rows,omitempty"`
	Source            string           `json:"source,omitempty" validate:"omitempty,oneof=csv json xlsx"`
	Type              string           `json:"type" validate:"required,oneof=transaction account bill budget category tag label mappedImport"`
	MappingID         *uuid.UUID       `json:"mappingId,omitempty"`
	AutoProcess       bool             `json:"autoProcess"`
	AutoClean         bool             `json:"autoClean"`
	CheckImportedOnly bool             `json:"checkImportedOnly"`
}

func (d *RegisterDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Filename = strings.TrimSpace(d.Filename)
	out := serrors.ValidationErrors{}
	if err := constants.Validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return serrors.ValidationErrors{"request": err.Error()}, false
		}
		out = serrors.ProcessValidatorErrors(verrs, nil)
	}
	if d.Type == string(importjob.TypeMappedImport) && d.MappingID == nil {
		out["MappingID"] = "is required"
	}
	if d.Rows != nil && len(d.Content) > 0 {
		out["Rows"] = "cannot be combined with file content"
	}
	return out, len(out) == 0
}

// Register stores the file, creates the import and processes it.
func (s *ImportService) Register(ctx context.Context, dto *RegisterDTO) (importjob.Import, error) {
	if errs, ok := dto.Ok(); !ok {
		return importjob.Import{}, fmt.Errorf("%w: %v", ErrInvalidRegister, errs.Messages())
	}

	content := dto.Content
	source := importjob.Source(dto.Source)
	if dto.Rows != nil {
		raw, err := json.Marshal(dto.Rows)
		if err != nil {
			return importjob.Import{}, err
		}
		content, source = raw, importjob.SourceJSON
	}
	if source == "" {
		detected, err := DetectSource(dto.Filename, content)
		if err != nil {
			return importjob.Import{}, err
		}
		source = detected
	}

	opts := []importjob.Option{
		importjob.WithAutoProcess(dto.AutoProcess),
		importjob.WithAutoClean(dto.AutoClean),
		importjob.WithCheckImportedOnly(dto.CheckImportedOnly),
	}
	if dto.MappingID != nil {
		opts = append(opts, importjob.WithMappingID(*dto.MappingID))
	}
	draft := importjob.New("", source, importjob.Type(dto.Type), opts...)
	draft = draft.WithFilename(storedName(draft.ID(), dto.Filename))

	if err := s.files.Write(ctx, draft.Filename(), content); err != nil {
		return importjob.Import{}, fmt.Errorf("store import file: %w", err)
	}
	created, err := s.imports.Create(ctx, draft)
	if err != nil {
		if delErr := s.files.Delete(ctx, draft.Filename()); delErr != nil {
			s.log.WithError(delErr).WithField("file", draft.Filename()).Warn("orphaned import file not removed")
		}
		return importjob.Import{}, err
	}
	s.log.WithFields(logrus.Fields{"import_id": created.ID(), "type": created.Type()}).Info("import registered")

	if err := s.Process(ctx, created.ID()); err != nil {
		imp, getErr := s.imports.GetByID(ctx, created.ID())
		if getErr != nil {
			return created, err
		}
		return imp, err
	}
	return s.imports.GetByID(ctx, created.ID())
}

// Process parses, validates and dedups the rows of a created import.
func (s *ImportService) Process(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "imports.Process")
	defer span.End()
	span.SetAttributes(attribute.String("import.id", id.String()))

	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if imp.Status() != importjob.StatusCreated {
		return fmt.Errorf("%w: process needs %s, import is %s", ErrInvalidTransition, importjob.StatusCreated, imp.Status())
	}

	items, err := s.buildItems(ctx, imp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failProcess(ctx, imp, err)
		return err
	}

	counts := importitem.StatusCounts{}
	for _, it := range items {
		counts[it.Status()]++
	}
	status := importjob.AggregateStatus(counts)
	var info *errorinfo.ErrorInfo
	if status == importjob.StatusError {
		info = errorinfo.FromMessages("no row passed validation", firstItemErrors(items, 20))
	}

	err = s.inTx(ctx, func(txCtx context.Context) error {
		if err := s.items.CreateMany(txCtx, items); err != nil {
			return err
		}
		ok, err := s.imports.TransitionStatus(txCtx, id, importjob.StatusCreated, status, info)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentUpdate
		}
		if status == importjob.StatusProcessed {
			return nil
		}
		return s.events.Emit(txCtx, s.lifecycleEvent(imp, status, 0, counts[importitem.StatusError], info))
	})
	if err != nil {
		return err
	}
	s.m.transitionsTotal.WithLabelValues(string(status)).Inc()
	s.log.WithFields(logrus.Fields{
		"import_id": id,
		"status":    status,
		"rows":      counts.Total(),
	}).Info("import processed")
	return nil
}

// buildItems reads the import file and produces one item per row.
func (s *ImportService) buildItems(ctx context.Context, imp importjob.Import) ([]importitem.Item, error) {
	handler, skipRows, err := s.handlers.For(ctx, imp)
	if err != nil {
		return nil, err
	}
	content, err := s.files.ReadToString(ctx, imp.Filename())
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	rows, err := ParseRows(imp.Source(), content, skipRows)
	if err != nil {
		return nil, err
	}

	type transformed struct {
		processed json.RawMessage
		key       string
		errs      []string
		raw       json.RawMessage
	}
	out := make([]transformed, 0, len(rows))
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		processed, errs := handler.Transform(row)
		t := transformed{processed: processed, errs: errs}
		if len(errs) > 0 {
			t.raw, _ = json.Marshal(row)
		} else {
			t.key = handler.UniqueKey(processed)
			keys = append(keys, t.key)
		}
		out = append(out, t)
	}

	existing, err := s.resolver.Existing(ctx, imp.ID(), keys, handler.Lookup(), imp.CheckImportedOnly())
	if err != nil {
		return nil, err
	}

	items := make([]importitem.Item, 0, len(out))
	inFile := make(map[string]struct{}, len(keys))
	for _, t := range out {
		if len(t.errs) > 0 {
			items = append(items, importitem.New(imp.ID(), "", importitem.StatusError, t.raw,
				errorinfo.FromMessages("row failed validation", t.errs)))
			continue
		}
		status := importitem.StatusProcessed
		if t.key != "" {
			_, seen := existing[t.key]
			_, repeated := inFile[t.key]
			if seen || repeated {
				status = importitem.StatusDuplicate
			}
			inFile[t.key] = struct{}{}
		}
		items = append(items, importitem.New(imp.ID(), t.key, status, t.processed, nil))
	}
	return items, nil
}

func (s *ImportService) failProcess(ctx context.Context, imp importjob.Import, cause error) {
	info := errorinfo.FromError(cause, s.opts.ErrorMaxBytes)
	err := s.inTx(ctx, func(txCtx context.Context) error {
		ok, err := s.imports.TransitionStatus(txCtx, imp.ID(), importjob.StatusCreated, importjob.StatusError, info)
		if err != nil || !ok {
			return err
		}
		return s.events.Emit(txCtx, s.lifecycleEvent(imp, importjob.StatusError, 0, 0, info))
	})
	if err != nil {
		s.log.WithError(err).WithField("import_id", imp.ID()).Error("failed to mark import as errored")
		return
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusError)).Inc()
}

// Trigger queues a processed import for the driver.
func (s *ImportService) Trigger(ctx context.Context, id uuid.UUID) error {
	ok, err := s.imports.TransitionStatus(ctx, id, importjob.StatusProcessed, importjob.StatusAwaitingImport, nil)
	if err != nil {
		return err
	}
	if !ok {
		imp, err := s.imports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: trigger needs %s, import is %s", ErrInvalidTransition, importjob.StatusProcessed, imp.Status())
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusAwaitingImport)).Inc()
	return nil
}

// DoRequiredImports is one driver tick.
func (s *ImportService) DoRequiredImports(ctx context.Context) error {
	created, err := s.imports.List(ctx, &importjob.FindParams{Statuses: []importjob.Status{importjob.StatusCreated}})
	if err != nil {
		return fmt.Errorf("list created imports: %w", err)
	}
	for _, imp := range created {
		if err := s.Process(ctx, imp.ID()); err != nil {
			s.log.WithError(err).WithField("import_id", imp.ID()).Warn("processing leftover import failed")
		}
	}

	promoted, err := s.imports.PromoteAutoProcess(ctx)
	if err != nil {
		return fmt.Errorf("promote auto-process imports: %w", err)
	}
	if len(promoted) > 0 {
		s.m.transitionsTotal.WithLabelValues(string(importjob.StatusAwaitingImport)).Add(float64(len(promoted)))
		s.log.WithField("imports", promoted).Info("auto-process imports queued")
	}

	if err := s.failStale(ctx); err != nil {
		return err
	}

	importing, err := s.imports.CountByStatus(ctx, importjob.StatusImporting)
	if err != nil {
		return err
	}
	if importing > 0 {
		return nil
	}
	next, err := s.imports.NextAwaiting(ctx)
	if errors.Is(err, importjob.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	err = s.DoImport(ctx, next.ID())
	if errors.Is(err, ErrNotClaimed) {
		return nil
	}
	return err
}

// failStale is the watchdog: imports stuck in importing past WatchdogTimeout become errors.
func (s *ImportService) failStale(ctx context.Context) error {
	info := &errorinfo.ErrorInfo{Message: ErrTimedOut.Message, Code: ErrTimedOut.Code}
	var stale []uuid.UUID
	err := s.inTx(ctx, func(txCtx context.Context) error {
		ids, err := s.imports.FailStale(txCtx, s.now().Add(-s.opts.WatchdogTimeout), info)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.events.Emit(txCtx, importjob.LifecycleEvent{
				ImportID:   id,
				Status:     importjob.StatusError,
				Message:    info.Message,
				OccurredAt: s.now(),
			}); err != nil {
				return err
			}
		}
		stale = ids
		return nil
	})
	if err != nil {
		return fmt.Errorf("watchdog: %w", err)
	}
	if len(stale) > 0 {
		s.m.watchdogTimeouts.Add(float64(len(stale)))
		s.m.transitionsTotal.WithLabelValues(string(importjob.StatusError)).Add(float64(len(stale)))
		s.log.WithField("imports", stale).Warn("imports timed out")
	}
	return nil
}

// DoImport claims an awaiting import and commits its processed items.
func (s *ImportService) DoImport(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "imports.DoImport")
	defer span.End()
	span.SetAttributes(attribute.String("import.id", id.String()))

	claimed, err := s.imports.ClaimForImport(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrNotClaimed
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusImporting)).Inc()

	started := s.now()
	deadline := started.Add(s.opts.Timeout)
	imp, err := s.runImport(ctx, id, deadline)
	if err == nil {
		err = s.finishImport(ctx, imp, deadline)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failImport(ctx, id, err)
		s.m.importDuration.WithLabelValues(string(imp.Type()), "error").Observe(s.now().Sub(started).Seconds())
		return err
	}
	s.m.importDuration.WithLabelValues(string(imp.Type()), "complete").Observe(s.now().Sub(started).Seconds())
	return nil
}

func (s *ImportService) runImport(ctx context.Context, id uuid.UUID, deadline time.Time) (importjob.Import, error) {
	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return importjob.Import{}, err
	}
	handler, _, err := s.handlers.For(ctx, imp)
	if err != nil {
		return imp, err
	}
	items, err := s.items.List(ctx, id, &importitem.FindParams{Statuses: []importitem.Status{importitem.StatusProcessed}})
	if err != nil {
		return imp, err
	}
	caches, err := s.loadCaches(ctx)
	if err != nil {
		return imp, err
	}

	// pgx transactions are not safe for concurrent use: items run one after another
	err = s.inTx(ctx, func(txCtx context.Context) error {
		for i, it := range items {
			s.processor.Process(txCtx, handler, it, caches)
			if s.now().After(deadline) {
				return fmt.Errorf("%w after %d of %d items", ErrImportDeadline, i+1, len(items))
			}
		}
		return nil
	})
	return imp, err
}

// finishImport runs the filter workflow and marks the import complete.
func (s *ImportService) finishImport(ctx context.Context, imp importjob.Import, deadline time.Time) error {
	if err := s.workflow.Run(ctx, imp.ID(), deadline); err != nil {
		return err
	}
	counts, err := s.items.CountByStatus(ctx, imp.ID())
	if err != nil {
		return err
	}
	err = s.inTx(ctx, func(txCtx context.Context) error {
		ok, err := s.imports.TransitionStatus(txCtx, imp.ID(), importjob.StatusImporting, importjob.StatusComplete, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentUpdate
		}
		return s.events.Emit(txCtx, s.lifecycleEvent(imp, importjob.StatusComplete,
			counts[importitem.StatusImported], counts[importitem.StatusImportError], nil))
	})
	if err != nil {
		return err
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusComplete)).Inc()
	s.log.WithFields(logrus.Fields{
		"import_id": imp.ID(),
		"imported":  counts[importitem.StatusImported],
		"failed":    counts[importitem.StatusImportError],
	}).Info("import complete")
	return nil
}

// failImport writes the error status only if the import is still importing.
func (s *ImportService) failImport(ctx context.Context, id uuid.UUID, cause error) {
	log := s.log.WithField("import_id", id).WithError(cause)
	current, err := s.imports.GetByID(ctx, id)
	if err != nil {
		log.WithField("lookup_error", err.Error()).Error("import failed and could not be re-read")
		return
	}
	if current.Status() != importjob.StatusImporting {
		log.WithField("status", current.Status()).Warn("import failed but is no longer importing, leaving status")
		return
	}

	info := errorinfo.FromError(cause, s.opts.ErrorMaxBytes)
	err = s.inTx(ctx, func(txCtx context.Context) error {
		ok, err := s.imports.TransitionStatus(txCtx, id, importjob.StatusImporting, importjob.StatusError, info)
		if err != nil || !ok {
			return err
		}
		return s.events.Emit(txCtx, s.lifecycleEvent(current, importjob.StatusError, 0, 0, info))
	})
	if err != nil {
		log.WithField("write_error", err.Error()).Error("failed to mark import as errored")
		return
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusError)).Inc()
	log.Error("import failed")
}

// ResumeFilters finishes the workflow of an import that failed on the filter deadline.
func (s *ImportService) ResumeFilters(ctx context.Context, id uuid.UUID) error {
	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if imp.Status() != importjob.StatusError || imp.Checkpoint() == nil {
		return fmt.Errorf("%w: resume needs an errored import with a stored checkpoint", ErrInvalidTransition)
	}
	importing, err := s.imports.CountByStatus(ctx, importjob.StatusImporting)
	if err != nil {
		return err
	}
	if importing > 0 {
		return ErrImportInProgress
	}
	ok, err := s.imports.TransitionStatus(ctx, id, importjob.StatusError, importjob.StatusImporting, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotClaimed
	}
	if err := s.finishImport(ctx, imp, s.now().Add(s.opts.Timeout)); err != nil {
		s.failImport(ctx, id, err)
		return err
	}
	return nil
}

func (s *ImportService) loadCaches(ctx context.Context) (Caches, error) {
	caches := make(Caches, len(entity.Kinds))
	for _, kind := range entity.Kinds {
		list, err := s.entities.List(ctx, kind, nil)
		if err != nil {
			return nil, fmt.Errorf("load %s cache: %w", kind, err)
		}
		caches[kind] = list
	}
	return caches, nil
}

func (s *ImportService) lifecycleEvent(
	imp importjob.Import,
	status importjob.Status,
	imported, failed int,
	info *errorinfo.ErrorInfo,
) importjob.LifecycleEvent {
	evt := importjob.LifecycleEvent{
		ImportID:   imp.ID(),
		Type:       imp.Type(),
		Status:     status,
		Imported:   imported,
		Failed:     failed,
		OccurredAt: s.now(),
	}
	if info != nil {
		evt.Message = info.Message
	}
	return evt
}

func (s *ImportService) Get(ctx context.Context, id uuid.UUID) (importjob.Import, error) {
	return s.imports.GetByID(ctx, id)
}

func (s *ImportService) List(ctx context.Context, params *importjob.FindParams) ([]importjob.Import, error) {
	return s.imports.List(ctx, params)
}

func (s *ImportService) Items(ctx context.Context, id uuid.UUID, params *importitem.FindParams) ([]importitem.Item, error) {
	return s.items.List(ctx, id, params)
}

func (s *ImportService) ItemCounts(ctx context.Context, id uuid.UUID) (importitem.StatusCounts, error) {
	return s.items.CountByStatus(ctx, id)
}

// storedName keys the file by import id so equal upload names never collide.
func storedName(id uuid.UUID, filename string) string {
	return id.String() + "/" + path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

func firstItemErrors(items []importitem.Item, limit int) []string {
	var out []string
	for i, it := range items {
		if it.ErrorInfo() == nil {
			continue
		}
		for _, e := range it.ErrorInfo().Errors {
			out = append(out, fmt.Sprintf("row %d: %s", i+1, e))
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
