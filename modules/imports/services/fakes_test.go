package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	ledgerservices "github.com/iota-uz/bookkeeper/modules/ledger/services"
	"github.com/iota-uz/bookkeeper/pkg/filestore"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memDB keeps every fake repository's rows. tx restores the state written by fn when fn fails,
// which is how a transaction or savepoint behaves for the code under test.
type memDB struct {
	mu  sync.Mutex
	now func() time.Time

	imports     map[uuid.UUID]importjob.Import
	importOrder []uuid.UUID
	items       map[uuid.UUID]importitem.Item
	itemOrder   []uuid.UUID
	entities    map[uuid.UUID]entity.Entity
	txns        map[uuid.UUID]transaction.Transaction
	mappings    map[uuid.UUID]importmapping.Mapping
	files       map[string][]byte
	events      []importjob.LifecycleEvent

	// beforeEntityCreate runs ahead of every entity insert; a non-nil error aborts it.
	beforeEntityCreate func(e entity.Entity) error
	// createImportErr fails every import insert when set.
	createImportErr error
}

func newMemDB(now func() time.Time) *memDB {
	return &memDB{
		now:      now,
		imports:  map[uuid.UUID]importjob.Import{},
		items:    map[uuid.UUID]importitem.Item{},
		entities: map[uuid.UUID]entity.Entity{},
		txns:     map[uuid.UUID]transaction.Transaction{},
		mappings: map[uuid.UUID]importmapping.Mapping{},
		files:    map[string][]byte{},
	}
}

type memSnapshot struct {
	imports     map[uuid.UUID]importjob.Import
	importOrder []uuid.UUID
	items       map[uuid.UUID]importitem.Item
	itemOrder   []uuid.UUID
	entities    map[uuid.UUID]entity.Entity
	txns        map[uuid.UUID]transaction.Transaction
	events      []importjob.LifecycleEvent
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		imports:     copyMap(db.imports),
		importOrder: append([]uuid.UUID(nil), db.importOrder...),
		items:       copyMap(db.items),
		itemOrder:   append([]uuid.UUID(nil), db.itemOrder...),
		entities:    copyMap(db.entities),
		txns:        copyMap(db.txns),
		events:      append([]importjob.LifecycleEvent(nil), db.events...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.imports, db.importOrder = s.imports, s.importOrder
	db.items, db.itemOrder = s.items, s.itemOrder
	db.entities, db.txns, db.events = s.entities, s.txns, s.events
}

func (db *memDB) tx(ctx context.Context, fn func(context.Context) error) (err error) {
	snap := db.snapshot()
	defer func() {
		if r := recover(); r != nil {
			db.restore(snap)
			panic(r)
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(ctx)
}

func hasStatus[S comparable](list []S, s S) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- imports ---

type memImports struct{ db *memDB }

// stamp rebuilds imp with new timestamps, keeping every other field.
func stamp(imp importjob.Import, createdAt, updatedAt time.Time) importjob.Import {
	opts := []importjob.Option{
		importjob.WithAutoProcess(imp.AutoProcess()),
		importjob.WithAutoClean(imp.AutoClean()),
		importjob.WithCheckImportedOnly(imp.CheckImportedOnly()),
		importjob.WithErrorInfo(imp.ErrorInfo()),
		importjob.WithCheckpoint(imp.Checkpoint()),
	}
	if imp.MappingID() != nil {
		opts = append(opts, importjob.WithMappingID(*imp.MappingID()))
	}
	return importjob.Hydrate(imp.ID(), imp.Status(), imp.Source(), imp.Type(), imp.Filename(), createdAt, updatedAt, opts...)
}

func (r *memImports) GetByID(_ context.Context, id uuid.UUID) (importjob.Import, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	imp, ok := r.db.imports[id]
	if !ok {
		return importjob.Import{}, importjob.ErrNotFound
	}
	return imp, nil
}

func (r *memImports) list(match func(importjob.Import) bool) []importjob.Import {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []importjob.Import
	for _, id := range r.db.importOrder {
		imp, ok := r.db.imports[id]
		if ok && match(imp) {
			out = append(out, imp)
		}
	}
	return out
}

func (r *memImports) List(_ context.Context, params *importjob.FindParams) ([]importjob.Import, error) {
	var statuses []importjob.Status
	if params != nil {
		statuses = params.Statuses
	}
	return r.list(func(imp importjob.Import) bool { return hasStatus(statuses, imp.Status()) }), nil
}

func (r *memImports) Count(ctx context.Context, params *importjob.FindParams) (int64, error) {
	list, err := r.List(ctx, params)
	return int64(len(list)), err
}

func (r *memImports) Create(_ context.Context, imp importjob.Import) (importjob.Import, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.createImportErr != nil {
		return importjob.Import{}, r.db.createImportErr
	}
	now := r.db.now()
	imp = stamp(imp, now, now)
	r.db.imports[imp.ID()] = imp
	r.db.importOrder = append(r.db.importOrder, imp.ID())
	return imp, nil
}

func (r *memImports) update(id uuid.UUID, fn func(importjob.Import) (importjob.Import, bool)) bool {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	imp, ok := r.db.imports[id]
	if !ok {
		return false
	}
	next, changed := fn(imp)
	if !changed {
		return false
	}
	r.db.imports[id] = stamp(next, imp.CreatedAt(), r.db.now())
	return true
}

func (r *memImports) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	imp, ok := r.db.imports[id]
	if !ok || imp.Status() == importjob.StatusImporting {
		return false, nil
	}
	delete(r.db.imports, id)
	return true, nil
}

func (r *memImports) SetStatus(_ context.Context, id uuid.UUID, status importjob.Status, info *errorinfo.ErrorInfo) error {
	if !r.update(id, func(imp importjob.Import) (importjob.Import, bool) {
		return imp.WithStatus(status, info, time.Time{}), true
	}) {
		return importjob.ErrNotFound
	}
	return nil
}

func (r *memImports) TransitionStatus(_ context.Context, id uuid.UUID, from, to importjob.Status, info *errorinfo.ErrorInfo) (bool, error) {
	return r.update(id, func(imp importjob.Import) (importjob.Import, bool) {
		if imp.Status() != from {
			return imp, false
		}
		return imp.WithStatus(to, info, time.Time{}), true
	}), nil
}

func (r *memImports) ClaimForImport(ctx context.Context, id uuid.UUID) (bool, error) {
	if n, _ := r.CountByStatus(ctx, importjob.StatusImporting); n > 0 {
		return false, nil
	}
	return r.TransitionStatus(ctx, id, importjob.StatusAwaitingImport, importjob.StatusImporting, nil)
}

func (r *memImports) ResetForReprocess(_ context.Context, id uuid.UUID) (bool, error) {
	return r.update(id, func(imp importjob.Import) (importjob.Import, bool) {
		if imp.Status() == importjob.StatusImporting {
			return imp, false
		}
		return imp.WithStatus(importjob.StatusCreated, nil, time.Time{}).WithCheckpoint(nil), true
	}), nil
}

func (r *memImports) SetCheckpoint(_ context.Context, id uuid.UUID, cp *importjob.Checkpoint) error {
	if !r.update(id, func(imp importjob.Import) (importjob.Import, bool) {
		return imp.WithCheckpoint(cp), true
	}) {
		return importjob.ErrNotFound
	}
	return nil
}

func (r *memImports) PromoteAutoProcess(ctx context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, imp := range r.list(func(imp importjob.Import) bool {
		return imp.Status() == importjob.StatusProcessed && imp.AutoProcess()
	}) {
		if ok, _ := r.TransitionStatus(ctx, imp.ID(), importjob.StatusProcessed, importjob.StatusAwaitingImport, nil); ok {
			out = append(out, imp.ID())
		}
	}
	return out, nil
}

func (r *memImports) FailStale(ctx context.Context, cutoff time.Time, info *errorinfo.ErrorInfo) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, imp := range r.list(func(imp importjob.Import) bool {
		return imp.Status() == importjob.StatusImporting && imp.UpdatedAt().Before(cutoff)
	}) {
		if ok, _ := r.TransitionStatus(ctx, imp.ID(), importjob.StatusImporting, importjob.StatusError, info); ok {
			out = append(out, imp.ID())
		}
	}
	return out, nil
}

func (r *memImports) CountByStatus(_ context.Context, status importjob.Status) (int64, error) {
	return int64(len(r.list(func(imp importjob.Import) bool { return imp.Status() == status }))), nil
}

func (r *memImports) NextAwaiting(_ context.Context) (importjob.Import, error) {
	list := r.list(func(imp importjob.Import) bool { return imp.Status() == importjob.StatusAwaitingImport })
	if len(list) == 0 {
		return importjob.Import{}, importjob.ErrNotFound
	}
	return list[0], nil
}

func (r *memImports) ListAutoCleanCandidates(_ context.Context, cutoff time.Time) ([]importjob.Import, error) {
	return r.list(func(imp importjob.Import) bool {
		return imp.AutoClean() &&
			imp.CreatedAt().Before(cutoff) &&
			imp.Status() != importjob.StatusImporting &&
			imp.Status() != importjob.StatusAwaitingImport
	}), nil
}

// --- items ---

type memItems struct{ db *memDB }

func (r *memItems) CreateMany(_ context.Context, items []importitem.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range items {
		r.db.items[it.ID()] = it
		r.db.itemOrder = append(r.db.itemOrder, it.ID())
	}
	return nil
}

func (r *memItems) each(fn func(importitem.Item)) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range r.db.itemOrder {
		if it, ok := r.db.items[id]; ok {
			fn(it)
		}
	}
}

func (r *memItems) List(_ context.Context, importID uuid.UUID, params *importitem.FindParams) ([]importitem.Item, error) {
	var statuses []importitem.Status
	if params != nil {
		statuses = params.Statuses
	}
	var out []importitem.Item
	r.each(func(it importitem.Item) {
		if it.ImportID() == importID && hasStatus(statuses, it.Status()) {
			out = append(out, it)
		}
	})
	return out, nil
}

func (r *memItems) CountByStatus(_ context.Context, importID uuid.UUID) (importitem.StatusCounts, error) {
	counts := importitem.StatusCounts{}
	r.each(func(it importitem.Item) {
		if it.ImportID() == importID {
			counts[it.Status()]++
		}
	})
	return counts, nil
}

func (r *memItems) SetResult(_ context.Context, id uuid.UUID, status importitem.Status, relationID *uuid.UUID, info *errorinfo.ErrorInfo) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	it, ok := r.db.items[id]
	if !ok {
		return importitem.ErrNotFound
	}
	r.db.items[id] = it.WithResult(status, relationID, info)
	return nil
}

func (r *memItems) ExistingUniqueIDs(_ context.Context, keys []string, excludeImportID uuid.UUID) ([]string, error) {
	want := map[string]bool{}
	for _, k := range keys {
		want[k] = true
	}
	var out []string
	r.each(func(it importitem.Item) {
		if it.ImportID() == excludeImportID || it.UniqueID() == nil || !want[*it.UniqueID()] {
			return
		}
		if hasStatus(importitem.SeenStatuses, it.Status()) {
			out = append(out, *it.UniqueID())
			want[*it.UniqueID()] = false
		}
	})
	return out, nil
}

func (r *memItems) deleteWhere(match func(importitem.Item) bool) int64 {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, it := range r.db.items {
		if match(it) {
			delete(r.db.items, id)
			n++
		}
	}
	return n
}

func (r *memItems) DeleteByImport(_ context.Context, importID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(it importitem.Item) bool { return it.ImportID() == importID }), nil
}

func (r *memItems) DeleteNotImported(_ context.Context, importID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(it importitem.Item) bool {
		return it.ImportID() == importID && it.Status() != importitem.StatusImported
	}), nil
}

// --- ledger ---

type memEntities struct{ db *memDB }

func (r *memEntities) GetByID(_ context.Context, kind entity.Kind, id uuid.UUID) (entity.Entity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.entities[id]
	if !ok || e.Kind() != kind {
		return entity.Entity{}, entity.ErrNotFound
	}
	return e, nil
}

func (r *memEntities) FindByTitle(_ context.Context, kind entity.Kind, title string) (entity.Entity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.entities {
		if e.Kind() == kind && e.TitleMatches(title) {
			return e, nil
		}
	}
	return entity.Entity{}, entity.ErrNotFound
}

func (r *memEntities) List(_ context.Context, kind entity.Kind, _ *entity.FindParams) ([]entity.Entity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.Entity
	for _, e := range r.db.entities {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEntities) Create(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	if hook := r.db.beforeEntityCreate; hook != nil {
		if err := hook(e); err != nil {
			return entity.Entity{}, err
		}
	}
	if _, err := r.FindByTitle(ctx, e.Kind(), e.Title()); err == nil {
		return entity.Entity{}, entity.ErrTitleTaken
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	e = entity.Hydrate(e.ID(), e.Kind(), e.Title(), e.Type(), e.Status(), e.ImportID(), e.ImportDetailID(), now, now)
	r.db.entities[e.ID()] = e
	return e, nil
}

func (r *memEntities) ClearImport(_ context.Context, kind entity.Kind, importID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, e := range r.db.entities {
		if e.Kind() == kind && e.ImportID() != nil && *e.ImportID() == importID {
			r.db.entities[id] = entity.Hydrate(e.ID(), e.Kind(), e.Title(), e.Type(), e.Status(), nil, nil, e.CreatedAt(), r.db.now())
			n++
		}
	}
	return n, nil
}

func (r *memEntities) CountByImport(_ context.Context, kind entity.Kind, importID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, e := range r.db.entities {
		if e.Kind() == kind && e.ImportID() != nil && *e.ImportID() == importID {
			n++
		}
	}
	return n, nil
}

type memTransactions struct{ db *memDB }

func (r *memTransactions) GetByID(_ context.Context, id uuid.UUID) (transaction.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.txns[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return t, nil
}

func (r *memTransactions) Create(_ context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t.UniqueID() != nil {
		for _, other := range r.db.txns {
			if other.UniqueID() != nil && *other.UniqueID() == *t.UniqueID() {
				return transaction.Transaction{}, transaction.ErrDuplicateUniqueID
			}
		}
	}
	t = transaction.Hydrate(t.ID(), t.Date(), t.Description(), t.UniqueID(), t.Entry(), t.ImportID(), t.ImportDetailID(), r.db.now())
	r.db.txns[t.ID()] = t
	return t, nil
}

func (r *memTransactions) ExistingUniqueIDs(_ context.Context, keys []string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []string
	for _, k := range keys {
		for _, t := range r.db.txns {
			if t.UniqueID() != nil && *t.UniqueID() == k {
				out = append(out, k)
				break
			}
		}
	}
	return out, nil
}

func (r *memTransactions) ClearImport(_ context.Context, importID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, t := range r.db.txns {
		if t.ImportID() != nil && *t.ImportID() == importID {
			r.db.txns[id] = transaction.Hydrate(t.ID(), t.Date(), t.Description(), t.UniqueID(), t.Entry(), nil, nil, t.CreatedAt())
			n++
		}
	}
	return n, nil
}

func (r *memTransactions) CountByImport(_ context.Context, importID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, t := range r.db.txns {
		if t.ImportID() != nil && *t.ImportID() == importID {
			n++
		}
	}
	return n, nil
}

type memMappings struct{ db *memDB }

func (r *memMappings) GetByID(_ context.Context, id uuid.UUID) (importmapping.Mapping, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.mappings[id]
	if !ok {
		return importmapping.Mapping{}, importmapping.ErrNotFound
	}
	return m, nil
}

func (r *memMappings) GetByTitle(_ context.Context, title string) (importmapping.Mapping, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.mappings {
		if strings.EqualFold(m.Title(), title) {
			return m, nil
		}
	}
	return importmapping.Mapping{}, importmapping.ErrNotFound
}

func (r *memMappings) List(_ context.Context) ([]importmapping.Mapping, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]importmapping.Mapping, 0, len(r.db.mappings))
	for _, m := range r.db.mappings {
		out = append(out, m)
	}
	return out, nil
}

func (r *memMappings) Create(_ context.Context, m importmapping.Mapping) (importmapping.Mapping, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.mappings[m.ID()] = m
	return m, nil
}

// --- files, events, filters ---

type memFiles struct{ db *memDB }

func (s *memFiles) Write(_ context.Context, name string, data []byte) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.files[name] = append([]byte(nil), data...)
	return nil
}

func (s *memFiles) ReadToString(_ context.Context, name string) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.files[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", filestore.ErrNotFound, name)
	}
	return string(b), nil
}

func (s *memFiles) Exists(_ context.Context, name string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.files[name]
	return ok, nil
}

func (s *memFiles) List(_ context.Context) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]string, 0, len(s.db.files))
	for name := range s.db.files {
		out = append(out, name)
	}
	return out, nil
}

func (s *memFiles) Delete(_ context.Context, name string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.files[name]; !ok {
		return filestore.ErrNotFound
	}
	delete(s.db.files, name)
	return nil
}

type memSink struct{ db *memDB }

func (s *memSink) Emit(_ context.Context, evt importjob.LifecycleEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.events = append(s.db.events, evt)
	return nil
}

type fakeFilters struct {
	eligible []reusablefilter.ReusableFilter
	missing  map[uuid.UUID]bool
	failing  map[uuid.UUID]error
	applied  []uuid.UUID
	onApply  func(filterID uuid.UUID)
}

func (f *fakeFilters) ListEligible(context.Context) ([]reusablefilter.ReusableFilter, error) {
	return f.eligible, nil
}

func (f *fakeFilters) ApplyByID(_ context.Context, filterID, _ uuid.UUID) (int64, error) {
	if f.onApply != nil {
		f.onApply(filterID)
	}
	if f.missing[filterID] {
		return 0, reusablefilter.ErrNotFound
	}
	if err := f.failing[filterID]; err != nil {
		return 0, err
	}
	f.applied = append(f.applied, filterID)
	return 3, nil
}

// --- harness ---

type harness struct {
	clock        *fakeClock
	db           *memDB
	imports      *memImports
	items        *memItems
	entities     *memEntities
	transactions *memTransactions
	mappings     *memMappings
	files        *memFiles
	filters      *fakeFilters
	svc          *ImportService
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	db := newMemDB(clock.Now)
	h := &harness{
		clock:        clock,
		db:           db,
		imports:      &memImports{db: db},
		items:        &memItems{db: db},
		entities:     &memEntities{db: db},
		transactions: &memTransactions{db: db},
		mappings:     &memMappings{db: db},
		files:        &memFiles{db: db},
		filters:      &fakeFilters{},
	}

	resolver := NewLinkedEntityResolver(h.entities)
	resolver.inSavepoint = db.tx
	processor := NewItemProcessor(h.items, opts.ErrorMaxBytes, nil)
	processor.inSavepoint = db.tx
	workflow := NewFilterWorkflow(h.imports, h.filters, nil)
	workflow.inTx = db.tx
	workflow.now = clock.Now

	h.svc = NewImportService(ImportServiceDeps{
		Imports:   h.imports,
		Items:     h.items,
		Entities:  h.entities,
		Files:     h.files,
		Handlers:  NewHandlerFactory(h.entities, h.transactions, h.mappings, resolver),
		Resolver:  NewUniqueIDResolver(h.items),
		Processor: processor,
		Workflow:  workflow,
		Links:     ledgerservices.NewImportLinkService(h.entities, h.transactions),
		Events:    &memSink{db: db},
	}, opts)
	h.svc.inTx = db.tx
	h.svc.now = clock.Now
	return h
}

func (h *harness) itemsOf(t *testing.T, id uuid.UUID, statuses ...importitem.Status) []importitem.Item {
	t.Helper()
	items, err := h.items.List(context.Background(), id, &importitem.FindParams{Statuses: statuses})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	return items
}

func (h *harness) importByID(t *testing.T, id uuid.UUID) importjob.Import {
	t.Helper()
	imp, err := h.imports.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get import: %v", err)
	}
	return imp
}

func (h *harness) eventsFor(id uuid.UUID) []importjob.LifecycleEvent {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	var out []importjob.LifecycleEvent
	for _, e := range h.db.events {
		if e.ImportID == id {
			out = append(out, e)
		}
	}
	return out
}
