package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
)

const bankCSV = "date,description,amount,account,uniqueId\n" +
	"2024-02-01,Coffee,-3.50,Checking,tx-1\n" +
	"2024-02-02,Salary,\"1,500.00\",Checking,tx-2\n" +
	"2024-02-03,,12,Checking,tx-3\n"

func registerCSV(t *testing.T, h *harness, typ importjob.Type, content string, mods ...func(*RegisterDTO)) importjob.Import {
	t.Helper()
	dto := &RegisterDTO{Filename: "upload.csv", Content: []byte(content), Type: string(typ)}
	for _, m := range mods {
		m(dto)
	}
	imp, err := h.svc.Register(context.Background(), dto)
	require.NoError(t, err)
	return imp
}

func runToComplete(t *testing.T, h *harness, id uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.svc.Trigger(ctx, id))
	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, importjob.StatusComplete, h.importByID(t, id).Status())
}

func TestImportService_RegisterStoresFileAndProcesses(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction, bankCSV, func(d *RegisterDTO) {
		d.Filename = `C:\exports\bank.csv`
	})

	require.Equal(t, importjob.StatusProcessed, imp.Status())
	require.Equal(t, importjob.SourceCSV, imp.Source())
	require.Equal(t, imp.ID().String()+"/bank.csv", imp.Filename())
	_, err := h.files.ReadToString(context.Background(), imp.Filename())
	require.NoError(t, err)

	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusProcessed), 2)
	bad := h.itemsOf(t, imp.ID(), importitem.StatusError)
	require.Len(t, bad, 1)
	require.NotNil(t, bad[0].ErrorInfo())
	require.Contains(t, bad[0].ErrorInfo().Errors[0], "description")
	require.Nil(t, bad[0].UniqueID())

	var dto transaction.CreateDTO
	salary := h.itemsOf(t, imp.ID(), importitem.StatusProcessed)[1]
	require.NoError(t, json.Unmarshal(salary.ProcessedInfo(), &dto))
	require.Equal(t, transaction.Amount("1500.00"), dto.Amount)
	require.Equal(t, "tx-2", *salary.UniqueID())

	require.Empty(t, h.eventsFor(imp.ID()), "processed is not a terminal status")
}

func TestImportService_RegisterRejectsInvalidRequests(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.svc.Register(ctx, &RegisterDTO{Filename: "x.csv", Type: string(importjob.TypeMappedImport)})
	require.ErrorIs(t, err, ErrInvalidRegister)

	_, err = h.svc.Register(ctx, &RegisterDTO{Filename: "x.csv", Type: "invoice"})
	require.ErrorIs(t, err, ErrInvalidRegister)

	_, err = h.svc.Register(ctx, &RegisterDTO{Filename: " ", Type: string(importjob.TypeTag)})
	require.ErrorIs(t, err, ErrInvalidRegister)
}

func TestImportService_RegisterProgrammaticRows(t *testing.T) {
	h := newHarness(t, Options{})
	imp, err := h.svc.Register(context.Background(), &RegisterDTO{
		Filename: "generated",
		Type:     string(importjob.TypeCategory),
		Rows: []map[string]any{
			{"title": "Groceries"},
			{"title": "Rent", "type": "housing"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, importjob.SourceJSON, imp.Source())
	require.Equal(t, importjob.StatusProcessed, imp.Status())
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusProcessed), 2)
}

func TestImportService_EmptyFileCompletes(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction, "date,description,amount,account\n")

	require.Equal(t, importjob.StatusComplete, imp.Status())
	events := h.eventsFor(imp.ID())
	require.Len(t, events, 1)
	require.Equal(t, importjob.StatusComplete, events[0].Status)
}

func TestImportService_AllRowsInvalidFails(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction,
		"date,description,amount,account\nnot-a-date,Coffee,abc,Checking\n")

	require.Equal(t, importjob.StatusError, imp.Status())
	require.NotNil(t, imp.ErrorInfo())
	require.NotEmpty(t, imp.ErrorInfo().Errors)
	require.Equal(t, importjob.StatusError, h.eventsFor(imp.ID())[0].Status)
}

func TestImportService_ParseFailureMarksImportErrored(t *testing.T) {
	h := newHarness(t, Options{})
	imp, err := h.svc.Register(context.Background(), &RegisterDTO{
		Filename: "rows.json",
		Content:  []byte(`{"not": "an array"}`),
		Type:     string(importjob.TypeTag),
	})
	require.Error(t, err)
	require.Equal(t, importjob.StatusError, imp.Status())
	require.Contains(t, imp.ErrorInfo().Message, "decode json rows")
}

func TestImportService_FullLifecycle(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTransaction, bankCSV)

	err := h.svc.DoImport(ctx, imp.ID())
	require.ErrorIs(t, err, ErrNotClaimed, "processed imports must be triggered first")

	runToComplete(t, h, imp.ID())

	imported := h.itemsOf(t, imp.ID(), importitem.StatusImported)
	require.Len(t, imported, 2)
	for _, it := range imported {
		require.NotNil(t, it.RelationID())
		tx, err := h.transactions.GetByID(ctx, *it.RelationID())
		require.NoError(t, err)
		require.Equal(t, imp.ID(), *tx.ImportID())
		require.Equal(t, it.ID(), *tx.ImportDetailID())
	}

	accounts, err := h.entities.List(ctx, entity.KindAccount, nil)
	require.NoError(t, err)
	require.Len(t, accounts, 1, "both rows share the Checking account")
	require.Equal(t, imp.ID(), *accounts[0].ImportID())

	events := h.eventsFor(imp.ID())
	require.Len(t, events, 1)
	require.Equal(t, importjob.TopicImportCompleted, importjob.TopicFor(events[0].Status))
	require.Equal(t, 2, events[0].Imported)
	require.Nil(t, h.importByID(t, imp.ID()).Checkpoint())
}

func TestImportService_TriggerRequiresProcessed(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction, "date,description,amount,account\n")

	err := h.svc.Trigger(context.Background(), imp.ID())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, importjob.StatusComplete, h.importByID(t, imp.ID()).Status())
}

func TestImportService_ReimportIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	first := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	runToComplete(t, h, first.ID())

	second := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	require.Equal(t, importjob.StatusComplete, second.Status(), "duplicates take precedence over errors")
	require.Len(t, h.itemsOf(t, second.ID(), importitem.StatusDuplicate), 2)
	require.Len(t, h.itemsOf(t, second.ID(), importitem.StatusError), 1)

	n, err := h.transactions.CountByImport(context.Background(), second.ID())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, h.db.txns, 2)
}

func TestImportService_DuplicatesAgainstPendingImports(t *testing.T) {
	h := newHarness(t, Options{})
	first := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	require.Equal(t, importjob.StatusProcessed, first.Status())

	second := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	require.Len(t, h.itemsOf(t, second.ID(), importitem.StatusDuplicate), 2)

	third := registerCSV(t, h, importjob.TypeTransaction, bankCSV, func(d *RegisterDTO) {
		d.CheckImportedOnly = true
	})
	require.Len(t, h.itemsOf(t, third.ID(), importitem.StatusProcessed), 2,
		"checkImportedOnly ignores items that never reached the ledger")
}

func TestImportService_DuplicateWithinFile(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction,
		"date,description,amount,account,uniqueId\n"+
			"2024-02-01,Coffee,-3.50,Checking,tx-9\n"+
			"2024-02-01,Coffee again,-3.50,Checking,tx-9\n"+
			"2024-02-01,No id,-1,Checking,\n")

	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusProcessed), 2)
	dup := h.itemsOf(t, imp.ID(), importitem.StatusDuplicate)
	require.Len(t, dup, 1)
	require.Equal(t, "tx-9", *dup[0].UniqueID())
}

func TestImportService_EntityDedupIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.entities.Create(ctx, entity.New(entity.KindTag, "Travel"))
	require.NoError(t, err)

	imp := registerCSV(t, h, importjob.TypeTag, "title\ntravel\nWork\nwork\n")
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusProcessed), 1)
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusDuplicate), 2)
}

func TestImportService_ItemFailuresAreIsolated(t *testing.T) {
	h := newHarness(t, Options{})
	h.db.beforeEntityCreate = func(e entity.Entity) error {
		switch e.Title() {
		case "Boom":
			panic("kaboom")
		case "Broken":
			return errors.New("disk full")
		}
		return nil
	}
	imp := registerCSV(t, h, importjob.TypeAccount, "title,type\nChecking,\nBoom,\nSavings,savings\nBroken,\n")
	runToComplete(t, h, imp.ID())

	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusImported), 2)
	failed := h.itemsOf(t, imp.ID(), importitem.StatusImportError)
	require.Len(t, failed, 2)

	boom := failed[0].ErrorInfo()
	require.Contains(t, boom.Message, "kaboom")
	require.Contains(t, boom.Stack, "goroutine")
	require.Contains(t, failed[1].ErrorInfo().Message, "disk full")

	titles := map[string]bool{}
	for _, e := range h.db.entities {
		titles[e.Title()] = true
	}
	require.Equal(t, map[string]bool{"Checking": true, "Savings": true}, titles)

	events := h.eventsFor(imp.ID())
	require.Equal(t, 2, events[len(events)-1].Failed)
}

func TestImportService_LinkedEntityFailureIsItemError(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, err := h.entities.Create(ctx, entity.New(entity.KindAccount, "Closed", entity.WithStatus(entity.StatusDisabled)))
	require.NoError(t, err)

	imp := registerCSV(t, h, importjob.TypeTransaction,
		"date,description,amount,account,uniqueId\n"+
			"2024-02-01,Fee,-1,Closed,f-1\n"+
			"2024-02-02,Fee,-1,Open,f-2\n")
	runToComplete(t, h, imp.ID())

	failed := h.itemsOf(t, imp.ID(), importitem.StatusImportError)
	require.Len(t, failed, 1)
	require.Equal(t, ErrLinkedInactive.Code, failed[0].ErrorInfo().Code)
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusImported), 1)
}

func TestImportService_SingleFlight(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	a := registerCSV(t, h, importjob.TypeTag, "title\nA\n")
	b := registerCSV(t, h, importjob.TypeTag, "title\nB\n")
	require.NoError(t, h.svc.Trigger(ctx, a.ID()))
	require.NoError(t, h.svc.Trigger(ctx, b.ID()))

	claimed, err := h.imports.ClaimForImport(ctx, a.ID())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, importjob.StatusAwaitingImport, h.importByID(t, b.ID()).Status())

	require.ErrorIs(t, h.svc.DoImport(ctx, b.ID()), ErrNotClaimed)
	require.Equal(t, importjob.StatusAwaitingImport, h.importByID(t, b.ID()).Status())
	require.Empty(t, h.itemsOf(t, b.ID(), importitem.StatusImported))
}

func TestImportService_SecondTickWaitsForRunningImport(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	a := registerCSV(t, h, importjob.TypeTag, "title\nA\n")
	b := registerCSV(t, h, importjob.TypeTag, "title\nB\n")
	require.NoError(t, h.svc.Trigger(ctx, a.ID()))
	require.NoError(t, h.svc.Trigger(ctx, b.ID()))

	h.filters.eligible = eligibleFilters(t, "post")
	nested := 0
	h.filters.onApply = func(uuid.UUID) {
		if nested > 0 {
			return
		}
		nested++
		// a second driver tick while A is still importing
		require.NoError(t, h.svc.DoRequiredImports(ctx))
		require.Equal(t, importjob.StatusImporting, h.importByID(t, a.ID()).Status())
		require.Equal(t, importjob.StatusAwaitingImport, h.importByID(t, b.ID()).Status())
		require.Empty(t, h.itemsOf(t, b.ID(), importitem.StatusImported))
	}

	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, 1, nested)
	require.Equal(t, importjob.StatusComplete, h.importByID(t, a.ID()).Status())
	require.Equal(t, importjob.StatusAwaitingImport, h.importByID(t, b.ID()).Status())

	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, importjob.StatusComplete, h.importByID(t, b.ID()).Status())
}

func TestImportService_WatchdogFailsStaleImport(t *testing.T) {
	h := newHarness(t, Options{Timeout: 5 * time.Minute, WatchdogTimeout: 15 * time.Minute})
	ctx := context.Background()
	stuck := registerCSV(t, h, importjob.TypeTag, "title\nA\n")
	next := registerCSV(t, h, importjob.TypeTag, "title\nB\n")
	require.NoError(t, h.svc.Trigger(ctx, stuck.ID()))
	require.NoError(t, h.svc.Trigger(ctx, next.ID()))
	claimed, err := h.imports.ClaimForImport(ctx, stuck.ID())
	require.NoError(t, err)
	require.True(t, claimed)

	h.clock.Advance(10 * time.Minute)
	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, importjob.StatusImporting, h.importByID(t, stuck.ID()).Status())

	h.clock.Advance(6 * time.Minute)
	require.NoError(t, h.svc.DoRequiredImports(ctx))

	failed := h.importByID(t, stuck.ID())
	require.Equal(t, importjob.StatusError, failed.Status())
	require.Equal(t, "Import Timed Out", failed.ErrorInfo().Message)
	events := h.eventsFor(stuck.ID())
	require.Len(t, events, 1)
	require.Equal(t, importjob.StatusError, events[0].Status)

	require.Equal(t, importjob.StatusComplete, h.importByID(t, next.ID()).Status(),
		"the tick that clears a stale import claims the next one")
}

func TestImportService_AutoProcessRunsInOneTick(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeBudget, "title\nHolidays\n", func(d *RegisterDTO) {
		d.AutoProcess = true
	})
	require.Equal(t, importjob.StatusProcessed, imp.Status())

	require.NoError(t, h.svc.DoRequiredImports(context.Background()))
	require.Equal(t, importjob.StatusComplete, h.importByID(t, imp.ID()).Status())

	budgets, err := h.entities.List(context.Background(), entity.KindBudget, nil)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	require.Equal(t, "expense", budgets[0].Type())
}

func TestImportService_DriverProcessesLeftoverCreated(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	draft := importjob.New("", importjob.SourceCSV, importjob.TypeTag)
	draft = draft.WithFilename(storedName(draft.ID(), "tags.csv"))
	require.NoError(t, h.files.Write(ctx, draft.Filename(), []byte("title\nx\n")))
	_, err := h.imports.Create(ctx, draft)
	require.NoError(t, err)

	require.NoError(t, h.svc.DoRequiredImports(ctx))
	require.Equal(t, importjob.StatusProcessed, h.importByID(t, draft.ID()).Status())
}

func TestImportService_ImportDeadlineRollsBackBatch(t *testing.T) {
	h := newHarness(t, Options{Timeout: 10 * time.Minute, WatchdogTimeout: time.Hour})
	h.db.beforeEntityCreate = func(entity.Entity) error {
		h.clock.Advance(6 * time.Minute)
		return nil
	}
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeLabel, "title\none\ntwo\nthree\n")
	require.NoError(t, h.svc.Trigger(ctx, imp.ID()))

	err := h.svc.DoRequiredImports(ctx)
	require.ErrorIs(t, err, ErrImportDeadline)

	failed := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusError, failed.Status())
	require.Equal(t, ErrImportDeadline.Code, failed.ErrorInfo().Code)
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusProcessed), 3, "item results roll back with the batch")
	require.Empty(t, h.db.entities)
	require.Nil(t, failed.Checkpoint(), "filters never started")
}

func TestImportService_LastItemPastDeadlineFails(t *testing.T) {
	h := newHarness(t, Options{Timeout: time.Minute, WatchdogTimeout: time.Hour})
	h.db.beforeEntityCreate = func(entity.Entity) error {
		h.clock.Advance(time.Hour)
		return nil
	}
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeLabel, "title\nonly\n")
	require.NoError(t, h.svc.Trigger(ctx, imp.ID()))

	require.ErrorIs(t, h.svc.DoRequiredImports(ctx), ErrImportDeadline)
	failed := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusError, failed.Status())
	require.Equal(t, ErrImportDeadline.Code, failed.ErrorInfo().Code)
	require.Empty(t, h.db.entities)
}

func TestImportService_OnlyFilterPastDeadlineFails(t *testing.T) {
	h := newHarness(t, Options{Timeout: time.Minute, WatchdogTimeout: time.Hour})
	h.filters.eligible = eligibleFilters(t, "only")
	h.filters.onApply = func(uuid.UUID) { h.clock.Advance(time.Hour) }
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeLabel, "title\nonly\n")
	require.NoError(t, h.svc.Trigger(ctx, imp.ID()))

	require.ErrorIs(t, h.svc.DoRequiredImports(ctx), ErrFilterDeadline)
	failed := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusError, failed.Status())
	require.Equal(t, ErrFilterDeadline.Code, failed.ErrorInfo().Code)
	require.NotNil(t, failed.Checkpoint())

	h.filters.onApply = nil
	require.NoError(t, h.svc.ResumeFilters(ctx, imp.ID()))
	require.Equal(t, importjob.StatusComplete, h.importByID(t, imp.ID()).Status())
	require.Len(t, h.filters.applied, 1, "resume does not re-apply a finished filter")
}

func TestImportService_RegisterRemovesFileWhenInsertFails(t *testing.T) {
	h := newHarness(t, Options{})
	h.db.createImportErr = errors.New("connection reset")

	_, err := h.svc.Register(context.Background(), &RegisterDTO{
		Filename: "tags.csv",
		Content:  []byte("title\nx\n"),
		Type:     string(importjob.TypeTag),
	})
	require.ErrorContains(t, err, "connection reset")

	names, err := h.files.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, names)
}

func eligibleFilters(t *testing.T, titles ...string) []reusablefilter.ReusableFilter {
	t.Helper()
	out := make([]reusablefilter.ReusableFilter, 0, len(titles))
	for i, title := range titles {
		out = append(out, reusablefilter.New(title, reusablefilter.Criteria{},
			reusablefilter.WithApplyFollowingImport(true),
			reusablefilter.WithPosition(i),
		))
	}
	return out
}

func TestImportService_FilterDeadlineKeepsCheckpointAndResumes(t *testing.T) {
	h := newHarness(t, Options{Timeout: 10 * time.Minute, WatchdogTimeout: time.Hour})
	h.filters.eligible = eligibleFilters(t, "f1", "f2", "f3")
	h.filters.onApply = func(uuid.UUID) { h.clock.Advance(6 * time.Minute) }
	ids := []uuid.UUID{h.filters.eligible[0].ID(), h.filters.eligible[1].ID(), h.filters.eligible[2].ID()}
	ctx := context.Background()

	imp := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	require.NoError(t, h.svc.Trigger(ctx, imp.ID()))
	require.ErrorIs(t, h.svc.DoRequiredImports(ctx), ErrFilterDeadline)

	failed := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusError, failed.Status())
	cp := failed.Checkpoint()
	require.NotNil(t, cp)
	require.Equal(t, 3, cp.Count)
	require.Equal(t, 2, cp.Complete)
	require.Equal(t, ids[:2], cp.CompleteIDs)
	require.Equal(t, ids[2:], cp.IDs)
	require.Equal(t, ids[:2], h.filters.applied)
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusImported), 2, "committed items survive a filter failure")

	require.NoError(t, h.svc.ResumeFilters(ctx, imp.ID()))
	done := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusComplete, done.Status())
	require.Nil(t, done.Checkpoint())
	require.Equal(t, ids, h.filters.applied, "each filter runs exactly once")

	events := h.eventsFor(imp.ID())
	require.Len(t, events, 2)
	require.Equal(t, importjob.StatusError, events[0].Status)
	require.Equal(t, importjob.StatusComplete, events[1].Status)
}

func TestImportService_ResumeFiltersRequiresCheckpoint(t *testing.T) {
	h := newHarness(t, Options{})
	imp := registerCSV(t, h, importjob.TypeTransaction, "date,description,amount,account\nbad,,x,\n")
	require.Equal(t, importjob.StatusError, imp.Status())
	require.ErrorIs(t, h.svc.ResumeFilters(context.Background(), imp.ID()), ErrInvalidTransition)
}

func TestImportService_MappedImportSkipsPreamble(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	mapping, err := h.mappings.Create(ctx, importmapping.New("acme", importmapping.Config{
		SkipRows:          2,
		DateColumn:        "Posted",
		DateFormat:        "02/01/2006",
		DescriptionColumn: "Details",
		CreditColumn:      "Credit",
		DebitColumn:       "Debit",
		AccountTitle:      "ACME Current",
		UniqueIDColumns:   []string{"Posted", "Ref"},
	}))
	require.NoError(t, err)

	content := "\"Statement for account 4411, generated by ACME Bank\n" +
		"Period: 01/02/2024 - 29/02/2024\n" +
		"Posted,Details,Credit,Debit,Ref\n" +
		"05/02/2024,Groceries,,42.10,A1\n" +
		"07/02/2024,Refund,\"1,010.00\",,A2\n"
	id := mapping.ID()
	imp := registerCSV(t, h, importjob.TypeMappedImport, content, func(d *RegisterDTO) {
		d.MappingID = &id
	})
	require.Equal(t, importjob.StatusProcessed, imp.Status())

	items := h.itemsOf(t, imp.ID(), importitem.StatusProcessed)
	require.Len(t, items, 2)
	require.Equal(t, "05/02/2024|A1", *items[0].UniqueID())

	var dto transaction.CreateDTO
	require.NoError(t, json.Unmarshal(items[0].ProcessedInfo(), &dto))
	require.Equal(t, "2024-02-05", dto.Date)
	require.Equal(t, "ACME Current", dto.Account.Title)
	require.True(t, decimal.RequireFromString("-42.10").Equal(decimal.RequireFromString(string(dto.Amount))))

	require.NoError(t, json.Unmarshal(items[1].ProcessedInfo(), &dto))
	require.True(t, decimal.RequireFromString("1010").Equal(decimal.RequireFromString(string(dto.Amount))))

	runToComplete(t, h, imp.ID())
	require.Len(t, h.itemsOf(t, imp.ID(), importitem.StatusImported), 2)
}
