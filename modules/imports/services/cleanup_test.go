package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
)

func TestImportService_ReprocessAfterFixingFile(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTransaction, "date,description,amount,account\n01/02/2024,Coffee,-3,Checking\n")
	require.Equal(t, importjob.StatusError, imp.Status())
	require.Len(t, h.itemsOf(t, imp.ID()), 1)

	require.NoError(t, h.files.Write(ctx, imp.Filename(), []byte("date,description,amount,account\n2024-02-01,Coffee,-3,Checking\n")))
	require.NoError(t, h.svc.Reprocess(ctx, imp.ID()))

	again := h.importByID(t, imp.ID())
	require.Equal(t, importjob.StatusProcessed, again.Status())
	require.Nil(t, again.ErrorInfo())
	items := h.itemsOf(t, imp.ID())
	require.Len(t, items, 1, "old items are replaced")
	require.Equal(t, importitem.StatusProcessed, items[0].Status())
}

func TestImportService_ReprocessGuards(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	done := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	runToComplete(t, h, done.ID())
	require.ErrorIs(t, h.svc.Reprocess(ctx, done.ID()), ErrHasImportedItems)
	require.Equal(t, importjob.StatusComplete, h.importByID(t, done.ID()).Status())
	require.Len(t, h.itemsOf(t, done.ID()), 3, "a rejected reprocess leaves items alone")

	busy := registerCSV(t, h, importjob.TypeTag, "title\nbusy\n")
	require.NoError(t, h.svc.Trigger(ctx, busy.ID()))
	claimed, err := h.imports.ClaimForImport(ctx, busy.ID())
	require.NoError(t, err)
	require.True(t, claimed)
	require.ErrorIs(t, h.svc.Reprocess(ctx, busy.ID()), ErrImportInProgress)
	require.Len(t, h.itemsOf(t, busy.ID()), 1)
}

func TestImportService_DeleteRequiresNoLinkedRows(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	runToComplete(t, h, imp.ID())

	ok, err := h.svc.CanDelete(ctx, imp.ID())
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, h.svc.Delete(ctx, imp.ID()), ErrHasLinkedEntities)

	require.NoError(t, h.svc.ForgetImport(ctx, imp.ID()))
	_, err = h.imports.GetByID(ctx, imp.ID())
	require.ErrorIs(t, err, importjob.ErrNotFound)
	require.Empty(t, h.itemsOf(t, imp.ID()))
	exists, err := h.files.Exists(ctx, imp.Filename())
	require.NoError(t, err)
	require.False(t, exists)

	require.Len(t, h.db.txns, 2, "ledger rows outlive the import")
	for _, tx := range h.db.txns {
		require.Nil(t, tx.ImportID())
	}
	account, err := h.entities.FindByTitle(ctx, entity.KindAccount, "checking")
	require.NoError(t, err)
	require.Nil(t, account.ImportID())

	ok, err = h.svc.CanDelete(ctx, imp.ID())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestImportService_DeleteUnlinkedImport(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTag, "title\nx\n")

	require.NoError(t, h.svc.Delete(ctx, imp.ID()))
	_, err := h.imports.GetByID(ctx, imp.ID())
	require.ErrorIs(t, err, importjob.ErrNotFound)
}

func TestImportService_ForgetRejectsImporting(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTag, "title\nx\n")
	require.NoError(t, h.svc.Trigger(ctx, imp.ID()))
	claimed, err := h.imports.ClaimForImport(ctx, imp.ID())
	require.NoError(t, err)
	require.True(t, claimed)

	require.ErrorIs(t, h.svc.ForgetImport(ctx, imp.ID()), ErrImportInProgress)
	require.ErrorIs(t, h.svc.Clean(ctx, imp.ID(), CleanOptions{Full: true}), ErrImportInProgress)
	require.Equal(t, importjob.StatusImporting, h.importByID(t, imp.ID()).Status())
}

func TestImportService_CleanKeepsImportedItems(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	imp := registerCSV(t, h, importjob.TypeTransaction, bankCSV)
	runToComplete(t, h, imp.ID())

	require.NoError(t, h.svc.Clean(ctx, imp.ID(), CleanOptions{}))
	require.Equal(t, importjob.StatusComplete, h.importByID(t, imp.ID()).Status())
	items := h.itemsOf(t, imp.ID())
	require.Len(t, items, 2)
	for _, it := range items {
		require.Equal(t, importitem.StatusImported, it.Status())
	}

	require.NoError(t, h.svc.Clean(ctx, imp.ID(), CleanOptions{Full: true}))
	_, err := h.imports.GetByID(ctx, imp.ID())
	require.ErrorIs(t, err, importjob.ErrNotFound)
}

func TestImportService_AutoCleanAllRespectsRetention(t *testing.T) {
	h := newHarness(t, Options{Retention: 30 * 24 * time.Hour})
	ctx := context.Background()
	autoClean := func(d *RegisterDTO) { d.AutoClean = true }

	kept := registerCSV(t, h, importjob.TypeTransaction, bankCSV, autoClean)
	runToComplete(t, h, kept.ID())
	dupes := registerCSV(t, h, importjob.TypeTransaction, bankCSV, autoClean)
	require.Equal(t, importjob.StatusComplete, dupes.Status())
	waiting := registerCSV(t, h, importjob.TypeTag, "title\nlater\n", autoClean)
	require.NoError(t, h.svc.Trigger(ctx, waiting.ID()))
	manual := registerCSV(t, h, importjob.TypeTag, "title\nmanual\n")

	n, err := h.svc.AutoCleanAll(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "nothing is past retention yet")

	h.clock.Advance(31 * 24 * time.Hour)
	n, err = h.svc.AutoCleanAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Len(t, h.itemsOf(t, kept.ID()), 2)
	require.Len(t, h.itemsOf(t, kept.ID(), importitem.StatusImported), 2)
	linked, err := h.transactions.CountByImport(ctx, kept.ID())
	require.NoError(t, err)
	require.EqualValues(t, 2, linked)

	_, err = h.imports.GetByID(ctx, dupes.ID())
	require.ErrorIs(t, err, importjob.ErrNotFound)
	exists, err := h.files.Exists(ctx, dupes.Filename())
	require.NoError(t, err)
	require.False(t, exists)

	require.Equal(t, importjob.StatusAwaitingImport, h.importByID(t, waiting.ID()).Status())
	require.Len(t, h.itemsOf(t, manual.ID()), 1)
}
