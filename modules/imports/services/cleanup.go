package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/pkg/filestore"
)

type CleanOptions struct {
	// Full forgets the import even when some of its items were imported.
	Full bool
}

// Reprocess discards the items of an import that never reached the ledger and processes the file again.
func (s *ImportService) Reprocess(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(txCtx context.Context) error {
		imp, err := s.imports.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if imp.Status() == importjob.StatusImporting {
			return ErrImportInProgress
		}
		counts, err := s.items.CountByStatus(txCtx, id)
		if err != nil {
			return err
		}
		if n := counts[importitem.StatusImported]; n > 0 {
			return fmt.Errorf("%w: %d items imported", ErrHasImportedItems, n)
		}
		if _, err := s.items.DeleteByImport(txCtx, id); err != nil {
			return err
		}
		reset, err := s.imports.ResetForReprocess(txCtx, id)
		if err != nil {
			return err
		}
		if !reset {
			return ErrImportInProgress
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.m.transitionsTotal.WithLabelValues(string(importjob.StatusCreated)).Inc()
	s.log.WithField("import_id", id).Info("import reset for reprocessing")
	return s.Process(ctx, id)
}

// ForgetImport detaches every ledger row from the import and removes the import with its items and file.
func (s *ImportService) ForgetImport(ctx context.Context, id uuid.UUID) error {
	var (
		filename string
		cleared  int64
	)
	err := s.inTx(ctx, func(txCtx context.Context) error {
		imp, err := s.imports.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if imp.Status() == importjob.StatusImporting {
			return ErrImportInProgress
		}
		filename = imp.Filename()
		if cleared, err = s.links.ClearImport(txCtx, id); err != nil {
			return err
		}
		if _, err := s.items.DeleteByImport(txCtx, id); err != nil {
			return err
		}
		deleted, err := s.imports.Delete(txCtx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrImportInProgress
		}
		return nil
	})
	if err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{"import_id": id, "ledger_rows_detached": cleared})
	if err := s.files.Delete(ctx, filename); err != nil && !errors.Is(err, filestore.ErrNotFound) {
		log.WithError(err).Warn("import forgotten but its file could not be removed")
	}
	log.Info("import forgotten")
	return nil
}

// CanDelete reports whether no ledger row references the import.
func (s *ImportService) CanDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := s.links.CountByImport(ctx, id)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *ImportService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.CanDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHasLinkedEntities
	}
	return s.ForgetImport(ctx, id)
}

// Clean forgets an import that produced nothing, or trims it down to its imported items.
func (s *ImportService) Clean(ctx context.Context, id uuid.UUID, opts CleanOptions) error {
	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if imp.Status() == importjob.StatusImporting {
		return ErrImportInProgress
	}
	counts, err := s.items.CountByStatus(ctx, id)
	if err != nil {
		return err
	}
	if opts.Full || counts[importitem.StatusImported] == 0 {
		return s.ForgetImport(ctx, id)
	}
	removed, err := s.items.DeleteNotImported(ctx, id)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"import_id": id, "items_removed": removed}).Info("import cleaned")
	return nil
}

// AutoCleanAll cleans every autoClean import older than the retention window. It keeps going
// past individual failures and returns them joined.
func (s *ImportService) AutoCleanAll(ctx context.Context) (int, error) {
	candidates, err := s.imports.ListAutoCleanCandidates(ctx, s.now().Add(-s.opts.Retention))
	if err != nil {
		return 0, err
	}
	var (
		cleaned int
		errs    []error
	)
	for _, imp := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Clean(ctx, imp.ID(), CleanOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("clean %s: %w", imp.ID(), err))
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		s.m.autoCleanedTotal.Add(float64(cleaned))
	}
	return cleaned, errors.Join(errs...)
}
