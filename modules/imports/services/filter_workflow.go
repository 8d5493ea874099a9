package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/logging"
)

// FilterApplier is the reusable-filter collaborator of the workflow.
type FilterApplier interface {
	ListEligible(ctx context.Context) ([]reusablefilter.ReusableFilter, error)
	ApplyByID(ctx context.Context, filterID, importID uuid.UUID) (int64, error)
}

// FilterWorkflow applies the post-import filters of one import, one filter per transaction,
// keeping its progress in the import's checkpoint.
type FilterWorkflow struct {
	imports importjob.Repository
	filters FilterApplier
	log     *logrus.Entry
	m       *metrics

	inTx func(ctx context.Context, fn func(context.Context) error) error
	now  func() time.Time
}

func NewFilterWorkflow(imports importjob.Repository, filters FilterApplier, log *logrus.Entry) *FilterWorkflow {
	if log == nil {
		log = logging.Nop()
	}
	return &FilterWorkflow{
		imports: imports,
		filters: filters,
		log:     log,
		m:       getMetrics(),
		inTx:    composables.InTx,
		now:     time.Now,
	}
}

// Run starts or resumes the workflow. On ErrFilterDeadline the checkpoint stays stored.
func (w *FilterWorkflow) Run(ctx context.Context, importID uuid.UUID, deadline time.Time) error {
	ctx, span := tracer.Start(ctx, "imports.FilterWorkflow.Run")
	defer span.End()
	span.SetAttributes(attribute.String("import.id", importID.String()))

	imp, err := w.imports.GetByID(ctx, importID)
	if err != nil {
		return err
	}
	if imp.Checkpoint() == nil {
		filters, err := w.filters.ListEligible(ctx)
		if err != nil {
			return fmt.Errorf("list eligible filters: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(filters))
		for _, f := range filters {
			ids = append(ids, f.ID())
		}
		if err := w.imports.SetCheckpoint(ctx, importID, importjob.NewCheckpoint(ids, w.now())); err != nil {
			return fmt.Errorf("write checkpoint: %w", err)
		}
	}

	for {
		imp, err := w.imports.GetByID(ctx, importID)
		if err != nil {
			return err
		}
		cp := imp.Checkpoint()
		filterID, ok := cp.Next()
		if !ok {
			break
		}

		if err := w.inTx(ctx, func(txCtx context.Context) error {
			n, err := w.filters.ApplyByID(txCtx, filterID, importID)
			switch {
			case errors.Is(err, reusablefilter.ErrNotFound):
				w.log.WithField("filter_id", filterID).Info("filter removed during workflow, skipping")
				w.m.filtersApplied.WithLabelValues("skipped").Inc()
			case err != nil:
				return fmt.Errorf("apply filter %s: %w", filterID, err)
			default:
				w.m.filtersApplied.WithLabelValues("applied").Inc()
				w.m.rowsAffectedTotal.Add(float64(n))
			}
			return w.imports.SetCheckpoint(txCtx, importID, cp.Advance(filterID))
		}); err != nil {
			return err
		}

		if w.now().After(deadline) {
			return ErrFilterDeadline
		}
	}

	return w.imports.SetCheckpoint(ctx, importID, nil)
}
