package importjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
)

var ErrNotFound = errors.New("import not found")

type FindParams struct {
	Statuses []Status
	Limit    int
	Offset   int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Import, error)
	List(ctx context.Context, params *FindParams) ([]Import, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, imp Import) (Import, error)
	// Delete removes the import unless it is importing. It reports whether a row was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// SetStatus writes status and errorInfo unconditionally and bumps updatedAt.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, info *errorinfo.ErrorInfo) error
	// TransitionStatus writes status only when the row is still in from. It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, info *errorinfo.ErrorInfo) (bool, error)
	// ClaimForImport moves awaitingImport to importing when no other import is importing.
	ClaimForImport(ctx context.Context, id uuid.UUID) (bool, error)
	// ResetForReprocess puts a non-importing import back into created with no error and no checkpoint.
	ResetForReprocess(ctx context.Context, id uuid.UUID) (bool, error)

	SetCheckpoint(ctx context.Context, id uuid.UUID, cp *Checkpoint) error

	// PromoteAutoProcess moves processed imports flagged autoProcess to awaitingImport.
	PromoteAutoProcess(ctx context.Context) ([]uuid.UUID, error)
	// FailStale moves importing imports last updated before cutoff to error.
	FailStale(ctx context.Context, cutoff time.Time, info *errorinfo.ErrorInfo) ([]uuid.UUID, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	// NextAwaiting returns the oldest awaitingImport import or ErrNotFound.
	NextAwaiting(ctx context.Context) (Import, error)
	// ListAutoCleanCandidates returns autoClean imports created before cutoff that are neither importing nor awaitingImport.
	ListAutoCleanCandidates(ctx context.Context, cutoff time.Time) ([]Import, error)
}
