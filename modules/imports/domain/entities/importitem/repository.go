package importitem

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
)

var ErrNotFound = errors.New("import item detail not found")

// SeenStatuses are the item statuses that count as "already seen" for duplicate detection.
var SeenStatuses = []Status{StatusProcessed, StatusDuplicate, StatusImportError, StatusImported}

type FindParams struct {
	Statuses []Status
	Limit    int
	Offset   int
}

type Repository interface {
	CreateMany(ctx context.Context, items []Item) error
	List(ctx context.Context, importID uuid.UUID, params *FindParams) ([]Item, error)
	CountByStatus(ctx context.Context, importID uuid.UUID) (StatusCounts, error)
	SetResult(ctx context.Context, id uuid.UUID, status Status, relationID *uuid.UUID, info *errorinfo.ErrorInfo) error
	// ExistingUniqueIDs returns the keys carried by items of other imports in SeenStatuses.
	ExistingUniqueIDs(ctx context.Context, keys []string, excludeImportID uuid.UUID) ([]string, error)
	DeleteByImport(ctx context.Context, importID uuid.UUID) (int64, error)
	DeleteNotImported(ctx context.Context, importID uuid.UUID) (int64, error)
}
