package transaction

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrDuplicateUniqueID = errors.New("transaction with this unique id already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Transaction, error)
	Create(ctx context.Context, t Transaction) (Transaction, error)
	// ExistingUniqueIDs returns the subset of keys already used by stored transactions.
	ExistingUniqueIDs(ctx context.Context, keys []string) ([]string, error)
	ClearImport(ctx context.Context, importID uuid.UUID) (int64, error)
	CountByImport(ctx context.Context, importID uuid.UUID) (int64, error)
}
