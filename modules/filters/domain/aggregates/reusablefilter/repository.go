package reusablefilter

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("reusable filter not found")

type FindParams struct {
	ApplyFollowingImport *bool
	Limit                int
	Offset               int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (ReusableFilter, error)
	// List orders by position, then creation time.
	List(ctx context.Context, params *FindParams) ([]ReusableFilter, error)
	Create(ctx context.Context, f ReusableFilter) (ReusableFilter, error)
	Update(ctx context.Context, f ReusableFilter) (ReusableFilter, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Apply writes the filter's change onto the matching journal entries of importID.
	Apply(ctx context.Context, f ReusableFilter, importID uuid.UUID) (int64, error)
}
