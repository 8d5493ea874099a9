package importmapping

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("import mapping not found")
	ErrTitleTaken = errors.New("import mapping title already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Mapping, error)
	GetByTitle(ctx context.Context, title string) (Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	Create(ctx context.Context, m Mapping) (Mapping, error)
}
