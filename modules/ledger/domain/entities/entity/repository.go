package entity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("entity not found")
	ErrTitleTaken = errors.New("entity title already exists")
)

type FindParams struct {
	Statuses []Status
	Limit    int
	Offset   int
}

type Repository interface {
	GetByID(ctx context.Context, kind Kind, id uuid.UUID) (Entity, error)
	// FindByTitle matches case-insensitively and returns ErrNotFound when absent.
	FindByTitle(ctx context.Context, kind Kind, title string) (Entity, error)
	List(ctx context.Context, kind Kind, params *FindParams) ([]Entity, error)
	Create(ctx context.Context, e Entity) (Entity, error)
	// ClearImport nulls the import references of every row of kind tagged with importID.
	ClearImport(ctx context.Context, kind Kind, importID uuid.UUID) (int64, error)
	CountByImport(ctx context.Context, kind Kind, importID uuid.UUID) (int64, error)
}
