package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/composables"
)

type resolveOptions struct {
	allowInactive  bool
	importID       uuid.UUID
	importDetailID uuid.UUID
}

type ResolveOption func(*resolveOptions)

// WithAllowInactive accepts disabled entities.
func WithAllowInactive() ResolveOption {
	return func(o *resolveOptions) { o.allowInactive = true }
}

// WithImportTag tags entities created by the resolver with the originating import and item detail.
func WithImportTag(importID, detailID uuid.UUID) ResolveOption {
	return func(o *resolveOptions) {
		o.importID = importID
		o.importDetailID = detailID
	}
}

// LinkedEntityResolver turns a Ref into an entity, creating missing ones by title.
type LinkedEntityResolver struct {
	repo        entity.Repository
	inSavepoint func(ctx context.Context, fn func(context.Context) error) error
}

func NewLinkedEntityResolver(repo entity.Repository) *LinkedEntityResolver {
	return &LinkedEntityResolver{
		repo:        repo,
		inSavepoint: composables.InSavepoint,
	}
}

// CreateOrGet resolves ref. It returns nil, nil for an empty ref. cache is only read.
func (r *LinkedEntityResolver) CreateOrGet(
	ctx context.Context,
	kind entity.Kind,
	ref entity.Ref,
	cache []entity.Entity,
	opts ...ResolveOption,
) (*entity.Entity, error) {
	o := resolveOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if ref.ID != nil {
		e, err := r.repo.GetByID(ctx, kind, *ref.ID)
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrLinkedNotFound, kind, *ref.ID)
		}
		if err != nil {
			return nil, err
		}
		return checkActive(e, o)
	}

	title := strings.TrimSpace(ref.Title)
	if title == "" {
		return nil, nil
	}

	for _, e := range cache {
		if e.Kind() == kind && e.TitleMatches(title) {
			return checkActive(e, o)
		}
	}

	e, err := r.repo.FindByTitle(ctx, kind, title)
	if err == nil {
		return checkActive(e, o)
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}

	var createOpts []entity.Option
	if o.importID != uuid.Nil {
		createOpts = append(createOpts, entity.WithImport(o.importID, o.importDetailID))
	}
	// a concurrent writer may win the title; the savepoint keeps the transaction usable for the re-read
	var created entity.Entity
	err = r.inSavepoint(ctx, func(ctx context.Context) error {
		var err error
		created, err = r.repo.Create(ctx, entity.New(kind, title, createOpts...))
		return err
	})
	if errors.Is(err, entity.ErrTitleTaken) {
		existing, findErr := r.repo.FindByTitle(ctx, kind, title)
		if findErr != nil {
			return nil, findErr
		}
		return checkActive(existing, o)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func checkActive(e entity.Entity, o resolveOptions) (*entity.Entity, error) {
	if !o.allowInactive && !e.Active() {
		return nil, fmt.Errorf("%w: %s %q", ErrLinkedInactive, e.Kind(), e.Title())
	}
	return &e, nil
}
