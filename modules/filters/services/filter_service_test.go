package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
)

type memFilterRepo struct {
	items   map[uuid.UUID]reusablefilter.ReusableFilter
	order   []uuid.UUID
	applied []uuid.UUID
}

func newMemFilterRepo() *memFilterRepo {
	return &memFilterRepo{items: map[uuid.UUID]reusablefilter.ReusableFilter{}}
}

func (r *memFilterRepo) GetByID(_ context.Context, id uuid.UUID) (reusablefilter.ReusableFilter, error) {
	f, ok := r.items[id]
	if !ok {
		return reusablefilter.ReusableFilter{}, reusablefilter.ErrNotFound
	}
	return f, nil
}

func (r *memFilterRepo) List(_ context.Context, params *reusablefilter.FindParams) ([]reusablefilter.ReusableFilter, error) {
	var out []reusablefilter.ReusableFilter
	for _, id := range r.order {
		f, ok := r.items[id]
		if !ok {
			continue
		}
		if params != nil && params.ApplyFollowingImport != nil && f.ApplyFollowingImport() != *params.ApplyFollowingImport {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *memFilterRepo) Create(_ context.Context, f reusablefilter.ReusableFilter) (reusablefilter.ReusableFilter, error) {
	r.items[f.ID()] = f
	r.order = append(r.order, f.ID())
	return f, nil
}

func (r *memFilterRepo) Update(_ context.Context, f reusablefilter.ReusableFilter) (reusablefilter.ReusableFilter, error) {
	if _, ok := r.items[f.ID()]; !ok {
		return reusablefilter.ReusableFilter{}, reusablefilter.ErrNotFound
	}
	r.items[f.ID()] = f
	return f, nil
}

func (r *memFilterRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *memFilterRepo) Apply(_ context.Context, f reusablefilter.ReusableFilter, _ uuid.UUID) (int64, error) {
	r.applied = append(r.applied, f.ID())
	return 1, nil
}

func TestFilterService_ListEligibleOrdersByPosition(t *testing.T) {
	repo := newMemFilterRepo()
	svc := NewFilterService(repo)
	ctx := context.Background()

	late, err := svc.Create(ctx, &reusablefilter.DTO{Title: "late", ApplyFollowingImport: true, Position: 5})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &reusablefilter.DTO{Title: "manual", Position: 0})
	require.NoError(t, err)
	early, err := svc.Create(ctx, &reusablefilter.DTO{Title: "early", ApplyFollowingImport: true, Position: 1})
	require.NoError(t, err)

	got, err := svc.ListEligible(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, early.ID(), got[0].ID())
	require.Equal(t, late.ID(), got[1].ID())
}

func TestFilterService_ApplyByIDMissing(t *testing.T) {
	svc := NewFilterService(newMemFilterRepo())
	_, err := svc.ApplyByID(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, reusablefilter.ErrNotFound)
}

func TestFilterService_Patch(t *testing.T) {
	repo := newMemFilterRepo()
	svc := NewFilterService(repo)
	ctx := context.Background()

	f, err := svc.Create(ctx, &reusablefilter.DTO{
		Title:    "coffee",
		Criteria: reusablefilter.Criteria{DescriptionContains: "coffee"},
	})
	require.NoError(t, err)

	cat := uuid.New()
	patched, err := svc.Patch(ctx, f.ID(), []byte(`{"applyFollowingImport":true,"change":{"categoryId":"`+cat.String()+`"},"criteria":{"descriptionContains":null,"dateFrom":"2026-01-01"}}`))
	require.NoError(t, err)
	require.True(t, patched.ApplyFollowingImport())
	require.Equal(t, cat, *patched.Change().CategoryID)
	require.Empty(t, patched.Criteria().DescriptionContains)
	require.Equal(t, "2026-01-01", patched.Criteria().DateFrom)
	require.Equal(t, "coffee", patched.Title())

	_, err = svc.Patch(ctx, f.ID(), []byte(`{"title":""}`))
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = svc.Patch(ctx, f.ID(), []byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidFilter)
}
