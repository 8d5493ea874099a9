package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

var ErrInvalidFilter = serrors.NewError("FILTER_INVALID", "reusable filter is invalid", "ReusableFilters.Errors.Invalid")

type FilterService struct {
	repo reusablefilter.Repository
}

func NewFilterService(repo reusablefilter.Repository) *FilterService {
	return &FilterService{repo: repo}
}

func (s *FilterService) GetByID(ctx context.Context, id uuid.UUID) (reusablefilter.ReusableFilter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FilterService) List(ctx context.Context, params *reusablefilter.FindParams) ([]reusablefilter.ReusableFilter, error) {
	return s.repo.List(ctx, params)
}

// ListEligible returns the filters applied after imports, in position order.
func (s *FilterService) ListEligible(ctx context.Context) ([]reusablefilter.ReusableFilter, error) {
	following := true
	filters, err := s.repo.List(ctx, &reusablefilter.FindParams{ApplyFollowingImport: &following})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(filters, func(i, j int) bool {
		return filters[i].Position() < filters[j].Position()
	})
	return filters, nil
}

// ApplyByID applies one filter to the journal entries of importID.
// A missing filter surfaces reusablefilter.ErrNotFound.
func (s *FilterService) ApplyByID(ctx context.Context, filterID, importID uuid.UUID) (int64, error) {
	f, err := s.repo.GetByID(ctx, filterID)
	if err != nil {
		return 0, err
	}
	return s.repo.Apply(ctx, f, importID)
}

func (s *FilterService) Create(ctx context.Context, dto *reusablefilter.DTO) (reusablefilter.ReusableFilter, error) {
	if errs, ok := dto.Ok(); !ok {
		return reusablefilter.ReusableFilter{}, invalid(errs)
	}
	return s.repo.Create(ctx, dto.ToEntity())
}

// Patch applies an RFC 7386 merge patch to the filter's editable document.
func (s *FilterService) Patch(ctx context.Context, id uuid.UUID, patch []byte) (reusablefilter.ReusableFilter, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	doc, err := json.Marshal(reusablefilter.ToDTO(current))
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return reusablefilter.ReusableFilter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	var dto reusablefilter.DTO
	if err := json.Unmarshal(merged, &dto); err != nil {
		return reusablefilter.ReusableFilter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if errs, ok := dto.Ok(); !ok {
		return reusablefilter.ReusableFilter{}, invalid(errs)
	}
	return s.repo.Update(ctx, dto.Apply(current))
}

func (s *FilterService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func invalid(errs serrors.ValidationErrors) error {
	return fmt.Errorf("%w: %v", ErrInvalidFilter, errs.Messages())
}
