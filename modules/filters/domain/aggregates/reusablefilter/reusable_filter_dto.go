package reusablefilter

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

// DTO is the editable document of a filter. Patches are merged onto it.
type DTO struct {
	Title                string   `json:"title" validate:"required,max=255"`
	Criteria             Criteria `json:"criteria"`
	Change               *Change  `json:"change,omitempty"`
	ApplyFollowingImport bool     `json:"applyFollowingImport"`
	Position             int      `json:"position" validate:"gte=0"`
}

func ToDTO(f ReusableFilter) DTO {
	return DTO{
		Title:                f.title,
		Criteria:             f.criteria,
		Change:               f.change,
		ApplyFollowingImport: f.applyFollowingImport,
		Position:             f.position,
	}
}

func (d *DTO) Ok() (serrors.ValidationErrors, bool) {
	d.Title = strings.TrimSpace(d.Title)
	out := serrors.ValidationErrors{}
	if err := constants.Validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return serrors.ValidationErrors{"filter": err.Error()}, false
		}
		out = serrors.ProcessValidatorErrors(verrs, nil)
	}
	c := d.Criteria
	if c.AmountMin != nil && c.AmountMax != nil && c.AmountMin.GreaterThan(*c.AmountMax) {
		out["criteria.amountMin"] = "must not exceed amountMax"
	}
	if c.DateFrom != "" && c.DateTo != "" && c.DateFrom > c.DateTo {
		out["criteria.dateFrom"] = "must not be after dateTo"
	}
	return out, len(out) == 0
}

// Apply returns f updated with the DTO's fields.
func (d *DTO) Apply(f ReusableFilter) ReusableFilter {
	f.title = d.Title
	f.criteria = d.Criteria
	f.change = d.Change
	f.applyFollowingImport = d.ApplyFollowingImport
	f.position = d.Position
	return f
}

func (d *DTO) ToEntity() ReusableFilter {
	return New(d.Title, d.Criteria,
		WithChange(d.Change),
		WithApplyFollowingImport(d.ApplyFollowingImport),
		WithPosition(d.Position),
	)
}
