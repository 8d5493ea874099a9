package importmapping

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

type CreateDTO struct {
	Title  string `json:"title" toml:"title" yaml:"title" validate:"required,max=255"`
	Config Config `json:"config" toml:"config" yaml:"config"`
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Config.DateColumn = strings.TrimSpace(d.Config.DateColumn)
	d.Config.DescriptionColumn = strings.TrimSpace(d.Config.DescriptionColumn)
	d.Config.AccountTitle = strings.TrimSpace(d.Config.AccountTitle)
}

// Ok validates the DTO and returns field messages when it is invalid.
func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	err := constants.Validate.Struct(d)
	if err == nil {
		return serrors.ValidationErrors{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return serrors.ValidationErrors{"config": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs, nil), false
}

func (d *CreateDTO) ToEntity() Mapping {
	return New(d.Title, d.Config)
}
