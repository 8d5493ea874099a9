package entity

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

// CreateDTO is the row shape accepted by direct imports of titled entities.
type CreateDTO struct {
	Title  string `json:"title" validate:"required,max=255"`
	Type   string `json:"type,omitempty" validate:"max=64"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=active disabled"`
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Type = strings.TrimSpace(d.Type)
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	err := constants.Validate.Struct(d)
	if err == nil {
		return serrors.ValidationErrors{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return serrors.ValidationErrors{"row": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs, jsonFieldName), false
}

func (d *CreateDTO) ToEntity(kind Kind, opts ...Option) Entity {
	if d.Type != "" {
		opts = append([]Option{WithType(d.Type)}, opts...)
	}
	if d.Status != "" {
		opts = append([]Option{WithStatus(Status(d.Status))}, opts...)
	}
	return New(kind, d.Title, opts...)
}

func jsonFieldName(field string) string {
	switch field {
	case "Title":
		return "title"
	case "Type":
		return "type"
	case "Status":
		return "status"
	}
	return ""
}
