package transaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

// Amount holds a decimal literal decoded from either a JSON string or a JSON number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// CreateDTO is the row shape accepted by direct transaction imports and produced by mappings.
type CreateDTO struct {
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	Description string      `json:"description" validate:"required,max=1024"`
	UniqueID    string      `json:"uniqueId,omitempty" validate:"max=255"`
	Amount      Amount      `json:"amount" validate:"required,numeric"`
	Account     entity.Ref  `json:"account"`
	Category    *entity.Ref `json:"category,omitempty"`
	Bill        *entity.Ref `json:"bill,omitempty"`
	Budget      *entity.Ref `json:"budget,omitempty"`
	Tag         *entity.Ref `json:"tag,omitempty"`
	Labels      entity.Refs `json:"labels,omitempty"`
}

func (d *CreateDTO) Normalize() {
	d.Date = strings.TrimSpace(d.Date)
	d.Description = strings.TrimSpace(d.Description)
	d.UniqueID = strings.TrimSpace(d.UniqueID)
	d.Amount = Amount(strings.ReplaceAll(strings.TrimSpace(string(d.Amount)), ",", ""))
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	out := serrors.ValidationErrors{}
	if err := constants.Validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return serrors.ValidationErrors{"row": err.Error()}, false
		}
		out = serrors.ProcessValidatorErrors(verrs, jsonFieldName)
	}
	if d.Account.IsZero() {
		out["account"] = "is required"
	}
	return out, len(out) == 0
}

func jsonFieldName(field string) string {
	switch field {
	case "Date":
		return "date"
	case "Description":
		return "description"
	case "UniqueID":
		return "uniqueId"
	case "Amount":
		return "amount"
	}
	return ""
}
