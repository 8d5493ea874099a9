package entity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Ref points at a titled entity either by id or by title.
type Ref struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Title string     `json:"title,omitempty"`
}

func (r Ref) IsZero() bool {
	return r.ID == nil && strings.TrimSpace(r.Title) == ""
}

// UnmarshalJSON accepts an object or a bare string, which is read as a title.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref{Title: strings.TrimSpace(s)}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Title = strings.TrimSpace(p.Title)
	*r = Ref(p)
	return nil
}

// Refs accepts a JSON array or a ";"-separated list of titles.
type Refs []Ref

func (rs *Refs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		out := Refs{}
		for _, part := range strings.Split(s, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, Ref{Title: part})
			}
		}
		*rs = out
		return nil
	}
	var list []Ref
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*rs = list
	return nil
}
