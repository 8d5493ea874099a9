package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects one of the titled ledger tables.
type Kind string

const (
	KindAccount  Kind = "account"
	KindBill     Kind = "bill"
	KindBudget   Kind = "budget"
	KindCategory Kind = "category"
	KindTag      Kind = "tag"
	KindLabel    Kind = "label"
)

var Kinds = []Kind{KindAccount, KindBill, KindBudget, KindCategory, KindTag, KindLabel}

func (k Kind) Table() string {
	switch k {
	case KindAccount:
		return "accounts"
	case KindBill:
		return "bills"
	case KindBudget:
		return "budgets"
	case KindCategory:
		return "categories"
	case KindTag:
		return "tags"
	case KindLabel:
		return "labels"
	}
	return ""
}

func (k Kind) Valid() bool {
	return k.Table() != ""
}

// DefaultType is the type given to entities created implicitly by title.
func (k Kind) DefaultType() string {
	switch k {
	case KindAccount, KindBudget:
		return "expense"
	}
	return ""
}

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

type Entity struct {
	id             uuid.UUID
	kind           Kind
	title          string
	typ            string
	status         Status
	importID       *uuid.UUID
	importDetailID *uuid.UUID
	createdAt      time.Time
	updatedAt      time.Time
}

type Option func(*Entity)

func WithType(t string) Option {
	return func(e *Entity) { e.typ = t }
}

func WithStatus(s Status) Option {
	return func(e *Entity) { e.status = s }
}

// WithImport tags the entity with the import and item detail that produced it.
func WithImport(importID, detailID uuid.UUID) Option {
	return func(e *Entity) {
		e.importID = &importID
		e.importDetailID = &detailID
	}
}

func New(kind Kind, title string, opts ...Option) Entity {
	e := Entity{
		id:     uuid.New(),
		kind:   kind,
		title:  strings.TrimSpace(title),
		typ:    kind.DefaultType(),
		status: StatusActive,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func Hydrate(
	id uuid.UUID,
	kind Kind,
	title string,
	typ string,
	status Status,
	importID *uuid.UUID,
	importDetailID *uuid.UUID,
	createdAt time.Time,
	updatedAt time.Time,
) Entity {
	return Entity{
		id:             id,
		kind:           kind,
		title:          title,
		typ:            typ,
		status:         status,
		importID:       importID,
		importDetailID: importDetailID,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (e Entity) ID() uuid.UUID              { return e.id }
func (e Entity) Kind() Kind                 { return e.kind }
func (e Entity) Title() string              { return e.title }
func (e Entity) Type() string               { return e.typ }
func (e Entity) Status() Status             { return e.status }
func (e Entity) ImportID() *uuid.UUID       { return e.importID }
func (e Entity) ImportDetailID() *uuid.UUID { return e.importDetailID }
func (e Entity) CreatedAt() time.Time       { return e.createdAt }
func (e Entity) UpdatedAt() time.Time       { return e.updatedAt }
func (e Entity) Active() bool               { return e.status == StatusActive }

// TitleMatches compares titles case-insensitively, ignoring surrounding blanks.
func (e Entity) TitleMatches(title string) bool {
	return strings.EqualFold(e.title, strings.TrimSpace(title))
}
