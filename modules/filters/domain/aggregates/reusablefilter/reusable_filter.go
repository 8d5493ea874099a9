package reusablefilter

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Criteria selects journal entries. Empty fields do not restrict the match.
type Criteria struct {
	DescriptionContains string           `json:"descriptionContains,omitempty" validate:"max=255"`
	AccountIDs          []uuid.UUID      `json:"accountIds,omitempty"`
	CategoryIDs         []uuid.UUID      `json:"categoryIds,omitempty"`
	AmountMin           *decimal.Decimal `json:"amountMin,omitempty"`
	AmountMax           *decimal.Decimal `json:"amountMax,omitempty"`
	DateFrom            string           `json:"dateFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo              string           `json:"dateTo,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Change is what a filter writes onto every matching entry.
type Change struct {
	CategoryID  *uuid.UUID  `json:"categoryId,omitempty"`
	BillID      *uuid.UUID  `json:"billId,omitempty"`
	BudgetID    *uuid.UUID  `json:"budgetId,omitempty"`
	TagID       *uuid.UUID  `json:"tagId,omitempty"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=1024"`
	AddLabelIDs []uuid.UUID `json:"addLabelIds,omitempty"`
}

func (c *Change) Empty() bool {
	return c == nil ||
		(c.CategoryID == nil && c.BillID == nil && c.BudgetID == nil && c.TagID == nil &&
			c.Description == nil && len(c.AddLabelIDs) == 0)
}

type ReusableFilter struct {
	id                   uuid.UUID
	title                string
	criteria             Criteria
	change               *Change
	applyFollowingImport bool
	position             int
	createdAt            time.Time
	updatedAt            time.Time
}

type Option func(*ReusableFilter)

func WithChange(c *Change) Option {
	return func(f *ReusableFilter) { f.change = c }
}

func WithApplyFollowingImport(v bool) Option {
	return func(f *ReusableFilter) { f.applyFollowingImport = v }
}

func WithPosition(p int) Option {
	return func(f *ReusableFilter) { f.position = p }
}

func New(title string, criteria Criteria, opts ...Option) ReusableFilter {
	f := ReusableFilter{
		id:       uuid.New(),
		title:    strings.TrimSpace(title),
		criteria: criteria,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func Hydrate(
	id uuid.UUID,
	title string,
	criteria Criteria,
	change *Change,
	applyFollowingImport bool,
	position int,
	createdAt time.Time,
	updatedAt time.Time,
) ReusableFilter {
	return ReusableFilter{
		id:                   id,
		title:                title,
		criteria:             criteria,
		change:               change,
		applyFollowingImport: applyFollowingImport,
		position:             position,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

func (f ReusableFilter) ID() uuid.UUID              { return f.id }
func (f ReusableFilter) Title() string              { return f.title }
func (f ReusableFilter) Criteria() Criteria         { return f.criteria }
func (f ReusableFilter) Change() *Change            { return f.change }
func (f ReusableFilter) ApplyFollowingImport() bool { return f.applyFollowingImport }
func (f ReusableFilter) Position() int              { return f.position }
func (f ReusableFilter) CreatedAt() time.Time       { return f.createdAt }
func (f ReusableFilter) UpdatedAt() time.Time       { return f.updatedAt }
