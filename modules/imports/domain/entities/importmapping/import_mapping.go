package importmapping

import (
	"time"

	"github.com/google/uuid"
)

// Config describes how a foreign file's columns map onto a transaction.
// Column values name header cells (CSV/XLSX) or object keys (JSON).
type Config struct {
	SkipRows          int      `json:"skipRows" toml:"skip_rows" yaml:"skip_rows" validate:"gte=0"`
	DateColumn        string   `json:"dateColumn" toml:"date_column" yaml:"date_column" validate:"required"`
	DateFormat        string   `json:"dateFormat,omitempty" toml:"date_format" yaml:"date_format"`
	DescriptionColumn string   `json:"descriptionColumn" toml:"description_column" yaml:"description_column" validate:"required"`
	AmountColumn      string   `json:"amountColumn,omitempty" toml:"amount_column" yaml:"amount_column" validate:"required_without_all=CreditColumn DebitColumn"`
	CreditColumn      string   `json:"creditColumn,omitempty" toml:"credit_column" yaml:"credit_column" validate:"required_with=DebitColumn"`
	DebitColumn       string   `json:"debitColumn,omitempty" toml:"debit_column" yaml:"debit_column" validate:"required_with=CreditColumn"`
	ReverseAmount     bool     `json:"reverseAmount,omitempty" toml:"reverse_amount" yaml:"reverse_amount"`
	AccountColumn     string   `json:"accountColumn,omitempty" toml:"account_column" yaml:"account_column" validate:"required_without=AccountTitle"`
	AccountTitle      string   `json:"accountTitle,omitempty" toml:"account_title" yaml:"account_title"`
	CategoryColumn    string   `json:"categoryColumn,omitempty" toml:"category_column" yaml:"category_column"`
	BillColumn        string   `json:"billColumn,omitempty" toml:"bill_column" yaml:"bill_column"`
	BudgetColumn      string   `json:"budgetColumn,omitempty" toml:"budget_column" yaml:"budget_column"`
	TagColumn         string   `json:"tagColumn,omitempty" toml:"tag_column" yaml:"tag_column"`
	LabelColumns      []string `json:"labelColumns,omitempty" toml:"label_columns" yaml:"label_columns"`
	UniqueIDColumns   []string `json:"uniqueIdColumns,omitempty" toml:"unique_id_columns" yaml:"unique_id_columns"`
}

type Mapping struct {
	id        uuid.UUID
	title     string
	config    Config
	createdAt time.Time
	updatedAt time.Time
}

func New(title string, config Config) Mapping {
	return Mapping{
		id:     uuid.New(),
		title:  title,
		config: config,
	}
}

func Hydrate(id uuid.UUID, title string, config Config, createdAt, updatedAt time.Time) Mapping {
	return Mapping{
		id:        id,
		title:     title,
		config:    config,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (m Mapping) ID() uuid.UUID        { return m.id }
func (m Mapping) Title() string        { return m.title }
func (m Mapping) Config() Config       { return m.config }
func (m Mapping) CreatedAt() time.Time { return m.createdAt }
func (m Mapping) UpdatedAt() time.Time { return m.updatedAt }
