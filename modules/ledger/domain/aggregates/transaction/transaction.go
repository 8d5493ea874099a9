package transaction

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is the single journal line of a transaction.
type Entry struct {
	AccountID  uuid.UUID
	Amount     decimal.Decimal
	CategoryID *uuid.UUID
	BillID     *uuid.UUID
	BudgetID   *uuid.UUID
	TagID      *uuid.UUID
	LabelIDs   []uuid.UUID
}

type Transaction struct {
	id             uuid.UUID
	date           time.Time
	description    string
	uniqueID       *string
	entry          Entry
	importID       *uuid.UUID
	importDetailID *uuid.UUID
	createdAt      time.Time
}

type Option func(*Transaction)

func WithUniqueID(id string) Option {
	return func(t *Transaction) {
		if id != "" {
			t.uniqueID = &id
		}
	}
}

func WithImport(importID, detailID uuid.UUID) Option {
	return func(t *Transaction) {
		t.importID = &importID
		t.importDetailID = &detailID
	}
}

func New(date time.Time, description string, entry Entry, opts ...Option) Transaction {
	entry.LabelIDs = slices.Clone(entry.LabelIDs)
	t := Transaction{
		id:          uuid.New(),
		date:        date,
		description: description,
		entry:       entry,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func Hydrate(
	id uuid.UUID,
	date time.Time,
	description string,
	uniqueID *string,
	entry Entry,
	importID *uuid.UUID,
	importDetailID *uuid.UUID,
	createdAt time.Time,
) Transaction {
	return Transaction{
		id:             id,
		date:           date,
		description:    description,
		uniqueID:       uniqueID,
		entry:          entry,
		importID:       importID,
		importDetailID: importDetailID,
		createdAt:      createdAt,
	}
}

func (t Transaction) ID() uuid.UUID              { return t.id }
func (t Transaction) Date() time.Time            { return t.date }
func (t Transaction) Description() string        { return t.description }
func (t Transaction) UniqueID() *string          { return t.uniqueID }
func (t Transaction) Entry() Entry               { return t.entry }
func (t Transaction) ImportID() *uuid.UUID       { return t.importID }
func (t Transaction) ImportDetailID() *uuid.UUID { return t.importDetailID }
func (t Transaction) CreatedAt() time.Time       { return t.createdAt }
