package importjob

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
)

type Status string

const (
	StatusCreated        Status = "created"
	StatusProcessed      Status = "processed"
	StatusError          Status = "error"
	StatusAwaitingImport Status = "awaitingImport"
	StatusImporting      Status = "importing"
	StatusComplete       Status = "complete"
)

type Source string

const (
	SourceCSV  Source = "csv"
	SourceJSON Source = "json"
	SourceXLSX Source = "xlsx"
)

func (s Source) Valid() bool {
	switch s {
	case SourceCSV, SourceJSON, SourceXLSX:
		return true
	}
	return false
}

type Type string

const (
	TypeTransaction  Type = "transaction"
	TypeAccount      Type = "account"
	TypeBill         Type = "bill"
	TypeBudget       Type = "budget"
	TypeCategory     Type = "category"
	TypeTag          Type = "tag"
	TypeLabel        Type = "label"
	TypeMappedImport Type = "mappedImport"
)

func (t Type) Valid() bool {
	switch t {
	case TypeTransaction, TypeAccount, TypeBill, TypeBudget, TypeCategory, TypeTag, TypeLabel, TypeMappedImport:
		return true
	}
	return false
}

// Import is one ingestion job and the persisted state of its lifecycle.
type Import struct {
	id                uuid.UUID
	status            Status
	source            Source
	typ               Type
	filename          string
	mappingID         *uuid.UUID
	autoProcess       bool
	autoClean         bool
	checkImportedOnly bool
	errorInfo         *errorinfo.ErrorInfo
	checkpoint        *Checkpoint
	createdAt         time.Time
	updatedAt         time.Time
}

type Option func(*Import)

func WithMappingID(id uuid.UUID) Option {
	return func(i *Import) { i.mappingID = &id }
}

func WithAutoProcess(v bool) Option {
	return func(i *Import) { i.autoProcess = v }
}

func WithAutoClean(v bool) Option {
	return func(i *Import) { i.autoClean = v }
}

func WithCheckImportedOnly(v bool) Option {
	return func(i *Import) { i.checkImportedOnly = v }
}

func WithErrorInfo(info *errorinfo.ErrorInfo) Option {
	return func(i *Import) { i.errorInfo = info }
}

func WithCheckpoint(cp *Checkpoint) Option {
	return func(i *Import) { i.checkpoint = cp }
}

// New returns an Import in StatusCreated.
func New(filename string, source Source, typ Type, opts ...Option) Import {
	i := Import{
		id:       uuid.New(),
		status:   StatusCreated,
		source:   source,
		typ:      typ,
		filename: filename,
	}
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

func Hydrate(
	id uuid.UUID,
	status Status,
	source Source,
	typ Type,
	filename string,
	createdAt time.Time,
	updatedAt time.Time,
	opts ...Option,
) Import {
	i := Import{
		id:        id,
		status:    status,
		source:    source,
		typ:       typ,
		filename:  filename,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

func (i Import) ID() uuid.UUID                   { return i.id }
func (i Import) Status() Status                  { return i.status }
func (i Import) Source() Source                  { return i.source }
func (i Import) Type() Type                      { return i.typ }
func (i Import) Filename() string                { return i.filename }
func (i Import) MappingID() *uuid.UUID           { return i.mappingID }
func (i Import) AutoProcess() bool               { return i.autoProcess }
func (i Import) AutoClean() bool                 { return i.autoClean }
func (i Import) CheckImportedOnly() bool         { return i.checkImportedOnly }
func (i Import) ErrorInfo() *errorinfo.ErrorInfo { return i.errorInfo }
func (i Import) Checkpoint() *Checkpoint         { return i.checkpoint }
func (i Import) CreatedAt() time.Time            { return i.createdAt }
func (i Import) UpdatedAt() time.Time            { return i.updatedAt }

// WithStatus returns a copy in the given status carrying info.
func (i Import) WithStatus(status Status, info *errorinfo.ErrorInfo, at time.Time) Import {
	i.status = status
	i.errorInfo = info
	i.updatedAt = at
	return i
}

func (i Import) WithFilename(name string) Import {
	i.filename = name
	return i
}

func (i Import) WithCheckpoint(cp *Checkpoint) Import {
	i.checkpoint = cp
	return i
}

// CanTransition reports whether the lifecycle allows moving from the current status to next.
func (i Import) CanTransition(next Status) bool {
	switch i.status {
	case StatusCreated:
		return next == StatusProcessed || next == StatusError || next == StatusComplete
	case StatusProcessed:
		return next == StatusAwaitingImport
	case StatusAwaitingImport:
		return next == StatusImporting
	case StatusImporting:
		return next == StatusComplete || next == StatusError
	}
	return false
}
