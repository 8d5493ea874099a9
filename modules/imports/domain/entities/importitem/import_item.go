package importitem

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
)

type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusProcessed   Status = "processed"
	StatusDuplicate   Status = "duplicate"
	StatusError       Status = "error"
	StatusImportError Status = "importError"
	StatusImported    Status = "imported"
)

// Item is the processing record of one input row.
type Item struct {
	id            uuid.UUID
	importID      uuid.UUID
	uniqueID      *string
	status        Status
	processedInfo json.RawMessage
	errorInfo     *errorinfo.ErrorInfo
	relationID    *uuid.UUID
	createdAt     time.Time
	updatedAt     time.Time
}

func New(importID uuid.UUID, uniqueID string, status Status, processedInfo json.RawMessage, info *errorinfo.ErrorInfo) Item {
	var uid *string
	if uniqueID != "" {
		uid = &uniqueID
	}
	return Item{
		id:            uuid.New(),
		importID:      importID,
		uniqueID:      uid,
		status:        status,
		processedInfo: processedInfo,
		errorInfo:     info,
	}
}

func Hydrate(
	id uuid.UUID,
	importID uuid.UUID,
	uniqueID *string,
	status Status,
	processedInfo json.RawMessage,
	info *errorinfo.ErrorInfo,
	relationID *uuid.UUID,
	createdAt time.Time,
	updatedAt time.Time,
) Item {
	return Item{
		id:            id,
		importID:      importID,
		uniqueID:      uniqueID,
		status:        status,
		processedInfo: processedInfo,
		errorInfo:     info,
		relationID:    relationID,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (i Item) ID() uuid.UUID                   { return i.id }
func (i Item) ImportID() uuid.UUID             { return i.importID }
func (i Item) UniqueID() *string               { return i.uniqueID }
func (i Item) Status() Status                  { return i.status }
func (i Item) ProcessedInfo() json.RawMessage  { return i.processedInfo }
func (i Item) ErrorInfo() *errorinfo.ErrorInfo { return i.errorInfo }
func (i Item) RelationID() *uuid.UUID          { return i.relationID }
func (i Item) CreatedAt() time.Time            { return i.createdAt }
func (i Item) UpdatedAt() time.Time            { return i.updatedAt }

// WithResult returns a copy carrying a processing outcome.
func (i Item) WithResult(status Status, relationID *uuid.UUID, info *errorinfo.ErrorInfo) Item {
	i.status = status
	i.relationID = relationID
	i.errorInfo = info
	return i
}

// StatusCounts is the distribution of item statuses within one import.
type StatusCounts map[Status]int

func (c StatusCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
