package models

import (
	"time"

	"github.com/google/uuid"
)

type Import struct {
	ID                uuid.UUID
	Status            string
	Source            string
	Type              string
	Filename          string
	ImportMappingID   *uuid.UUID
	AutoProcess       bool
	AutoClean         bool
	CheckImportedOnly bool
	ErrorInfo         []byte
	ImportStatus      []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ImportItemDetail struct {
	ID            uuid.UUID
	ImportID      uuid.UUID
	UniqueID      *string
	Status        string
	ProcessedInfo []byte
	ErrorInfo     []byte
	RelationID    *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ImportMapping struct {
	ID        uuid.UUID
	Title     string
	Config    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
