package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitDB, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

type importView struct {
	ID                uuid.UUID               `json:"id"`
	Filename          string                  `json:"filename"`
	Status            importjob.Status        `json:"status"`
	Source            importjob.Source        `json:"source"`
	Type              importjob.Type          `json:"type"`
	MappingID         *uuid.UUID              `json:"mappingId,omitempty"`
	AutoProcess       bool                    `json:"autoProcess"`
	AutoClean         bool                    `json:"autoClean"`
	CheckImportedOnly bool                    `json:"checkImportedOnly"`
	Error             *errorinfo.ErrorInfo    `json:"error,omitempty"`
	Checkpoint        *importjob.Checkpoint   `json:"checkpoint,omitempty"`
	Items             importitem.StatusCounts `json:"items,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

func toImportView(imp importjob.Import, counts importitem.StatusCounts) importView {
	return importView{
		ID:                imp.ID(),
		Filename:          imp.Filename(),
		Status:            imp.Status(),
		Source:            imp.Source(),
		Type:              imp.Type(),
		MappingID:         imp.MappingID(),
		AutoProcess:       imp.AutoProcess(),
		AutoClean:         imp.AutoClean(),
		CheckImportedOnly: imp.CheckImportedOnly(),
		Error:             imp.ErrorInfo(),
		Checkpoint:        imp.Checkpoint(),
		Items:             counts,
		CreatedAt:         imp.CreatedAt(),
		UpdatedAt:         imp.UpdatedAt(),
	}
}

type mappingView struct {
	ID     uuid.UUID            `json:"id"`
	Title  string               `json:"title"`
	Config importmapping.Config `json:"config"`
}

func toMappingView(m importmapping.Mapping) mappingView {
	return mappingView{ID: m.ID(), Title: m.Title(), Config: m.Config()}
}

type filterView struct {
	ID                   uuid.UUID               `json:"id"`
	Title                string                  `json:"title"`
	Criteria             reusablefilter.Criteria `json:"criteria"`
	Change               *reusablefilter.Change  `json:"change,omitempty"`
	ApplyFollowingImport bool                    `json:"applyFollowingImport"`
	Position             int                     `json:"position"`
}

func toFilterView(f reusablefilter.ReusableFilter) filterView {
	return filterView{
		ID:                   f.ID(),
		Title:                f.Title(),
		Criteria:             f.Criteria(),
		Change:               f.Change(),
		ApplyFollowingImport: f.ApplyFollowingImport(),
		Position:             f.Position(),
	}
}
