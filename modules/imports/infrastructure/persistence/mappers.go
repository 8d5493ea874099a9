package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/modules/imports/infrastructure/persistence/models"
)

func toDomainImport(m *models.Import) (importjob.Import, error) {
	opts := []importjob.Option{
		importjob.WithAutoProcess(m.AutoProcess),
		importjob.WithAutoClean(m.AutoClean),
		importjob.WithCheckImportedOnly(m.CheckImportedOnly),
	}
	if m.ImportMappingID != nil {
		opts = append(opts, importjob.WithMappingID(*m.ImportMappingID))
	}
	info, err := decodeErrorInfo(m.ErrorInfo)
	if err != nil {
		return importjob.Import{}, fmt.Errorf("import %s: %w", m.ID, err)
	}
	if info != nil {
		opts = append(opts, importjob.WithErrorInfo(info))
	}
	if len(m.ImportStatus) > 0 && string(m.ImportStatus) != "null" {
		var cp importjob.Checkpoint
		if err := json.Unmarshal(m.ImportStatus, &cp); err != nil {
			return importjob.Import{}, fmt.Errorf("import %s: decode checkpoint: %w", m.ID, err)
		}
		opts = append(opts, importjob.WithCheckpoint(&cp))
	}
	return importjob.Hydrate(
		m.ID,
		importjob.Status(m.Status),
		importjob.Source(m.Source),
		importjob.Type(m.Type),
		m.Filename,
		m.CreatedAt,
		m.UpdatedAt,
		opts...,
	), nil
}

func toDomainItem(m *models.ImportItemDetail) (importitem.Item, error) {
	info, err := decodeErrorInfo(m.ErrorInfo)
	if err != nil {
		return importitem.Item{}, fmt.Errorf("item %s: %w", m.ID, err)
	}
	return importitem.Hydrate(
		m.ID,
		m.ImportID,
		m.UniqueID,
		importitem.Status(m.Status),
		json.RawMessage(m.ProcessedInfo),
		info,
		m.RelationID,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainMapping(m *models.ImportMapping) (importmapping.Mapping, error) {
	var cfg importmapping.Config
	if err := json.Unmarshal(m.Config, &cfg); err != nil {
		return importmapping.Mapping{}, fmt.Errorf("mapping %s: decode config: %w", m.ID, err)
	}
	return importmapping.Hydrate(m.ID, m.Title, cfg, m.CreatedAt, m.UpdatedAt), nil
}

func decodeErrorInfo(raw []byte) (*errorinfo.ErrorInfo, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var info errorinfo.ErrorInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode error info: %w", err)
	}
	return &info, nil
}

// encodeJSON renders v for a nullable JSONB column; nil pointers become SQL NULL.
func encodeJSON[T any](v *T) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func rawJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
