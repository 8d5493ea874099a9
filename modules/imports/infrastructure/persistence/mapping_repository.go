package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/imports/infrastructure/persistence/models"
	"github.com/iota-uz/bookkeeper/pkg/composables"
)

const mappingColumns = "id, title, config, created_at, updated_at"

type MappingRepository struct{}

func NewMappingRepository() importmapping.Repository {
	return &MappingRepository{}
}

func (r *MappingRepository) GetByID(ctx context.Context, id uuid.UUID) (importmapping.Mapping, error) {
	return r.getOne(ctx, `SELECT `+mappingColumns+` FROM import_mappings WHERE id = $1`, id)
}

func (r *MappingRepository) GetByTitle(ctx context.Context, title string) (importmapping.Mapping, error) {
	return r.getOne(ctx, `SELECT `+mappingColumns+` FROM import_mappings WHERE title = $1`, strings.TrimSpace(title))
}

func (r *MappingRepository) getOne(ctx context.Context, query string, args ...any) (importmapping.Mapping, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importmapping.Mapping{}, err
	}
	var m models.ImportMapping
	if err := tx.QueryRow(ctx, query, args...).Scan(&m.ID, &m.Title, &m.Config, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return importmapping.Mapping{}, importmapping.ErrNotFound
		}
		return importmapping.Mapping{}, err
	}
	return toDomainMapping(&m)
}

func (r *MappingRepository) List(ctx context.Context) ([]importmapping.Mapping, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+mappingColumns+` FROM import_mappings ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importmapping.Mapping
	for rows.Next() {
		var m models.ImportMapping
		if err := rows.Scan(&m.ID, &m.Title, &m.Config, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mapping, err := toDomainMapping(&m)
		if err != nil {
			return nil, err
		}
		out = append(out, mapping)
	}
	return out, rows.Err()
}

func (r *MappingRepository) Create(ctx context.Context, mapping importmapping.Mapping) (importmapping.Mapping, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importmapping.Mapping{}, err
	}
	cfg, err := json.Marshal(mapping.Config())
	if err != nil {
		return importmapping.Mapping{}, err
	}
	var m models.ImportMapping
	err = tx.QueryRow(ctx, `
		INSERT INTO import_mappings (id, title, config)
		VALUES ($1, $2, $3)
		RETURNING `+mappingColumns,
		mapping.ID(), mapping.Title(), cfg,
	).Scan(&m.ID, &m.Title, &m.Config, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return importmapping.Mapping{}, importmapping.ErrTitleTaken
		}
		return importmapping.Mapping{}, fmt.Errorf("create import mapping: %w", err)
	}
	return toDomainMapping(&m)
}
