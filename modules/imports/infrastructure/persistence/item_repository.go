package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/modules/imports/infrastructure/persistence/models"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/repo"
)

const (
	itemColumns   = "id, import_id, unique_id, status, processed_info, error_info, relation_id, created_at, updated_at"
	itemChunkSize = 1000
)

type ItemRepository struct{}

func NewItemRepository() importitem.Repository {
	return &ItemRepository{}
}

// CreateMany inserts items in chunks using array parameters.
func (r *ItemRepository) CreateMany(ctx context.Context, items []importitem.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(items); start += itemChunkSize {
		end := min(start+itemChunkSize, len(items))
		if err := insertItems(ctx, tx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertItems(ctx context.Context, tx repo.Tx, items []importitem.Item) error {
	var (
		ids       = make([]uuid.UUID, 0, len(items))
		importIDs = make([]uuid.UUID, 0, len(items))
		uniqueIDs = make([]*string, 0, len(items))
		statuses  = make([]string, 0, len(items))
		infos     = make([]*string, 0, len(items))
		errs      = make([]*string, 0, len(items))
	)
	for _, it := range items {
		errJSON, err := encodeJSON(it.ErrorInfo())
		if err != nil {
			return err
		}
		ids = append(ids, it.ID())
		importIDs = append(importIDs, it.ImportID())
		uniqueIDs = append(uniqueIDs, it.UniqueID())
		statuses = append(statuses, string(it.Status()))
		infos = append(infos, rawJSON(it.ProcessedInfo()))
		errs = append(errs, errJSON)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO import_item_details (id, import_id, unique_id, status, processed_info, error_info)
		SELECT id, import_id, unique_id, status, processed_info::jsonb, error_info::jsonb
		FROM unnest($1::uuid[], $2::uuid[], $3::text[], $4::text[], $5::text[], $6::text[])
			AS t(id, import_id, unique_id, status, processed_info, error_info)`,
		ids, importIDs, uniqueIDs, statuses, infos, errs,
	)
	if err != nil {
		return fmt.Errorf("insert import items: %w", err)
	}
	return nil
}

func (r *ItemRepository) List(ctx context.Context, importID uuid.UUID, params *importitem.FindParams) ([]importitem.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where := []string{"import_id = $1"}
	args := []any{importID}
	if params != nil && len(params.Statuses) > 0 {
		args = append(args, statusStrings(params.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	query := `SELECT ` + itemColumns + ` FROM import_item_details WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at, id`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importitem.Item
	for rows.Next() {
		var m models.ImportItemDetail
		if err := rows.Scan(
			&m.ID, &m.ImportID, &m.UniqueID, &m.Status, &m.ProcessedInfo, &m.ErrorInfo, &m.RelationID, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		it, err := toDomainItem(&m)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ItemRepository) CountByStatus(ctx context.Context, importID uuid.UUID) (importitem.StatusCounts, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT status, COUNT(*) FROM import_item_details
		WHERE import_id = $1
		GROUP BY status`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := importitem.StatusCounts{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[importitem.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *ItemRepository) SetResult(
	ctx context.Context,
	id uuid.UUID,
	status importitem.Status,
	relationID *uuid.UUID,
	info *errorinfo.ErrorInfo,
) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeJSON(info)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE import_item_details
		SET status = $2, relation_id = $3, error_info = $4::jsonb, updated_at = now()
		WHERE id = $1`, id, string(status), relationID, raw)
	if err != nil {
		return fmt.Errorf("set item result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importitem.ErrNotFound
	}
	return nil
}

func (r *ItemRepository) ExistingUniqueIDs(ctx context.Context, keys []string, excludeImportID uuid.UUID) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT DISTINCT unique_id FROM import_item_details
		WHERE unique_id = ANY($1)
		  AND import_id <> $2
		  AND status = ANY($3)`,
		keys, excludeImportID, statusStrings(importitem.SeenStatuses),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *ItemRepository) DeleteByImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	return r.deleteWhere(ctx, `import_id = $1`, importID)
}

func (r *ItemRepository) DeleteNotImported(ctx context.Context, importID uuid.UUID) (int64, error) {
	return r.deleteWhere(ctx, `import_id = $1 AND status <> 'imported'`, importID)
}

func (r *ItemRepository) deleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM import_item_details WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete import items: %w", err)
	}
	return tag.RowsAffected(), nil
}

func statusStrings(statuses []importitem.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

