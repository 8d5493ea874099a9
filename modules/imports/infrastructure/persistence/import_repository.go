package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/value_objects/errorinfo"
	"github.com/iota-uz/bookkeeper/modules/imports/infrastructure/persistence/models"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/repo"
)

const importColumns = `id, status, source, type, filename, import_mapping_id, auto_process, auto_clean,
	check_imported_only, error_info, import_status, created_at, updated_at`

type ImportRepository struct{}

func NewImportRepository() importjob.Repository {
	return &ImportRepository{}
}

func (r *ImportRepository) GetByID(ctx context.Context, id uuid.UUID) (importjob.Import, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importjob.Import{}, err
	}
	imp, err := scanImport(tx.QueryRow(ctx, `SELECT `+importColumns+` FROM imports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return importjob.Import{}, importjob.ErrNotFound
	}
	return imp, err
}

func (r *ImportRepository) List(ctx context.Context, params *importjob.FindParams) ([]importjob.Import, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildImportFilters(params)
	query := `SELECT ` + importColumns + ` FROM imports WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}
	return queryImports(ctx, tx, query, args...)
}

func (r *ImportRepository) Count(ctx context.Context, params *importjob.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildImportFilters(params)
	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM imports WHERE `+strings.Join(where, " AND "), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ImportRepository) Create(ctx context.Context, imp importjob.Import) (importjob.Import, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importjob.Import{}, err
	}
	info, err := encodeJSON(imp.ErrorInfo())
	if err != nil {
		return importjob.Import{}, err
	}
	cp, err := encodeJSON(imp.Checkpoint())
	if err != nil {
		return importjob.Import{}, err
	}
	created, err := scanImport(tx.QueryRow(ctx, `
		INSERT INTO imports (id, status, source, type, filename, import_mapping_id, auto_process, auto_clean,
			check_imported_only, error_info, import_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb)
		RETURNING `+importColumns,
		imp.ID(), string(imp.Status()), string(imp.Source()), string(imp.Type()), imp.Filename(), imp.MappingID(),
		imp.AutoProcess(), imp.AutoClean(), imp.CheckImportedOnly(), info, cp,
	))
	if err != nil {
		return importjob.Import{}, fmt.Errorf("create import: %w", err)
	}
	return created, nil
}

func (r *ImportRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM imports WHERE id = $1 AND status <> 'importing'`, id)
	if err != nil {
		return false, fmt.Errorf("delete import: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ImportRepository) SetStatus(ctx context.Context, id uuid.UUID, status importjob.Status, info *errorinfo.ErrorInfo) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeJSON(info)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE imports SET status = $2, error_info = $3::jsonb, updated_at = now()
		WHERE id = $1`, id, string(status), raw)
	if err != nil {
		return fmt.Errorf("set import status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importjob.ErrNotFound
	}
	return nil
}

func (r *ImportRepository) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to importjob.Status,
	info *errorinfo.ErrorInfo,
) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	raw, err := encodeJSON(info)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE imports SET status = $3, error_info = $4::jsonb, updated_at = now()
		WHERE id = $1 AND status = $2`, id, string(from), string(to), raw)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("transition import status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ImportRepository) ClaimForImport(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE imports SET status = 'importing', error_info = NULL, updated_at = now()
		WHERE id = $1
		  AND status = 'awaitingImport'
		  AND NOT EXISTS (SELECT 1 FROM imports WHERE status = 'importing')`, id)
	if err != nil {
		// imports_single_importing_idx: another claimer won the race
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim import: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ImportRepository) ResetForReprocess(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE imports SET status = 'created', error_info = NULL, import_status = NULL, updated_at = now()
		WHERE id = $1 AND status <> 'importing'`, id)
	if err != nil {
		return false, fmt.Errorf("reset import: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ImportRepository) SetCheckpoint(ctx context.Context, id uuid.UUID, cp *importjob.Checkpoint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeJSON(cp)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE imports SET import_status = $2::jsonb, updated_at = now() WHERE id = $1`, id, raw)
	if err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importjob.ErrNotFound
	}
	return nil
}

func (r *ImportRepository) PromoteAutoProcess(ctx context.Context) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return queryIDs(ctx, tx, `
		UPDATE imports SET status = 'awaitingImport', updated_at = now()
		WHERE status = 'processed' AND auto_process
		RETURNING id`)
}

func (r *ImportRepository) FailStale(ctx context.Context, cutoff time.Time, info *errorinfo.ErrorInfo) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := encodeJSON(info)
	if err != nil {
		return nil, err
	}
	return queryIDs(ctx, tx, `
		UPDATE imports SET status = 'error', error_info = $2::jsonb, updated_at = now()
		WHERE status = 'importing' AND updated_at < $1
		RETURNING id`, cutoff, raw)
}

func (r *ImportRepository) CountByStatus(ctx context.Context, status importjob.Status) (int64, error) {
	return r.Count(ctx, &importjob.FindParams{Statuses: []importjob.Status{status}})
}

func (r *ImportRepository) NextAwaiting(ctx context.Context) (importjob.Import, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importjob.Import{}, err
	}
	imp, err := scanImport(tx.QueryRow(ctx, `
		SELECT `+importColumns+` FROM imports
		WHERE status = 'awaitingImport'
		ORDER BY updated_at, created_at
		LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return importjob.Import{}, importjob.ErrNotFound
	}
	return imp, err
}

func (r *ImportRepository) ListAutoCleanCandidates(ctx context.Context, cutoff time.Time) ([]importjob.Import, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return queryImports(ctx, tx, `
		SELECT `+importColumns+` FROM imports
		WHERE auto_clean
		  AND status NOT IN ('importing', 'awaitingImport')
		  AND created_at < $1
		ORDER BY created_at`, cutoff)
}

func buildImportFilters(params *importjob.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	if params == nil {
		return where, args
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, 0, len(params.Statuses))
		for _, s := range params.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	return where, args
}

func queryImports(ctx context.Context, tx repo.Tx, query string, args ...any) ([]importjob.Import, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importjob.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func queryIDs(ctx context.Context, tx repo.Tx, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanImport(row pgx.Row) (importjob.Import, error) {
	var m models.Import
	if err := row.Scan(
		&m.ID, &m.Status, &m.Source, &m.Type, &m.Filename, &m.ImportMappingID, &m.AutoProcess, &m.AutoClean,
		&m.CheckImportedOnly, &m.ErrorInfo, &m.ImportStatus, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return importjob.Import{}, err
	}
	return toDomainImport(&m)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
