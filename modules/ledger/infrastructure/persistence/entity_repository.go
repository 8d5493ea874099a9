package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/repo"
)

const entityColumns = "id, title, type, status, import_id, import_detail_id, created_at, updated_at"

type EntityRepository struct{}

func NewEntityRepository() entity.Repository {
	return &EntityRepository{}
}

func tableFor(kind entity.Kind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
	return table, nil
}

func (r *EntityRepository) GetByID(ctx context.Context, kind entity.Kind, id uuid.UUID) (entity.Entity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return entity.Entity{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return entity.Entity{}, err
	}
	row := tx.QueryRow(ctx, `SELECT `+entityColumns+` FROM `+table+` WHERE id = $1`, id)
	e, err := scanEntity(row, kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Entity{}, entity.ErrNotFound
	}
	return e, err
}

func (r *EntityRepository) FindByTitle(ctx context.Context, kind entity.Kind, title string) (entity.Entity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return entity.Entity{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return entity.Entity{}, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM `+table+` WHERE lower(title) = lower($1)`,
		strings.TrimSpace(title),
	)
	e, err := scanEntity(row, kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Entity{}, entity.ErrNotFound
	}
	return e, err
}

func (r *EntityRepository) List(ctx context.Context, kind entity.Kind, params *entity.FindParams) ([]entity.Entity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	var args []any
	if params != nil && len(params.Statuses) > 0 {
		statuses := make([]string, 0, len(params.Statuses))
		for _, s := range params.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "status = ANY($1)")
		args = append(args, statuses)
	}
	query := `SELECT ` + entityColumns + ` FROM ` + table + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY title`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Entity
	for rows.Next() {
		e, err := scanEntity(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EntityRepository) Create(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	table, err := tableFor(e.Kind())
	if err != nil {
		return entity.Entity{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return entity.Entity{}, err
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO `+table+` (id, title, type, status, import_id, import_detail_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+entityColumns,
		e.ID(), e.Title(), e.Type(), string(e.Status()), e.ImportID(), e.ImportDetailID(),
	)
	created, err := scanEntity(row, e.Kind())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.Entity{}, entity.ErrTitleTaken
		}
		return entity.Entity{}, fmt.Errorf("create %s: %w", e.Kind(), err)
	}
	return created, nil
}

func (r *EntityRepository) ClearImport(ctx context.Context, kind entity.Kind, importID uuid.UUID) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE `+table+`
		SET import_id = NULL, import_detail_id = NULL, updated_at = now()
		WHERE import_id = $1`, importID)
	if err != nil {
		return 0, fmt.Errorf("clear %s import refs: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (r *EntityRepository) CountByImport(ctx context.Context, kind entity.Kind, importID uuid.UUID) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE import_id = $1`, importID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanEntity(row pgx.Row, kind entity.Kind) (entity.Entity, error) {
	var (
		id             uuid.UUID
		title, typ     string
		status         string
		importID       *uuid.UUID
		importDetailID *uuid.UUID
		m              timestamps
	)
	if err := row.Scan(&id, &title, &typ, &status, &importID, &importDetailID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return entity.Entity{}, err
	}
	return entity.Hydrate(id, kind, title, typ, entity.Status(status), importID, importDetailID, m.CreatedAt, m.UpdatedAt), nil
}
