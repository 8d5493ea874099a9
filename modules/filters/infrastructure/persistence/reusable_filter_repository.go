package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/repo"
)

const filterColumns = "id, title, criteria, change, apply_following_import, position, created_at, updated_at"

type ReusableFilterRepository struct{}

func NewReusableFilterRepository() reusablefilter.Repository {
	return &ReusableFilterRepository{}
}

func (r *ReusableFilterRepository) GetByID(ctx context.Context, id uuid.UUID) (reusablefilter.ReusableFilter, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	f, err := scanFilter(tx.QueryRow(ctx, `SELECT `+filterColumns+` FROM reusable_filters WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return reusablefilter.ReusableFilter{}, reusablefilter.ErrNotFound
	}
	return f, err
}

func (r *ReusableFilterRepository) List(ctx context.Context, params *reusablefilter.FindParams) ([]reusablefilter.ReusableFilter, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where := []string{"1 = 1"}
	var args []any
	if params != nil && params.ApplyFollowingImport != nil {
		where = append(where, "apply_following_import = $1")
		args = append(args, *params.ApplyFollowingImport)
	}
	query := `SELECT ` + filterColumns + ` FROM reusable_filters WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY position, created_at, id`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reusablefilter.ReusableFilter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *ReusableFilterRepository) Create(ctx context.Context, f reusablefilter.ReusableFilter) (reusablefilter.ReusableFilter, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	criteria, change, err := encodeFilter(f)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	created, err := scanFilter(tx.QueryRow(ctx, `
		INSERT INTO reusable_filters (id, title, criteria, change, apply_following_import, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+filterColumns,
		f.ID(), f.Title(), criteria, change, f.ApplyFollowingImport(), f.Position(),
	))
	if err != nil {
		return reusablefilter.ReusableFilter{}, fmt.Errorf("create reusable filter: %w", err)
	}
	return created, nil
}

func (r *ReusableFilterRepository) Update(ctx context.Context, f reusablefilter.ReusableFilter) (reusablefilter.ReusableFilter, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	criteria, change, err := encodeFilter(f)
	if err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	updated, err := scanFilter(tx.QueryRow(ctx, `
		UPDATE reusable_filters
		SET title = $2, criteria = $3, change = $4, apply_following_import = $5, position = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+filterColumns,
		f.ID(), f.Title(), criteria, change, f.ApplyFollowingImport(), f.Position(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return reusablefilter.ReusableFilter{}, reusablefilter.ErrNotFound
	}
	if err != nil {
		return reusablefilter.ReusableFilter{}, fmt.Errorf("update reusable filter: %w", err)
	}
	return updated, nil
}

func (r *ReusableFilterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM reusable_filters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reusablefilter.ErrNotFound
	}
	return nil
}

func (r *ReusableFilterRepository) Apply(ctx context.Context, f reusablefilter.ReusableFilter, importID uuid.UUID) (int64, error) {
	query, args, ok := buildApplyQuery(f, importID)
	if !ok {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("apply filter %s: %w", f.ID(), err)
	}
	return tag.RowsAffected(), nil
}

// buildApplyQuery renders the UPDATE for f scoped to importID. It reports false when the
// filter has nothing to change.
func buildApplyQuery(f reusablefilter.ReusableFilter, importID uuid.UUID) (string, []any, bool) {
	change := f.Change()
	if change.Empty() {
		return "", nil, false
	}

	args := []any{importID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var set []string
	if change.CategoryID != nil {
		set = append(set, "category_id = "+arg(*change.CategoryID))
	}
	if change.BillID != nil {
		set = append(set, "bill_id = "+arg(*change.BillID))
	}
	if change.BudgetID != nil {
		set = append(set, "budget_id = "+arg(*change.BudgetID))
	}
	if change.TagID != nil {
		set = append(set, "tag_id = "+arg(*change.TagID))
	}
	if change.Description != nil {
		set = append(set, "description = "+arg(*change.Description))
	}
	if len(change.AddLabelIDs) > 0 {
		set = append(set, "label_ids = ARRAY(SELECT DISTINCT l FROM unnest(label_ids || "+arg(change.AddLabelIDs)+"::uuid[]) AS l)")
	}
	set = append(set, "updated_at = now()")

	where := []string{"import_id = $1"}
	c := f.Criteria()
	if s := strings.TrimSpace(c.DescriptionContains); s != "" {
		where = append(where, "description ILIKE '%' || "+arg(s)+" || '%'")
	}
	if len(c.AccountIDs) > 0 {
		where = append(where, "account_id = ANY("+arg(c.AccountIDs)+"::uuid[])")
	}
	if len(c.CategoryIDs) > 0 {
		where = append(where, "category_id = ANY("+arg(c.CategoryIDs)+"::uuid[])")
	}
	if c.AmountMin != nil {
		where = append(where, "amount >= "+arg(c.AmountMin.String())+"::numeric")
	}
	if c.AmountMax != nil {
		where = append(where, "amount <= "+arg(c.AmountMax.String())+"::numeric")
	}
	if c.DateFrom != "" {
		where = append(where, "date >= "+arg(c.DateFrom)+"::date")
	}
	if c.DateTo != "" {
		where = append(where, "date <= "+arg(c.DateTo)+"::date")
	}

	query := "UPDATE journal_entries SET " + strings.Join(set, ", ") +
		" WHERE " + strings.Join(where, " AND ")
	return query, args, true
}

func encodeFilter(f reusablefilter.ReusableFilter) ([]byte, []byte, error) {
	criteria, err := json.Marshal(f.Criteria())
	if err != nil {
		return nil, nil, err
	}
	var change []byte
	if f.Change() != nil {
		if change, err = json.Marshal(f.Change()); err != nil {
			return nil, nil, err
		}
	}
	return criteria, change, nil
}

func scanFilter(row pgx.Row) (reusablefilter.ReusableFilter, error) {
	var (
		id                   uuid.UUID
		title                string
		criteriaRaw          []byte
		changeRaw            []byte
		applyFollowingImport bool
		position             int
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &title, &criteriaRaw, &changeRaw, &applyFollowingImport, &position, &createdAt, &updatedAt); err != nil {
		return reusablefilter.ReusableFilter{}, err
	}
	var criteria reusablefilter.Criteria
	if len(criteriaRaw) > 0 {
		if err := json.Unmarshal(criteriaRaw, &criteria); err != nil {
			return reusablefilter.ReusableFilter{}, fmt.Errorf("decode criteria of filter %s: %w", id, err)
		}
	}
	var change *reusablefilter.Change
	if len(changeRaw) > 0 {
		change = &reusablefilter.Change{}
		if err := json.Unmarshal(changeRaw, change); err != nil {
			return reusablefilter.ReusableFilter{}, fmt.Errorf("decode change of filter %s: %w", id, err)
		}
	}
	return reusablefilter.Hydrate(id, title, criteria, change, applyFollowingImport, position, createdAt, updatedAt), nil
}
