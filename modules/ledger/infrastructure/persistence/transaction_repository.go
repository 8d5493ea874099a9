package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/pkg/composables"
)

type TransactionRepository struct{}

func NewTransactionRepository() transaction.Repository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (transaction.Transaction, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	var (
		date           time.Time
		description    string
		uniqueID       *string
		importID       *uuid.UUID
		importDetailID *uuid.UUID
		createdAt      time.Time
		amount         string
		entry          transaction.Entry
	)
	err = tx.QueryRow(ctx, `
		SELECT t.date, t.description, t.unique_id, t.import_id, t.import_detail_id, t.created_at,
		       j.account_id, j.amount::text, j.category_id, j.bill_id, j.budget_id, j.tag_id, j.label_ids
		FROM transactions t
		JOIN journal_entries j ON j.transaction_id = t.id
		WHERE t.id = $1
		LIMIT 1`, id,
	).Scan(
		&date, &description, &uniqueID, &importID, &importDetailID, &createdAt,
		&entry.AccountID, &amount, &entry.CategoryID, &entry.BillID, &entry.BudgetID, &entry.TagID, &entry.LabelIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transaction.Transaction{}, transaction.ErrNotFound
		}
		return transaction.Transaction{}, err
	}
	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("parse stored amount: %w", err)
	}
	return transaction.Hydrate(id, date, description, uniqueID, entry, importID, importDetailID, createdAt), nil
}

// Create writes the transaction row and its journal entry. Run it inside a transaction.
func (r *TransactionRepository) Create(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return transaction.Transaction{}, err
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, date, description, unique_id, import_id, import_detail_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		t.ID(), t.Date(), t.Description(), t.UniqueID(), t.ImportID(), t.ImportDetailID(),
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transaction.Transaction{}, transaction.ErrDuplicateUniqueID
		}
		return transaction.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	e := t.Entry()
	labels := e.LabelIDs
	if labels == nil {
		labels = []uuid.UUID{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO journal_entries (
			transaction_id, date, description, account_id, amount,
			category_id, bill_id, budget_id, tag_id, label_ids, import_id, import_detail_id
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID(), t.Date(), t.Description(), e.AccountID, e.Amount.String(),
		e.CategoryID, e.BillID, e.BudgetID, e.TagID, labels, t.ImportID(), t.ImportDetailID(),
	); err != nil {
		return transaction.Transaction{}, fmt.Errorf("insert journal entry: %w", err)
	}

	return transaction.Hydrate(t.ID(), t.Date(), t.Description(), t.UniqueID(), e, t.ImportID(), t.ImportDetailID(), createdAt), nil
}

func (r *TransactionRepository) ExistingUniqueIDs(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT unique_id FROM transactions WHERE unique_id = ANY($1)`, keys)
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

func (r *TransactionRepository) ClearImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE journal_entries SET import_id = NULL, import_detail_id = NULL, updated_at = now()
		WHERE import_id = $1`, importID); err != nil {
		return 0, fmt.Errorf("clear journal import refs: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE transactions SET import_id = NULL, import_detail_id = NULL, updated_at = now()
		WHERE import_id = $1`, importID)
	if err != nil {
		return 0, fmt.Errorf("clear transaction import refs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionRepository) CountByImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE import_id = $1`, importID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
