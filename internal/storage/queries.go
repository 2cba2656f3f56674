package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so that lexical order in SQLite matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const transactionColumns = `id, owner_id, kind, category, amount_cents, occurred_at, created_at, updated_at`

// Queries wraps the SQL statements used by the repository.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// TransactionRow mirrors a row of the transactions table.
type TransactionRow struct {
	ID          string
	OwnerID     string
	Kind        string
	Category    string
	AmountCents int64
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (TransactionRow, error) {
	var (
		row                              TransactionRow
		occurredAt, createdAt, updatedAt string
	)
	if err := s.Scan(&row.ID, &row.OwnerID, &row.Kind, &row.Category, &row.AmountCents, &occurredAt, &createdAt, &updatedAt); err != nil {
		return TransactionRow{}, err
	}
	var err error
	if row.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
		return TransactionRow{}, fmt.Errorf("parse occurred_at %q: %w", occurredAt, err)
	}
	if row.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return TransactionRow{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if row.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return TransactionRow{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return row, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const listTransactionsByOwner = `SELECT ` + transactionColumns + `
FROM transactions
WHERE owner_id = ?
ORDER BY occurred_at DESC, created_at DESC, id DESC`

func (q *Queries) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		row, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, row TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		row.ID, row.OwnerID, row.Kind, row.Category, row.AmountCents,
		formatTime(row.OccurredAt), formatTime(row.CreatedAt), formatTime(row.UpdatedAt))
	return err
}

const updateTransaction = `UPDATE transactions
SET kind = ?, category = ?, amount_cents = ?, occurred_at = ?, updated_at = ?
WHERE id = ? AND owner_id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          string
	OwnerID     string
	Kind        string
	Category    string
	AmountCents int64
	OccurredAt  time.Time
	UpdatedAt   time.Time
}

// UpdateTransaction returns sql.ErrNoRows when (id, owner) matches nothing.
func (q *Queries) UpdateTransaction(ctx context.Context, p UpdateTransactionParams) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, updateTransaction,
		p.Kind, p.Category, p.AmountCents, formatTime(p.OccurredAt), formatTime(p.UpdatedAt),
		p.ID, p.OwnerID))
}

const deleteTransaction = `DELETE FROM transactions
WHERE id = ? AND owner_id = ?
RETURNING ` + transactionColumns

// DeleteTransaction returns sql.ErrNoRows when (id, owner) matches nothing.
func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, deleteTransaction, id, ownerID))
}
