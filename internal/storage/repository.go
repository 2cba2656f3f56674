package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so the schema is in place.
	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// dsn enables WAL and a busy timeout so concurrent requests wait for the
// writer lock instead of failing immediately.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements ledger.Store
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", core.ErrStorage, err)
	}
	return nil
}

// List implements ledger.Store
func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", core.ErrStorage, err)
	}

	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = toCore(row)
	}
	return out, nil
}

// Insert implements ledger.Store
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) error {
	err := r.queries.InsertTransaction(ctx, TransactionRow{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Kind:        string(t.Kind),
		Category:    string(t.Category),
		AmountCents: t.Amount.Cents,
		OccurredAt:  t.OccurredAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %w", core.ErrStorage, err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"kind", t.Kind,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)
	return nil
}

// Update implements ledger.Store
func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, in core.TransactionInput, updatedAt time.Time) (core.Transaction, error) {
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          id,
		OwnerID:     ownerID,
		Kind:        string(in.Kind),
		Category:    string(in.Category),
		AmountCents: in.Amount.Cents,
		OccurredAt:  in.OccurredAt,
		UpdatedAt:   updatedAt,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFoundOrForbidden
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: update transaction: %w", core.ErrStorage, err)
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite", "id", id, "owner_id", ownerID)
	return toCore(row), nil
}

// Delete implements ledger.Store
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row, err := r.queries.DeleteTransaction(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFoundOrForbidden
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: delete transaction: %w", core.ErrStorage, err)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "owner_id", ownerID)
	return toCore(row), nil
}

func toCore(row TransactionRow) core.Transaction {
	return core.Transaction{
		ID:         row.ID,
		OwnerID:    row.OwnerID,
		Kind:       core.Kind(row.Kind),
		Category:   core.Category(row.Category),
		Amount:     core.Money{Cents: row.AmountCents},
		OccurredAt: row.OccurredAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
