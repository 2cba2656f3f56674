// Package memory is a process-local TransactionExporter. The worker uses it
// as a dry-run target when no spreadsheet is configured.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.TransactionExporter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

func New() *Store {
	return &Store{}
}

func (s *Store) Upsert(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(t.ID); i >= 0 {
		s.rows[i] = t
	} else {
		s.rows = append(s.rows, t)
	}
	slog.DebugContext(ctx, "Exported transaction to memory sheet", "transaction_id", t.ID, "rows", len(s.rows))
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(id); i >= 0 {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of the exported rows in sheet order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.rows, func(t core.Transaction) bool { return t.ID == id })
}
