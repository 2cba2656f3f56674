// Package memory is a process-local ledger.Store used for the memory backend
// and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps transactions per owner behind a single mutex.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]core.Transaction
}

func New() *Store {
	return &Store{byOwner: make(map[string]map[string]core.Transaction)}
}

func (s *Store) List(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.byOwner[ownerID]
	out := make([]core.Transaction, 0, len(items))
	for _, t := range items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Insert(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.byOwner[t.OwnerID]
	if !ok {
		items = make(map[string]core.Transaction)
		s.byOwner[t.OwnerID] = items
	}
	items[t.ID] = t
	return nil
}

func (s *Store) Update(_ context.Context, ownerID, id string, in core.TransactionInput, updatedAt time.Time) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byOwner[ownerID][id]
	if !ok {
		return core.Transaction{}, core.ErrNotFoundOrForbidden
	}
	t = in.Apply(t)
	t.UpdatedAt = updatedAt
	s.byOwner[ownerID][id] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byOwner[ownerID][id]
	if !ok {
		return core.Transaction{}, core.ErrNotFoundOrForbidden
	}
	delete(s.byOwner[ownerID], id)
	return t, nil
}

func (s *Store) Ping(context.Context) error { return nil }
