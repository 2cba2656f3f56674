// Package ledgertest holds the behavioural suite every ledger.Store
// implementation must pass.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Factory returns a fresh, empty store. Cleanup should be registered on t.
type Factory func(t *testing.T) ledger.Store

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// Tx builds a transaction for tests.
func Tx(id, owner string, kind core.Kind, cat core.Category, cents int64, occurred time.Time) core.Transaction {
	return core.Transaction{
		ID:         id,
		OwnerID:    owner,
		Kind:       kind,
		Category:   cat,
		Amount:     core.Money{Cents: cents},
		OccurredAt: occurred,
		CreatedAt:  base,
		UpdatedAt:  base,
	}
}

// RunStoreContract exercises ordering, owner isolation and the merged
// not-found/forbidden behaviour of a store.
func RunStoreContract(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		got, err := s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list is newest first and owner scoped", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Tx("a1", "alice", core.Expense, core.Food, 500, base)))
		require.NoError(t, s.Insert(ctx, Tx("a2", "alice", core.Income, core.Salary, 100000, base.Add(48*time.Hour))))
		require.NoError(t, s.Insert(ctx, Tx("a3", "alice", core.Expense, core.Rent, 70000, base.Add(24*time.Hour))))
		require.NoError(t, s.Insert(ctx, Tx("b1", "bob", core.Expense, core.Travel, 900, base.Add(72*time.Hour))))

		got, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"a2", "a3", "a1"}, ids(got))
		for _, tx := range got {
			assert.Equal(t, "alice", tx.OwnerID)
		}

		a2 := got[0]
		assert.Equal(t, core.Income, a2.Kind)
		assert.Equal(t, core.Salary, a2.Category)
		assert.Equal(t, int64(100000), a2.Amount.Cents)
		assert.True(t, a2.OccurredAt.Equal(base.Add(48*time.Hour)))

		got, err = s.List(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"b1"}, ids(got))
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Tx("t1", "alice", core.Expense, core.Food, 500, base)))

		when := base.Add(5 * time.Hour)
		in := core.TransactionInput{Kind: core.Income, Category: core.Other, Amount: core.Money{Cents: 1234}, OccurredAt: when}
		updated, err := s.Update(ctx, "alice", "t1", in, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "t1", updated.ID)
		assert.Equal(t, "alice", updated.OwnerID)
		assert.Equal(t, core.Income, updated.Kind)
		assert.Equal(t, core.Other, updated.Category)
		assert.Equal(t, int64(1234), updated.Amount.Cents)
		assert.True(t, updated.OccurredAt.Equal(when))
		assert.True(t, updated.CreatedAt.Equal(base))

		got, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1234), got[0].Amount.Cents)
	})

	t.Run("update and delete hide foreign and missing records alike", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Tx("t1", "alice", core.Expense, core.Food, 500, base)))
		in := core.TransactionInput{Kind: core.Expense, Category: core.Food, Amount: core.Money{Cents: 1}, OccurredAt: base}

		_, errForeign := s.Update(ctx, "bob", "t1", in, base)
		_, errMissing := s.Update(ctx, "bob", "does-not-exist", in, base)
		require.ErrorIs(t, errForeign, core.ErrNotFoundOrForbidden)
		require.ErrorIs(t, errMissing, core.ErrNotFoundOrForbidden)
		assert.Equal(t, errMissing.Error(), errForeign.Error())

		_, errForeign = s.Delete(ctx, "bob", "t1")
		_, errMissing = s.Delete(ctx, "bob", "does-not-exist")
		require.ErrorIs(t, errForeign, core.ErrNotFoundOrForbidden)
		require.ErrorIs(t, errMissing, core.ErrNotFoundOrForbidden)
		assert.Equal(t, errMissing.Error(), errForeign.Error())

		got, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(500), got[0].Amount.Cents, "foreign update must not apply")
	})

	t.Run("delete is physical and not repeatable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Tx("t1", "alice", core.Expense, core.Food, 500, base)))

		deleted, err := s.Delete(ctx, "alice", "t1")
		require.NoError(t, err)
		assert.Equal(t, "t1", deleted.ID)

		_, err = s.Delete(ctx, "alice", "t1")
		require.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

		got, err := s.List(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("concurrent owners stay isolated", func(t *testing.T) {
		s := newStore(t)
		owners := []string{"alice", "bob", "carol", "dave"}
		const perOwner = 20

		var wg sync.WaitGroup
		errs := make(chan error, len(owners)*perOwner*2)
		for _, owner := range owners {
			wg.Add(1)
			go func(owner string) {
				defer wg.Done()
				for i := 0; i < perOwner; i++ {
					id := fmt.Sprintf("%s-%d", owner, i)
					if err := s.Insert(ctx, Tx(id, owner, core.Expense, core.Food, int64(i+1), base.Add(time.Duration(i)*time.Minute))); err != nil {
						errs <- err
						continue
					}
					// Every other record is deleted by its owner; the rest get
					// probed by a neighbour who must not reach them.
					if i%2 == 0 {
						if _, err := s.Delete(ctx, owner, id); err != nil {
							errs <- err
						}
					}
				}
			}(owner)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for i, owner := range owners {
			neighbour := owners[(i+1)%len(owners)]
			_, err := s.Delete(ctx, neighbour, owner+"-1")
			require.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

			got, err := s.List(ctx, owner)
			require.NoError(t, err)
			assert.Len(t, got, perOwner/2)
			for _, tx := range got {
				assert.Equal(t, owner, tx.OwnerID)
			}
		}
	})
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}
