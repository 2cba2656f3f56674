// Package analytics derives budget signals from a snapshot of one owner's
// transactions. Everything here is pure: no storage, no clocks.
package analytics

import (
	"fmt"
	"math/bits"

	"github.com/dustin/go-humanize"

	"fintrack/internal/core"
)

// Analyze never fails. Empty input yields zero totals, empty maps and no
// anomalies.
func Analyze(txs []core.Transaction, p Policy) Report {
	r := Report{
		CategoryExpenses: make(map[core.Category]core.Money),
		SuggestedBudget:  make(map[core.Category]core.Money),
		Anomalies:        make(map[core.Category]string),
		ShareOfIncome:    make(map[core.Category]Ratio),
		Strategy:         p.Strategy,
		TransactionCount: len(txs),
	}

	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			r.TotalIncome.Cents += t.Amount.Cents
		case core.Expense:
			r.TotalExpense.Cents += t.Amount.Cents
			spent := r.CategoryExpenses[t.Category]
			spent.Cents += t.Amount.Cents
			r.CategoryExpenses[t.Category] = spent
		}
	}
	// A category only appears once it has non-zero spend.
	for c, m := range r.CategoryExpenses {
		if m.Cents == 0 {
			delete(r.CategoryExpenses, c)
		}
	}
	r.Net.Cents = r.TotalIncome.Cents - r.TotalExpense.Cents

	income := r.TotalIncome.Cents
	r.ExpenseRatio = ratio(r.TotalExpense.Cents, income)
	r.SavingsRate = ratio(r.Net.Cents, income)
	for c, m := range r.CategoryExpenses {
		r.ShareOfIncome[c] = ratio(m.Cents, income)
	}

	if income == 0 {
		r.InsufficientData = true
		return r
	}

	r.SuggestedBudget = allocate(income, r.CategoryExpenses, r.TotalExpense.Cents, p)
	r.Anomalies = detectAnomalies(r.CategoryExpenses, r.SuggestedBudget, p.AnomalyThreshold)
	return r
}

func allocate(income int64, spent map[core.Category]core.Money, totalExpense int64, p Policy) map[core.Category]core.Money {
	out := make(map[core.Category]core.Money)
	put := func(c core.Category, cents int64) {
		if cents > 0 {
			out[c] = core.Money{Cents: cents}
		}
	}

	switch {
	case p.Strategy == Proportional && totalExpense > 0:
		for c, m := range spent {
			put(c, mulDiv(income, m.Cents, totalExpense))
		}
	case p.Strategy == Proportional:
		n := int64(len(core.ExpenseCategories))
		for _, c := range core.ExpenseCategories {
			put(c, income/n)
		}
	default:
		for c, w := range p.Weights {
			put(c, mulDiv(income, w, basisPoints))
		}
	}
	return out
}

// mulDiv returns floor(a*b/c) for non-negative a, b and b <= c, without
// overflowing the intermediate product.
func mulDiv(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}

func detectAnomalies(spent, suggested map[core.Category]core.Money, threshold float64) map[core.Category]string {
	out := make(map[core.Category]string)
	for c, actual := range spent {
		limit, ok := suggested[c]
		if !ok {
			out[c] = fmt.Sprintf("You spent %s on %s, which has no suggested budget", amount(actual), c)
			continue
		}
		if float64(actual.Cents) > float64(limit.Cents)*(1+threshold) {
			over := float64(actual.Cents-limit.Cents) / float64(limit.Cents) * 100
			out[c] = fmt.Sprintf("You spent %s on %s, %s%% over the suggested %s",
				amount(actual), c, humanize.FormatFloat("#,###.", over), amount(limit))
		}
	}
	return out
}

func amount(m core.Money) string {
	return humanize.FormatFloat("#,###.##", m.Units())
}
