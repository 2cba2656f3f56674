package analytics

import (
	"math"
	"strconv"

	"fintrack/internal/core"
)

// Ratio is a fraction that may be undefined when its denominator is zero.
// Callers must treat an undefined ratio as insufficient data.
type Ratio struct {
	Value   float64
	Defined bool
}

func undefined() Ratio { return Ratio{} }

func ratio(num, den int64) Ratio {
	if den == 0 {
		return undefined()
	}
	return Ratio{Value: float64(num) / float64(den), Defined: true}
}

// MarshalJSON emits the ratio rounded to four decimals, or the string
// "undefined".
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return []byte(`"undefined"`), nil
	}
	return strconv.AppendFloat(nil, math.Round(r.Value*10_000)/10_000, 'f', -1, 64), nil
}

func (r Ratio) String() string {
	if !r.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.Value*100, 'f', 1, 64) + "%"
}

// Report is the derived, never persisted, view of one owner's ledger.
type Report struct {
	TotalIncome      core.Money                   `json:"total_income"`
	TotalExpense     core.Money                   `json:"total_expense"`
	Net              core.Money                   `json:"net"`
	CategoryExpenses map[core.Category]core.Money `json:"category_expenses"`
	SuggestedBudget  map[core.Category]core.Money `json:"suggested_budget"`
	Anomalies        map[core.Category]string     `json:"anomalies"`
	ExpenseRatio     Ratio                        `json:"expense_ratio"`
	SavingsRate      Ratio                        `json:"savings_rate"`
	ShareOfIncome    map[core.Category]Ratio      `json:"share_of_income"`
	InsufficientData bool                         `json:"insufficient_data"`
	Strategy         Strategy                     `json:"strategy"`
	TransactionCount int                          `json:"transaction_count"`
}
