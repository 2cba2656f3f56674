package core

import (
	"fmt"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Food          Category = "Food"
	Rent          Category = "Rent"
	Entertainment Category = "Entertainment"
	Travel        Category = "Travel"
	Health        Category = "Health"
	Shopping      Category = "Shopping"
	Salary        Category = "Salary"
	Other         Category = "Other"
)

// MaxAmount is the largest magnitude a single transaction may carry (1,000,000,000.00).
var MaxAmount = Money{Cents: 100_000_000_000}

type (
	// Kind says whether a transaction adds to or subtracts from the balance.
	Kind string

	// Category is the fixed spending/earning bucket of a transaction.
	Category string

	Money struct {
		Cents int64
	}

	// Transaction is the only persisted entity. OwnerID is stamped from the
	// verified caller and never changes after creation.
	Transaction struct {
		ID         string
		OwnerID    string
		Kind       Kind
		Category   Category
		Amount     Money
		OccurredAt time.Time
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// TransactionInput carries the client-controlled fields of a Create or
	// Update. A zero OccurredAt means "not supplied".
	TransactionInput struct {
		Kind       Kind
		Category   Category
		Amount     Money
		OccurredAt time.Time
	}
)

// Kinds and Categories are the canonical enumerations. Every validating
// operation goes through ParseKind/ParseCategory, which read these.
var (
	Kinds      = []Kind{Income, Expense}
	Categories = []Category{Food, Rent, Entertainment, Travel, Health, Shopping, Salary, Other}
)

// ExpenseCategories lists the categories that budget allocation spreads
// income across when no other weighting applies.
var ExpenseCategories = []Category{Food, Rent, Entertainment, Travel, Health, Shopping, Other}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseKind returns the Kind named by s or an ErrInvalidInput error.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: invalid transaction type %q (must be one of %v)", ErrInvalidInput, s, Kinds)
	}
	return k, nil
}

// ParseCategory returns the Category named by s or an ErrInvalidInput error.
// Matching is exact; "food" is not "Food".
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: invalid category %q (must be one of %v)", ErrInvalidInput, s, Categories)
	}
	return c, nil
}

// Validate checks the magnitude bounds. Sign is carried by Kind, so a
// negative amount is never valid.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrNegativeAmount)
	}
	if m.Cents > MaxAmount.Cents {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrAmountTooLarge)
	}
	return nil
}

// Validate checks every client-controlled field. It never touches storage.
func (in TransactionInput) Validate() error {
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: invalid transaction type %q", ErrInvalidInput, in.Kind)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: invalid category %q", ErrInvalidInput, in.Category)
	}
	return in.Amount.Validate()
}

// Apply replaces every mutable field of t with the input values.
func (in TransactionInput) Apply(t Transaction) Transaction {
	t.Kind = in.Kind
	t.Category = in.Category
	t.Amount = in.Amount
	t.OccurredAt = in.OccurredAt
	return t
}
