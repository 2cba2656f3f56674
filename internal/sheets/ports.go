// Package sheets mirrors the ledger into a spreadsheet, one row per
// transaction keyed by its id in the first column.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter keeps an external copy of the ledger in sync.
	// Both methods are idempotent so redelivered events are harmless.
	TransactionExporter interface {
		// Upsert rewrites the row holding t.ID, or appends one.
		Upsert(ctx context.Context, t core.Transaction) error
		// Remove deletes the row holding id. A missing row is not an error.
		Remove(ctx context.Context, id string) error
	}
)

const dateLayout = "2006-01-02"

// Header is the first row of the export sheet.
var Header = []any{"ID", "Owner", "Date", "Type", "Category", "Amount", "Created", "Updated"}

// Row renders t in Header's column order. The amount is a plain decimal
// string so the sheet parses it as a number without float noise.
func Row(t core.Transaction) []any {
	return []any{
		t.ID,
		t.OwnerID,
		t.OccurredAt.UTC().Format(dateLayout),
		string(t.Kind),
		string(t.Category),
		t.Amount.String(),
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// RowIndex returns the zero-based index of the row whose first cell is id,
// or -1.
func RowIndex(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}
