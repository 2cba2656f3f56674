package sheets

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestRow(t *testing.T) {
	at := time.Date(2025, 2, 3, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	row := Row(core.Transaction{
		ID:         "t1",
		OwnerID:    "alice",
		Kind:       core.Expense,
		Category:   core.Food,
		Amount:     core.Money{Cents: 1230},
		OccurredAt: at,
		CreatedAt:  at,
		UpdatedAt:  at,
	})

	want := []any{"t1", "alice", "2025-02-04", "expense", "Food", "12.30", "2025-02-04T01:30:00Z", "2025-02-04T01:30:00Z"}
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(Header))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d (%v) = %v, want %v", i, Header[i], row[i], want[i])
		}
	}
}

func TestRowIndex(t *testing.T) {
	values := [][]any{
		{"ID", "Owner"},
		{},
		{"t1", "alice"},
		{" t2 ", "bob"},
	}

	tests := []struct {
		id   string
		want int
	}{
		{"t1", 2},
		{"t2", 3},
		{"ID", 0},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := RowIndex(values, tt.id); got != tt.want {
			t.Errorf("RowIndex(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
