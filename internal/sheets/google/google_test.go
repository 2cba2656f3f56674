package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the handful of Sheets v4 endpoints the client uses,
// backed by an in-memory grid.
type fakeSheets struct {
	mu       sync.Mutex
	rows     [][]any
	metaHits int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(p, "/values/"):
		col := make([][]any, len(f.rows))
		for i, row := range f.rows {
			col[i] = row[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": col})

	case r.Method == http.MethodPut && strings.Contains(p, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		n := rowNumber(p)
		f.rows[n-1] = vr.Values[0]
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && strings.HasSuffix(p, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && strings.HasSuffix(p, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if d := rq.DeleteDimension; d != nil && d.Range.SheetId == 7 {
				f.rows = append(f.rows[:d.Range.StartIndex], f.rows[d.Range.EndIndex:]...)
			}
		}
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodGet:
		f.metaHits++
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"sheetId":3,"title":"Other"}},{"properties":{"sheetId":7,"title":"My Transactions"}}]}`))

	default:
		http.Error(w, "unexpected "+r.Method+" "+p, http.StatusNotFound)
	}
}

// rowNumber extracts n from a range like "'Sheet'!A5:H5".
func rowNumber(path string) int {
	cells := path[strings.LastIndex(path, "!")+1:]
	cells = strings.TrimPrefix(cells, "A")
	n, _ := strconv.Atoi(cells[:strings.Index(cells, ":")])
	return n
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "spreadsheet", "My Transactions"), fake
}

func tx(id string, cents int64) core.Transaction {
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return core.Transaction{
		ID: id, OwnerID: "alice", Kind: core.Expense, Category: core.Food,
		Amount: core.Money{Cents: cents}, OccurredAt: at, CreatedAt: at, UpdatedAt: at,
	}
}

func ids(rows [][]any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r[0].(string)
	}
	return out
}

func TestClientMirrorsLedger(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, tx("t1", 100)); err != nil {
		t.Fatalf("Upsert t1: %v", err)
	}
	if err := c.Upsert(ctx, tx("t2", 200)); err != nil {
		t.Fatalf("Upsert t2: %v", err)
	}
	if got := strings.Join(ids(fake.rows), ","); got != "ID,t1,t2" {
		t.Fatalf("rows after appends = %s", got)
	}

	if err := c.Upsert(ctx, tx("t1", 999)); err != nil {
		t.Fatalf("Upsert t1 again: %v", err)
	}
	if len(fake.rows) != 3 || fake.rows[1][5] != "9.99" {
		t.Fatalf("t1 should be rewritten in place, rows = %v", fake.rows)
	}

	if err := c.Remove(ctx, "t1"); err != nil {
		t.Fatalf("Remove t1: %v", err)
	}
	if got := strings.Join(ids(fake.rows), ","); got != "ID,t2" {
		t.Fatalf("rows after delete = %s", got)
	}
	if err := c.Remove(ctx, "t1"); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}

	if err := c.Remove(ctx, "t2"); err != nil {
		t.Fatalf("Remove t2: %v", err)
	}
	if fake.metaHits != 1 {
		t.Errorf("sheet id should be resolved once, got %d lookups", fake.metaHits)
	}
}

func TestA1QuotesSheetName(t *testing.T) {
	c := NewWithService(nil, "id", "Bob's Sheet")
	if got := c.a1("A:A"); got != "'Bob''s Sheet'!A:A" {
		t.Errorf("a1() = %q", got)
	}
	if NewWithService(nil, "id", "").sheetName != "Transactions" {
		t.Error("empty sheet name should default to Transactions")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), Config{}); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Errorf("expected missing spreadsheet id error, got %v", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}); err == nil {
		t.Error("expected error for unreadable credentials file")
	}
}
