package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []Point
		wantErr bool
	}{
		{
			name: "array with bounds",
			body: `[{"ds":"2025-03-01T00:00:00","yhat":10.5,"yhat_lower":8,"yhat_upper":13}]`,
			want: []Point{{Date: day(1), Predicted: 10.5, Lower: 8, Upper: 13}},
		},
		{
			name: "rfc1123 and plain dates",
			body: `[{"ds":"Sun, 02 Mar 2025 00:00:00 GMT","yhat":1},{"ds":"2025-03-03","yhat":2}]`,
			want: []Point{
				{Date: day(2), Predicted: 1, Lower: 1, Upper: 1},
				{Date: day(3), Predicted: 2, Lower: 2, Upper: 2},
			},
		},
		{
			name: "rfc3339 with offset",
			body: `[{"ds":"2025-03-04T01:00:00+01:00","yhat":0}]`,
			want: []Point{{Date: day(4)}},
		},
		{name: "empty array", body: `[]`},
		{name: "error object", body: `{"error":"No data found for this user"}`, wantErr: true},
		{name: "other object", body: `{"points":[]}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "bad date", body: `[{"ds":"yesterday","yhat":1}]`, wantErr: true},
		{name: "missing yhat", body: `[{"ds":"2025-03-01"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUpstream)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPClientFetch(t *testing.T) {
	var gotPath, gotPeriods string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotPeriods = r.URL.Query().Get("periods")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ds":"2025-03-01","yhat":5,"yhat_lower":4,"yhat_upper":6}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	points, err := c.Fetch(context.Background(), "user 1", 7)
	require.NoError(t, err)

	assert.Equal(t, "/api/budget-forecast/user%201", gotPath)
	assert.Equal(t, "7", gotPeriods)
	assert.Equal(t, []Point{{Date: day(1), Predicted: 5, Lower: 4, Upper: 6}}, points)
}

func TestHTTPClientErrors(t *testing.T) {
	t.Run("error body on 500", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model failed"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, time.Second).Fetch(context.Background(), "u", 1)
		assert.ErrorIs(t, err, core.ErrUpstream)
		assert.Contains(t, err.Error(), "model failed")
	})

	t.Run("valid array with bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, time.Second).Fetch(context.Background(), "u", 1)
		assert.ErrorIs(t, err, core.ErrUpstream)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, 20*time.Millisecond).Fetch(context.Background(), "u", 1)
		assert.ErrorIs(t, err, core.ErrUpstream)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewHTTPClient(url, time.Second).Fetch(context.Background(), "u", 1)
		assert.ErrorIs(t, err, core.ErrUpstream)
	})
}
