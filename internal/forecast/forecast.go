// Package forecast is the boundary to the external forecasting service.
//
// The Adapter validates the horizon before any call goes out, normalizes
// whatever the service returns into an ascending series, and caches results
// per owner until the owner's ledger changes.
package forecast

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// DefaultHorizon is used when the caller does not ask for a specific one.
const DefaultHorizon = 30

type Point struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Source fetches a raw series for one owner. Implementations may return
// points out of order, duplicated, or fewer than asked for.
type Source interface {
	Fetch(ctx context.Context, ownerID string, horizon int) ([]Point, error)
}

// Forecaster is what the rest of the application depends on.
type Forecaster interface {
	Forecast(ctx context.Context, ownerID string, horizon int) ([]Point, error)
	Invalidate(ownerID string)
}

type Adapter struct {
	source     Source
	maxHorizon int
	cache      cache.Cache[[]Point]

	// generations counts invalidations per owner. A fetch only fills the
	// cache if no invalidation happened while it was in flight.
	mu          sync.Mutex
	generations map[string]uint64
}

var _ Forecaster = (*Adapter)(nil)

type Option func(*Adapter)

// WithMaxHorizon caps the horizon a caller may request. Zero disables the cap.
func WithMaxHorizon(n int) Option {
	return func(a *Adapter) { a.maxHorizon = n }
}

func WithCache(c cache.Cache[[]Point]) Option {
	return func(a *Adapter) { a.cache = c }
}

func NewAdapter(source Source, opts ...Option) *Adapter {
	a := &Adapter{source: source, generations: make(map[string]uint64)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Forecast returns at most horizon points in ascending date order. A short
// series from the service is not an error.
func (a *Adapter) Forecast(ctx context.Context, ownerID string, horizon int) ([]Point, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: forecast horizon must be positive, got %d", core.ErrInvalidInput, horizon)
	}
	if a.maxHorizon > 0 && horizon > a.maxHorizon {
		return nil, fmt.Errorf("%w: forecast horizon must be at most %d, got %d", core.ErrInvalidInput, a.maxHorizon, horizon)
	}

	key := cacheKey(ownerID, horizon)
	if a.cache != nil {
		if points, ok := a.cache.Get(key); ok {
			return slices.Clone(points), nil
		}
	}

	gen := a.generation(ownerID)
	raw, err := a.source.Fetch(ctx, ownerID, horizon)
	if err != nil {
		slog.WarnContext(ctx, "Forecast service call failed", "owner_id", ownerID, "horizon", horizon, "error", err)
		if !errors.Is(err, core.ErrUpstream) {
			err = fmt.Errorf("%w: %w", core.ErrUpstream, err)
		}
		return nil, err
	}

	points := Normalize(raw, horizon)
	if a.cache != nil {
		a.mu.Lock()
		if a.generations[ownerID] == gen {
			a.cache.Set(key, slices.Clone(points))
		}
		a.mu.Unlock()
	}
	return points, nil
}

// Invalidate drops every cached series for the owner, including any fetch
// still in flight.
func (a *Adapter) Invalidate(ownerID string) {
	if a.cache == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generations[ownerID]++
	a.cache.DeletePrefix(ownerID + "|")
}

func (a *Adapter) generation(ownerID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generations[ownerID]
}

// Normalize drops later duplicates of a date, sorts ascending and truncates
// to horizon.
func Normalize(raw []Point, horizon int) []Point {
	seen := make(map[time.Time]struct{}, len(raw))
	out := make([]Point, 0, len(raw))
	for _, p := range raw {
		d := p.Date.UTC()
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		p.Date = d
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b Point) int { return cmp.Compare(a.Date.UnixNano(), b.Date.UnixNano()) })
	if len(out) > horizon {
		out = out[:horizon]
	}
	return out
}

func cacheKey(ownerID string, horizon int) string {
	return ownerID + "|" + strconv.Itoa(horizon)
}
