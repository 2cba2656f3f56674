package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// TransactionService orchestrates ledger writes, change events, analytics
// and forecasts. Every method takes the verified owner id explicitly.
type TransactionService struct {
	store      ledger.Store
	publisher  ledger.EventPublisher
	forecaster forecast.Forecaster
	policy     analytics.Policy
	now        func() time.Time
	newID      func() string
}

type Option func(*TransactionService)

// WithPublisher enables change events. Without one, writes are not published.
func WithPublisher(p ledger.EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithForecaster(f forecast.Forecaster) Option {
	return func(s *TransactionService) { s.forecaster = f }
}

func WithPolicy(p analytics.Policy) Option {
	return func(s *TransactionService) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *TransactionService) { s.newID = newID }
}

func NewTransactionService(store ledger.Store, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:  store,
		policy: analytics.DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the owner's transactions, most recent first.
func (s *TransactionService) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	return s.store.List(ctx, ownerID)
}

// Create validates the input before anything is written, mints the id and
// stamps the owner. A missing date defaults to now.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	now := s.now().UTC()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = now
	}

	t := in.Apply(core.Transaction{
		ID:        s.newID(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := s.store.Insert(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.changed(ctx, ledger.EventCreated, t)
	return t, nil
}

// Update replaces every mutable field of the owner's transaction. The date
// is required.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if in.OccurredAt.IsZero() {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrMissingDate)
	}

	t, err := s.store.Update(ctx, ownerID, id, in, s.now().UTC())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.changed(ctx, ledger.EventUpdated, t)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	t, err := s.store.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.changed(ctx, ledger.EventDeleted, t)
	return nil
}

// Insights recomputes the analytics report from the current ledger state.
func (s *TransactionService) Insights(ctx context.Context, ownerID string) (analytics.Report, error) {
	txs, err := s.store.List(ctx, ownerID)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("budget insights: %w", err)
	}
	return analytics.Analyze(txs, s.policy), nil
}

func (s *TransactionService) Forecast(ctx context.Context, ownerID string, horizon int) ([]forecast.Point, error) {
	if s.forecaster == nil {
		if horizon <= 0 {
			return nil, fmt.Errorf("%w: forecast horizon must be positive, got %d", core.ErrInvalidInput, horizon)
		}
		return nil, fmt.Errorf("%w: forecasting is not configured", core.ErrUpstream)
	}
	return s.forecaster.Forecast(ctx, ownerID, horizon)
}

// Ready reports whether the store can serve requests.
func (s *TransactionService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// changed runs after a successful write. Publishing is best effort: the
// store is the source of truth, so a failed publish is logged and dropped.
func (s *TransactionService) changed(ctx context.Context, typ ledger.EventType, t core.Transaction) {
	fields := applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOwner(t.OwnerID).
		WithTransaction(t.ID, string(t.Kind), string(t.Category), t.Amount.Cents)
	slog.InfoContext(ctx, "Transaction "+string(typ), fields.ToSlice()...)

	if s.forecaster != nil {
		s.forecaster.Invalidate(t.OwnerID)
	}

	if s.publisher == nil {
		return
	}
	event := ledger.Event{Type: typ, Transaction: t, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldTransactionID, t.ID,
			"event", typ,
			applog.FieldError, err)
	}
}

// Close releases the store and publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}
