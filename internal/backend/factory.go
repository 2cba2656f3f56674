package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type DialFunc func(url, exchange, queue string) (ledger.EventPublisher, error)

type DefaultFactory struct {
	logger *applog.Logger
	dial   DialFunc
}

type FactoryOption func(*DefaultFactory)

// WithDialer replaces the AMQP dialer.
func WithDialer(dial DialFunc) FactoryOption {
	return func(f *DefaultFactory) { f.dial = dial }
}

func NewFactory(logger *applog.Logger, opts ...FactoryOption) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	f := &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial:   dialAMQP,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store ledger.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		store = repo
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	return &Result{
		Store:     store,
		Publisher: f.publisher(ctx, config),
	}, nil
}

// publisher dials the broker. A broker that is down at startup only
// disables events; the ledger keeps working.
func (f *DefaultFactory) publisher(ctx context.Context, config Config) ledger.EventPublisher {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP not configured, transaction events disabled")
		return nil
	}

	p, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
			applog.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return p
}

func dialAMQP(url, exchange, queue string) (ledger.EventPublisher, error) {
	c, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		return nil, err
	}
	return c, nil
}
