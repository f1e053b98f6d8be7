package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendlog/internal/amqp"
	"spendlog/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
	// dial is swapped in tests.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case FileBackend:
		res, err = f.createFileBackend(ctx, config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend(ctx)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachAMQP(ctx, config, res)
	return res, nil
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := storage.NewFileStore(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initialize file store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized file backend", "data_dir", config.DataDir)
	return &Result{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *Result {
	f.logger.InfoContext(ctx, "Initialized memory backend, changes will not survive a restart")
	return &Result{Store: storage.NewMemoryStore()}
}

// attachAMQP connects the optional change feed. A broker that cannot be
// reached is logged and skipped: the tracker works without it.
func (f *DefaultFactory) attachAMQP(ctx context.Context, config Config, res *Result) {
	if config.AMQPURL == "" {
		return
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change feed", "error", err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.AMQP = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
		if storeCleanup != nil {
			errs = append(errs, storeCleanup())
		}
		return errors.Join(errs...)
	}
}
