// Package backend builds the persistence substrate and change feed a
// TransactionStore runs on, from configuration.
package backend

import (
	"context"

	"spendlog/internal/amqp"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result holds the blob store and the optional publisher a store is
// opened with.
type Result struct {
	Store storage.BlobStore
	// AMQP is nil when the change feed is disabled or unreachable.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// StoreOptions returns the options that connect a TransactionStore to
// the change feed, if any.
func (r *Result) StoreOptions() []services.StoreOption {
	if r.AMQP == nil {
		return nil
	}
	return []services.StoreOption{services.WithPublisher(r.AMQP)}
}

// Close runs Cleanup once it is set.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// File backend
	DataDir string

	// SQLite backend
	SQLiteDBPath string

	// Optional change feed, any backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	FileBackend   BackendType = "file"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
