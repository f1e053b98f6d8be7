// Package storage provides the key-value blob stores that persist the
// transaction collection.
package storage

import (
	"context"
	"errors"
)

// TransactionsKey is the fixed key under which the whole collection is stored.
const TransactionsKey = "transactions"

var ErrNotFound = errors.New("blob not found")

// BlobStore is an opaque key-value store. Each Put replaces the value
// wholesale; there are no partial or append writes.
type BlobStore interface {
	// Get returns the value for key, or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}
