package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/storage"
)

// ErrPersistence marks a mutation that was applied in memory but could not
// be written to the blob store.
var ErrPersistence = errors.New("changes are kept in memory only")

// PersistWarning is returned together with a successful result when the
// write-through failed. The store keeps running in memory-only mode.
type PersistWarning struct {
	Err error
}

func (w *PersistWarning) Error() string {
	return fmt.Sprintf("%v: %v", ErrPersistence, w.Err)
}

func (w *PersistWarning) Unwrap() error { return w.Err }

func (w *PersistWarning) Is(target error) bool { return target == ErrPersistence }

// EventPublisher announces collection changes to downstream consumers.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

type StoreState string

const (
	StateEmpty     StoreState = "empty"
	StatePopulated StoreState = "populated"
)

// TransactionStore owns the ordered transaction collection and writes the
// whole collection through to the blob store on every mutation.
type TransactionStore struct {
	blobs     storage.BlobStore
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger

	mu         sync.Mutex
	items      []core.Transaction
	lastID     int64
	memoryOnly bool
	listeners  []func()
}

type StoreOption func(*TransactionStore)

func WithPublisher(p EventPublisher) StoreOption {
	return func(s *TransactionStore) { s.publisher = p }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *TransactionStore) { s.now = now }
}

func WithLogger(l *slog.Logger) StoreOption {
	return func(s *TransactionStore) { s.logger = l }
}

// OpenTransactionStore loads the collection from blobs. An absent key
// yields an empty collection. Records that fail validation or repeat an
// id are dropped with a warning.
func OpenTransactionStore(ctx context.Context, blobs storage.BlobStore, opts ...StoreOption) (*TransactionStore, error) {
	s := &TransactionStore{
		blobs:  blobs,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := blobs.Get(ctx, storage.TransactionsKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.InfoContext(ctx, "No stored transactions, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	seen := make(map[int64]struct{}, len(records))
	for i, rec := range records {
		var tx core.Transaction
		if err := json.Unmarshal(rec, &tx); err != nil {
			s.logger.WarnContext(ctx, "Dropping undecodable stored transaction", "index", i, "error", err)
			continue
		}
		if err := tx.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Dropping invalid stored transaction", "id", tx.ID, "error", err)
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			s.logger.WarnContext(ctx, "Dropping duplicate stored transaction", "id", tx.ID)
			continue
		}
		seen[tx.ID] = struct{}{}
		s.items = append(s.items, tx)
		s.lastID = max(s.lastID, tx.ID)
	}

	s.logger.InfoContext(ctx, "Loaded transactions", "count", len(s.items))
	return s, nil
}

// OnChange registers fn to run after every successful mutation.
func (s *TransactionStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Add validates the candidate and appends the new record. On a persistence
// failure the record is still returned, together with a *PersistWarning.
func (s *TransactionStore) Add(ctx context.Context, c core.Candidate) (core.Transaction, error) {
	s.mu.Lock()
	now := s.now()
	tx, err := core.NewTransaction(c, s.peekID(now), now)
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	s.lastID = tx.ID
	s.items = append(s.items, tx)
	persistErr := s.persistLocked(ctx)
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction added",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category)

	notify(listeners)
	s.publish(ctx, amqp.NewCreatedEvent(tx))
	return tx, persistErr
}

// Remove deletes the transaction with id. It returns an error wrapping
// core.ErrNotFound when no such id exists.
func (s *TransactionStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	idx := -1
	for i, tx := range s.items {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove transaction %d: %w", id, core.ErrNotFound)
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	persistErr := s.persistLocked(ctx)
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction removed", "id", id)

	notify(listeners)
	s.publish(ctx, amqp.NewDeletedEvent(id))
	return persistErr
}

// List returns a copy of the collection in insertion order.
func (s *TransactionStore) List() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

// Filter returns the transactions satisfying pred, in insertion order.
func (s *TransactionStore) Filter(pred func(core.Transaction) bool) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if pred(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (s *TransactionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *TransactionStore) State() StoreState {
	if s.Len() == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// MemoryOnly reports whether the last write-through failed.
func (s *TransactionStore) MemoryOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryOnly
}

// peekID returns the next id: the creation time in milliseconds, bumped
// past the last assigned id so ids stay unique and increasing.
func (s *TransactionStore) peekID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	return id
}

func (s *TransactionStore) persistLocked(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []core.Transaction{}
	}
	raw, err := json.Marshal(items)
	if err == nil {
		err = s.blobs.Put(ctx, storage.TransactionsKey, raw)
	}
	if err != nil {
		if !s.memoryOnly {
			s.logger.WarnContext(ctx, "Persisting transactions failed, continuing in memory only", "error", err)
		}
		s.memoryOnly = true
		return &PersistWarning{Err: err}
	}
	if s.memoryOnly {
		s.logger.InfoContext(ctx, "Persistence restored", "count", len(items))
	}
	s.memoryOnly = false
	return nil
}

func (s *TransactionStore) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		// The change is already applied; downstream consumers catch up later.
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			"type", ev.Type, "id", ev.ID, "error", err)
	}
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
