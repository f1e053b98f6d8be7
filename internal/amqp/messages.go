package amqp

import (
	"encoding/json"
	"time"

	"spendlog/internal/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent announces a change to the transaction collection.
// Deleted events carry only the id.
type TransactionEvent struct {
	Type        string            `json:"type"`
	ID          int64             `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        EventTransactionCreated,
		ID:          tx.ID,
		Transaction: &tx,
		Timestamp:   time.Now().UTC(),
	}
}

func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		Type:      EventTransactionDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
