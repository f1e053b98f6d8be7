package amqp

import (
	"testing"
	"time"

	"spendlog/internal/core"
)

func TestTransactionEventRoundTrip(t *testing.T) {
	tx, err := core.NewTransaction(core.Candidate{
		Description: "Coffee", Amount: "4.50", Type: "expense", Date: "2024-01-01", Category: "Food",
	}, 10, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}

	body, err := NewCreatedEvent(tx).ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	ev, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if ev.Type != EventTransactionCreated || ev.ID != 10 || ev.Transaction == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Transaction.Amount.Cents != 450 || ev.Transaction.Category != "Food" {
		t.Fatalf("transaction payload lost: %+v", ev.Transaction)
	}
}

func TestDeletedEventOmitsTransaction(t *testing.T) {
	body, err := NewDeletedEvent(3).ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	ev, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if ev.Type != EventTransactionDeleted || ev.ID != 3 || ev.Transaction != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestTransactionEventFromJSONInvalid(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected error")
	}
}
