package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

var created = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func TestNewTransaction(t *testing.T) {
	good := Candidate{
		Description: " Coffee ",
		Amount:      "4.50",
		Type:        "Expense",
		Date:        "2024-01-01",
		Category:    "Food",
	}
	tx, err := NewTransaction(good, 42, created)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.ID != 42 || tx.Description != "Coffee" || tx.Amount.Cents != 450 ||
		tx.Type != Expense || tx.Date.String() != "2024-01-01" || tx.Category != "Food" ||
		!tx.CreatedAt.Equal(created) {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Signed() != -450 {
		t.Fatalf("signed amount = %d", tx.Signed())
	}

	accented := good
	accented.Description = strings.Repeat("é", maxDescriptionLen)
	tx, err = NewTransaction(accented, 43, created)
	if err != nil {
		t.Fatalf("multibyte description within limit: %v", err)
	}
	if tx.Description != accented.Description {
		t.Fatalf("description changed: %q", tx.Description)
	}
}

func TestNewTransactionRejects(t *testing.T) {
	base := Candidate{Description: "a", Amount: "1", Type: "income", Date: "2024-01-01", Category: "c"}

	cases := []struct {
		name  string
		edit  func(c *Candidate)
		kind  ValidationKind
		field string
	}{
		{"missing description", func(c *Candidate) { c.Description = "  " }, MissingField, "description"},
		{"missing amount", func(c *Candidate) { c.Amount = "" }, MissingField, "amount"},
		{"missing type", func(c *Candidate) { c.Type = "" }, MissingField, "type"},
		{"missing date", func(c *Candidate) { c.Date = "" }, MissingField, "date"},
		{"missing category", func(c *Candidate) { c.Category = "" }, MissingField, "category"},
		{"zero amount", func(c *Candidate) { c.Amount = "0" }, InvalidAmount, "amount"},
		{"negative amount", func(c *Candidate) { c.Amount = "-5" }, InvalidAmount, "amount"},
		{"non numeric amount", func(c *Candidate) { c.Amount = "NaN" }, InvalidAmount, "amount"},
		{"amount above cap", func(c *Candidate) { c.Amount = "92233720368547757" }, InvalidAmount, "amount"},
		{"long description", func(c *Candidate) { c.Description = strings.Repeat("é", maxDescriptionLen+1) }, FieldTooLong, "description"},
		{"bad type", func(c *Candidate) { c.Type = "transfer" }, InvalidType, "type"},
		{"bad date", func(c *Candidate) { c.Date = "01/02/2024" }, InvalidDate, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.edit(&c)
			_, err := NewTransaction(c, 1, created)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Kind != tc.kind || verr.Field != tc.field {
				t.Fatalf("got kind=%s field=%s", verr.Kind, verr.Field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected errors.Is ErrValidation")
			}
		})
	}
}

func TestTransactionJSON(t *testing.T) {
	tx, err := NewTransaction(Candidate{Description: "Salary", Amount: "2000", Type: "income", Date: "2024-01-02", Category: "Work"}, 7, created)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":7,"description":"Salary","amount":2000.00,"type":"income","date":"2024-01-02","category":"Work","createdAt":"2024-01-05T10:00:00Z"}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}

func TestLegacyRecordDecodes(t *testing.T) {
	var tx Transaction
	if err := json.Unmarshal([]byte(`{"id":1700000000000,"description":"Rent","amount":950,"type":"expense"}`), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("legacy record should validate: %v", err)
	}
	if !tx.Date.IsEmpty() || tx.Category != "" || tx.Amount.Cents != 95000 {
		t.Fatalf("unexpected legacy decode: %+v", tx)
	}

	bad := Transaction{Amount: Money{Cents: -1}, Type: Expense}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
	bad = Transaction{Amount: Money{Cents: MaxAmountCents + 1}, Type: Income}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected amount above cap to fail")
	}
	bad = Transaction{Amount: Money{Cents: 1}, Type: "gift"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
}
