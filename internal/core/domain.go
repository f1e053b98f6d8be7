package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// DateLayout is the wire and form layout of a transaction date.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 200

type (
	TxType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single recorded income or expense event. Values are
	// immutable once created by NewTransaction.
	Transaction struct {
		ID          int64     `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Type        TxType    `json:"type"`
		Date        Date      `json:"date"`
		Category    string    `json:"category"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Candidate holds raw, unvalidated form input for a new transaction.
	Candidate struct {
		Description string
		Amount      string
		Type        string
		Date        string
		Category    string
	}
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("transaction not found")

	ErrInvalidAmount = errors.New("invalid amount")
)

// ValidationKind classifies why a candidate was rejected.
type ValidationKind string

const (
	MissingField  ValidationKind = "missing_field"
	InvalidAmount ValidationKind = "invalid_amount"
	InvalidType   ValidationKind = "invalid_type"
	InvalidDate   ValidationKind = "invalid_date"
	FieldTooLong  ValidationKind = "field_too_long"
)

// ValidationError is returned by NewTransaction when a candidate is rejected.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("missing required field %q", e.Field)
	case InvalidAmount:
		return "amount must be a positive number"
	case InvalidType:
		return "type must be income or expense"
	case InvalidDate:
		return "date must use the YYYY-MM-DD format"
	case FieldTooLong:
		return fmt.Sprintf("field %q is too long (max %d characters)", e.Field, maxDescriptionLen)
	default:
		return "invalid transaction"
	}
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTxType normalises user input such as "Income" or " expense ".
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Kind: InvalidType, Field: "type"}
	}
	return t, nil
}

// Signed returns the amount with its direction applied: positive for
// income, negative for expense.
func (t Transaction) Signed() int64 {
	if t.Type == Income {
		return t.Amount.Cents
	}
	return -t.Amount.Cents
}

// NewTransaction validates a candidate and builds a record. The id and
// creation timestamp are assigned by the caller, which owns uniqueness.
func NewTransaction(c Candidate, id int64, createdAt time.Time) (Transaction, error) {
	fields := []struct{ name, value string }{
		{"description", c.Description},
		{"amount", c.Amount},
		{"type", c.Type},
		{"date", c.Date},
		{"category", c.Category},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Transaction{}, &ValidationError{Kind: MissingField, Field: f.name}
		}
	}

	desc := strings.TrimSpace(c.Description)
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return Transaction{}, &ValidationError{Kind: FieldTooLong, Field: "description"}
	}

	cents, err := ParseDecimalToCents(c.Amount)
	if err != nil {
		return Transaction{}, &ValidationError{Kind: InvalidAmount, Field: "amount"}
	}

	typ, err := ParseTxType(c.Type)
	if err != nil {
		return Transaction{}, err
	}

	date, err := ParseDate(c.Date)
	if err != nil {
		return Transaction{}, &ValidationError{Kind: InvalidDate, Field: "date"}
	}

	return Transaction{
		ID:          id,
		Description: desc,
		Amount:      Money{Cents: cents},
		Type:        typ,
		Date:        date,
		Category:    strings.TrimSpace(c.Category),
		CreatedAt:   createdAt.UTC(),
	}, nil
}

// Validate checks a record loaded from storage. Legacy records without a
// date or category are accepted.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return &ValidationError{Kind: InvalidType, Field: "type"}
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero, as for legacy records
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the calendar day is kept.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = NewDate(t.Year(), int(t.Month()), t.Day())
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = parsed
	return nil
}
