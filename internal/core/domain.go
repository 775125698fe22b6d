package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

const (
	Cash     Method = "cash"
	Transfer Method = "transfer"
	QRIS     Method = "qris"
	Gateway  Method = "gateway"
	Other    Method = "other"
)

type (
	// Type determines the sign a transaction contributes to totals.
	// Amounts are never stored negative.
	Type string

	// Method records how the money moved. Informational only, it does
	// not affect aggregation.
	Method string

	// Date is a calendar date without a time component. All range
	// filtering and month bucketing works on it.
	Date struct {
		time.Time
	}

	// Transaction is one recorded income or expense event. ID is
	// assigned by the store and immutable; every other field may be
	// replaced in full by an update.
	Transaction struct {
		ID          int64
		Type        Type
		Category    string
		ProjectID   *int64
		ProjectName string // display only, resolved from the project registry
		Description string
		Amount      Money
		Date        Date
		Method      Method
		Note        string
	}
)

var ErrNotFound = errors.New("transaction not found")

// ValidationError reports a missing or invalid field on a write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func (m Method) Valid() bool {
	switch m {
	case Cash, Transfer, QRIS, Gateway, Other:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Year returns the calendar year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the calendar month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a %q string", dateLayout)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the creation invariants: type and date are mandatory,
// the amount must be non-negative and the method, when set, must be known.
func (t Transaction) Validate() error {
	if t.Type == "" {
		return invalid("type", "required")
	}
	if !t.Type.Valid() {
		return invalid("type", "must be income or expense")
	}
	if t.Date.IsZero() {
		return invalid("date", "required")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Method != "" && !t.Method.Valid() {
		return invalid("method", "must be cash, transfer, qris, gateway or other")
	}
	return nil
}
