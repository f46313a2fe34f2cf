package core

import (
	"strings"
)

// Field names a user-editable field of an expense.
type Field string

const (
	FieldDate        Field = "date"
	FieldCategory    Field = "category"
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
)

// Fields lists the draft fields in form order.
var Fields = []Field{FieldDate, FieldCategory, FieldAmount, FieldDescription}

// ParseField maps a form/JSON key to a Field.
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

type (
	// Expense is a single record as returned by the remote API. Amount is
	// kept as the string the service stored; use ParseAmount to read it.
	Expense struct {
		ID          string `json:"id,omitempty"`
		Date        string `json:"date"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}

	// Draft holds the in-progress input for a not-yet-submitted expense.
	Draft struct {
		Date        string `json:"date"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
)

// Get returns the value of one field.
func (d Draft) Get(f Field) string {
	switch f {
	case FieldDate:
		return d.Date
	case FieldCategory:
		return d.Category
	case FieldAmount:
		return d.Amount
	case FieldDescription:
		return d.Description
	}
	return ""
}

// With returns a copy of d with one field replaced.
func (d Draft) With(f Field, value string) (Draft, error) {
	switch f {
	case FieldDate:
		d.Date = value
	case FieldCategory:
		d.Category = value
	case FieldAmount:
		d.Amount = value
	case FieldDescription:
		d.Description = value
	default:
		return d, &ValidationError{Unknown: string(f)}
	}
	return d, nil
}

// Missing returns the fields that are empty after trimming, in form order.
func (d Draft) Missing() []Field {
	var out []Field
	for _, f := range Fields {
		if strings.TrimSpace(d.Get(f)) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate fails with a ValidationError when any field is empty.
func (d Draft) Validate() error {
	if missing := d.Missing(); len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// IsEmpty reports whether every field is the empty string.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// Expense converts the draft into the record sent to the remote API.
// Values are trimmed but otherwise sent as typed.
func (d Draft) Expense() Expense {
	return Expense{
		Date:        strings.TrimSpace(d.Date),
		Category:    strings.TrimSpace(d.Category),
		Amount:      strings.TrimSpace(d.Amount),
		Description: strings.TrimSpace(d.Description),
	}
}
