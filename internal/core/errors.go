package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSubmitInProgress = errors.New("submit already in progress")
)

func invalidAmount(s string) error {
	return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
}

// NetworkError reports a transport failure or a non-2xx response from the
// remote API. StatusCode is 0 when no response was received.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError lists the required fields that are missing, or names a
// field that does not exist.
type ValidationError struct {
	Fields  []Field
	Unknown string
}

func (e *ValidationError) Error() string {
	if e.Unknown != "" {
		return fmt.Sprintf("unknown field %q", e.Unknown)
	}
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return "missing required fields: " + strings.Join(names, ", ")
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNetwork reports whether err is or wraps a NetworkError.
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

// IsParse reports whether err is or wraps a ParseError.
func IsParse(err error) bool {
	var p *ParseError
	return errors.As(err, &p)
}
