package record

import (
	"errors"
	"fmt"
)

var errNilRecord = errors.New("nil record view")

// ValidationError reports a rejected field write. The block is untouched
// when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Severity grades validation failures as warnings.
func (e *ValidationError) Severity() Severity { return SeverityWarning }

// InterfaceError reports a failed Record or Accessor construction.
type InterfaceError struct {
	Op  string
	Err error
}

func (e *InterfaceError) Error() string {
	return fmt.Sprintf("interface %s: %v", e.Op, e.Err)
}

func (e *InterfaceError) Unwrap() error { return e.Err }

// Severity grades interface failures as serious.
func (e *InterfaceError) Severity() Severity { return SeveritySerious }

// SeverityOf extracts the severity carried by err, walking wrapped errors.
// Errors from outside the protocol taxonomy grade as critical.
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityNone
	}
	var carrier interface{ Severity() Severity }
	if errors.As(err, &carrier) {
		return carrier.Severity()
	}
	return SeverityCritical
}

func errTooLong(field string, width int) error {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("text must be under %d bytes", width),
	}
}

func errNegative(field string) error {
	return &ValidationError{Field: field, Reason: "counter cannot be negative"}
}
