package errors

import (
	"fmt"
	"strings"
)

// MultiError collects the failures of best-effort steps that must not stop their siblings.
// errors.Is and errors.As see every collected error through Unwrap.
type MultiError struct {
	Errors []error
}

// Add records err; nil is ignored.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.Errors = append(m.Errors, err)
}

// Len returns the number of collected errors.
func (m *MultiError) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Errors)
}

func (m *MultiError) Error() string {
	switch m.Len() {
	case 0:
		return ""
	case 1:
		return m.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors: ", len(m.Errors))
	for i, err := range m.Errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// ErrorOrNil returns m as an error, or nil when nothing was recorded.
func (m *MultiError) ErrorOrNil() error {
	if m.Len() == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Unwrap() []error {
	if m == nil {
		return nil
	}
	return m.Errors
}
