package orders

import (
	"errors"
	"fmt"
)

// Error kinds reported to callers. Use errors.Is to classify.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid operation")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func notFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error {
	return &kindError{kind: ErrInvalidInput, msg: fmt.Sprintf(format, args...)}
}

func invalidOperation(format string, args ...any) error {
	return &kindError{kind: ErrInvalidOperation, msg: fmt.Sprintf(format, args...)}
}

// Kind returns the error kind name used in API responses and metric labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	default:
		return "internal"
	}
}

// InvalidInput builds an ErrInvalidInput error for request decoding layers.
func InvalidInput(msg string) error {
	return &kindError{kind: ErrInvalidInput, msg: msg}
}
