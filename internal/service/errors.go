package service

import "errors"

// State-conflict errors surfaced as 400 by the handlers.
var (
	ErrShiftAlreadyOpen   = errors.New("a shift is already open")
	ErrShiftAlreadyClosed = errors.New("shift is already closed")
	ErrNoOpenShift        = errors.New("no open shift")
	ErrSupplyNotDraft     = errors.New("supply is not in draft status")
	ErrOrderStatusChanged = errors.New("order status changed, please retry")
	ErrShiftStillOpen     = errors.New("shift is still open")
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// fieldErrors accumulates field-level validation messages and builds a
// ValidationError only when at least one field failed.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, dup := f[field]; !dup {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
