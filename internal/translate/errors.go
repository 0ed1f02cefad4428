package translate

import "errors"

// ErrInvalidInput marks requests rejected before they reach the engine:
// empty text, oversized text, or an unknown direction.
var ErrInvalidInput = errors.New("invalid input")

type invalidInputError struct {
	msg string
}

func newInvalidInputError(msg string) *invalidInputError {
	return &invalidInputError{msg: msg}
}

func (e *invalidInputError) Error() string { return e.msg }
func (e *invalidInputError) Unwrap() error { return ErrInvalidInput }
