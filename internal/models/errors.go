package models

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyDecided    = errors.New("transaction already decided")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrForbidden         = errors.New("forbidden")
	ErrInactiveAccount   = errors.New("account is not active")
	ErrDuplicate         = errors.New("already exists")

	// ErrConflict is a retryable write conflict reported by a store.
	ErrConflict = errors.New("write conflict")
	// ErrStorage means the atomic update could not complete; nothing was applied.
	ErrStorage = errors.New("storage failure")
)

type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError lists every rejected field of a command.
type ValidationError []FieldError

func (e ValidationError) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }
