package booking

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrInvalidRoomSelection = errors.New("invalid room selection")
	ErrUnknownResource      = errors.New("unknown resource")
	ErrAgeRestriction       = errors.New("age restriction")
	ErrUnavailable          = errors.New("resource unavailable")
	ErrPersistence          = errors.New("persistence error")
	ErrNotFound             = errors.New("booking not found")
)

// Error is a rejected request. Message is safe to show to the guest.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func reject(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
