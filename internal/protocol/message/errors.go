package message

import (
	"errors"
	"fmt"
)

var (
	ErrIncomplete    = errors.New("message: incomplete message")
	ErrNotSet        = errors.New("message: field not set")
	ErrTrailingBytes = errors.New("message: trailing bytes after last field")
	ErrShortPayload  = errors.New("message: payload shorter than header")
	ErrNibbleRange   = errors.New("message: class or component id exceeds 15")
	ErrNilDefinition = errors.New("message: nil definition")
)

// FieldError ties a failure to one field of one message.
type FieldError struct {
	Message string
	Field   string
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("message %s field %s: %v", e.Message, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
