package schema

import (
	"errors"
	"fmt"
)

var (
	ErrBadFieldType  = errors.New("schema: bad field type")
	ErrNoSuchMessage = errors.New("schema: no such message")
	ErrNoSuchField   = errors.New("schema: no such field")
	ErrDuplicate     = errors.New("schema: duplicate definition")
	ErrBadCatalog    = errors.New("schema: bad catalog file")
)

// ValidationError reports a definition that breaks a catalog invariant.
type ValidationError struct {
	Message string
	Field   string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message=%s: %s", e.Message, e.Reason)
	}
	return fmt.Sprintf("schema: message=%s field=%s: %s", e.Message, e.Field, e.Reason)
}
