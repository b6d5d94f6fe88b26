package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("already exists")
	ErrParse        = errors.New("malformed document")
	ErrValidation   = errors.New("validation failed")

	// ErrIndexOutOfRange matches ErrNotFound as well.
	ErrIndexOutOfRange = fmt.Errorf("assessment index out of range: %w", ErrNotFound)
)

// ParseError reports where a semester document failed to load.
type ParseError struct {
	Subject string // empty for document-level failures
	Index   int    // assessment position, -1 when not applicable
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.Subject == "":
		return fmt.Sprintf("parse document: %v", e.Err)
	case e.Index < 0:
		return fmt.Sprintf("parse subject %q: %s: %v", e.Subject, e.Field, e.Err)
	default:
		return fmt.Sprintf("parse subject %q assessment %d: %s: %v", e.Subject, e.Index, e.Field, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets callers match any ParseError with errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool { return target == ErrParse }
