// Package apperr defines the error taxonomy shared by the store and its surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid address")
)

// ValidationError reports an address that fails the grammar.
type ValidationError struct {
	Address string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid address %q", e.Address)
	}
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError reports an address already held by another note.
type ConflictError struct {
	Address string
	OwnerID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("address %q is already used by note %s", e.Address, e.OwnerID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Address extracts the offending address from a validation or conflict error.
func Address(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Address, true
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Address, true
	}
	return "", false
}
