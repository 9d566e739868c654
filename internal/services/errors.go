package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPassword is returned when the current password does not match
var ErrInvalidPassword = errors.New("contraseña inválida")

// ValidationError indicates malformed or missing input, detected before
// touching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError indicates a resource collision: lots no longer
// available, or a duplicate lot number within a map. LotIDs names the
// conflicting lots so the caller can re-select.
type ConflictError struct {
	Message string
	LotIDs  []uint
}

func (e *ConflictError) Error() string {
	if len(e.LotIDs) == 0 {
		return e.Message
	}
	ids := make([]string, len(e.LotIDs))
	for i, id := range e.LotIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("%s: lotes [%s]", e.Message, strings.Join(ids, ", "))
}

// PermissionError indicates the caller's role lacks the capability for
// the requested operation.
type PermissionError struct {
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("no autorizado para %s", e.Operation)
}

// StateError indicates an operation invalid for the resource's current
// lifecycle state. CurrentState is surfaced so the caller understands why.
type StateError struct {
	Message      string
	CurrentState string
}

func (e *StateError) Error() string {
	if e.CurrentState != "" {
		return fmt.Sprintf("%s (estado actual: %s)", e.Message, e.CurrentState)
	}
	return e.Message
}

// NotFoundError indicates the referenced resource does not exist, or is
// not visible to the caller.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s no encontrado", e.Resource)
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsPermission reports whether err is a permission error
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsState reports whether err is a state error
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
