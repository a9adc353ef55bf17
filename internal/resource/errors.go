package resource

import (
	"errors"
	"fmt"
)

// ErrConflict is matched by every *ConflictError via errors.Is.
var ErrConflict = errors.New("resource conflict")

// ErrInvalidID is returned when claiming an empty resource ID.
var ErrInvalidID = errors.New("resource: invalid id")

// ConflictError reports a claim on a resource that already has an owner.
type ConflictError struct {
	// ID is the contested resource.
	ID ID

	// Owner is the device whose claim was rejected.
	Owner string

	// Existing is the device that already owns the resource.
	Existing string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource conflict: %s requested by %q is already owned by %q", e.ID, e.Owner, e.Existing)
}

// Is makes errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsConflict returns true if err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the *ConflictError from err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
