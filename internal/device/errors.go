package device

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every constructor validation error.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrNotInitialized is matched by *NotInitializedError.
	ErrNotInitialized = errors.New("device: not initialized")

	// ErrWrongMode is returned when a GPIO line is used against its direction.
	ErrWrongMode = errors.New("device: wrong pin mode")
)

// NotInitializedError is returned by driver operations called outside the
// Initialize/Release window.
type NotInitializedError struct {
	Device string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("device %q is not initialized", e.Device)
}

func (e *NotInitializedError) Is(target error) bool {
	return target == ErrNotInitialized
}

func invalidf(kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, kind, fmt.Sprintf(format, args...))
}
