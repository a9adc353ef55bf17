package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrFatal is wrapped by every InitializeAll error. A fatal error means no
	// test may run.
	ErrFatal = errors.New("fatal initialization error")

	// ErrDeviceNotFound is returned by lookups for a name that is not initialized.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDuplicateName is returned when two devices share a name.
	ErrDuplicateName = errors.New("duplicate device name")
)

// InitError reports a device whose Initialize call failed.
type InitError struct {
	Device string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Device, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ReleaseError reports a device whose Release call failed.
type ReleaseError struct {
	Device string
	Err    error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release %s: %v", e.Device, e.Err)
}

func (e *ReleaseError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborted initialization.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsInitError returns true if err wraps an *InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
