package harness

import (
	"errors"
	"fmt"
)

// ErrNoContext is returned by ExecContext methods on a nil or closed context.
var ErrNoContext = errors.New("harness: no active execution context")

// PanicError is a panic recovered from a test body, setup or teardown.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic returns true if err wraps a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
