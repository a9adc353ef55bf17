package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/hilbench/internal/device"
)

// DeviceLookup resolves an initialized device by name.
type DeviceLookup func(name string) (device.Device, bool)

// ExecContext is the handle a running test unit reports through. It is
// created by the engine right before the unit runs and closed right after.
type ExecContext struct {
	ctx      context.Context
	reporter Reporter
	summary  *Summary
	lookup   DeviceLookup
	logger   *slog.Logger
	group    string
	test     string
	closed   bool
	reported int
}

// Group returns the name of the group being run.
func (ec *ExecContext) Group() string { return ec.group }

// Test returns the name of the unit being run: a test name, "setup" or "teardown".
func (ec *ExecContext) Test() string { return ec.test }

// Context returns the run's context.Context.
func (ec *ExecContext) Context() context.Context { return ec.ctx }

// Logger returns a logger tagged with the group and test.
func (ec *ExecContext) Logger() *slog.Logger { return ec.logger }

// Active reports whether ec may still report. Nil contexts are inactive.
func (ec *ExecContext) Active() bool {
	return ec != nil && !ec.closed
}

// Reported returns how many results ec has reported so far.
func (ec *ExecContext) Reported() int { return ec.reported }

// Device returns the initialized device called name.
func (ec *ExecContext) Device(name string) (device.Device, error) {
	if !ec.Active() {
		return nil, ErrNoContext
	}
	if ec.lookup != nil {
		if d, ok := ec.lookup(name); ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device %q is not initialized", name)
}

// DeviceAs returns the initialized device called name as a T.
func DeviceAs[T device.Device](ec *ExecContext, name string) (T, error) {
	var zero T
	d, err := ec.Device(name)
	if err != nil {
		return zero, err
	}
	t, ok := d.(T)
	if !ok {
		return zero, fmt.Errorf("device %q is a %T, not a %T", name, d, zero)
	}
	return t, nil
}

func (ec *ExecContext) reportResult(passed bool, detail string) {
	ec.reported++
	if ec.summary != nil {
		ec.summary.record(passed)
	}
	ec.reporter.ReportResult(ec.group, ec.test, passed, detail)
}

func (ec *ExecContext) reportInfo(message string) {
	ec.reporter.ReportInfo(ec.group, ec.test, message)
}

func (ec *ExecContext) close() {
	ec.closed = true
}
