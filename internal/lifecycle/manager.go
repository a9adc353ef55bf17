package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/resource"
)

// Bucket is a named, ordered group of devices such as "protocols" or
// "peripherals".
type Bucket struct {
	Name    string
	Devices []device.Device
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithRegistry sets the registry used for claims. The default is a fresh
// registry per Manager.
func WithRegistry(r *resource.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// entry tracks one device of the bench.
type entry struct {
	bucket string
	dev    device.Device
	state  State
}

// Manager owns the devices of one bench for the duration of a run.
//
// Thread-safety: Manager is not safe for concurrent use. The harness drives
// it from a single goroutine.
type Manager struct {
	buckets     []Bucket
	registry    *resource.Registry
	logger      *slog.Logger
	entries     map[string]*entry
	initialized []*entry
}

// NewManager creates a manager for buckets, kept in the given order.
func NewManager(buckets []Bucket, opts ...Option) *Manager {
	m := &Manager{
		buckets:  buckets,
		registry: resource.NewRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "lifecycle")
	return m
}

// Registry returns the registry holding the current claims.
func (m *Manager) Registry() *resource.Registry {
	return m.registry
}

// InitializeAll claims and initializes every device, bucket by bucket, in
// declared order. Any failure rolls back the whole bench and returns an error
// wrapping ErrFatal together with the cause (*resource.ConflictError,
// *InitError, or a context error). Devices still initialized from a previous
// call are released first.
func (m *Manager) InitializeAll(ctx context.Context) error {
	if len(m.initialized) > 0 {
		m.logger.Warn("bench still initialized, releasing before re-initializing", "devices", len(m.initialized))
		// Release failures are already logged per device by ReleaseAll.
		_ = m.ReleaseAll(context.WithoutCancel(ctx))
	}
	if err := m.reset(); err != nil {
		m.logger.Error("bench declaration rejected", "error", err)
		return fmt.Errorf("%w: %w", ErrFatal, err)
	}

	for _, b := range m.buckets {
		m.logger.Info("initializing bucket", "bucket", b.Name, "devices", len(b.Devices))
		for _, dev := range b.Devices {
			if err := ctx.Err(); err != nil {
				m.rollback(ctx, "initialization canceled", err)
				return fmt.Errorf("%w: %w", ErrFatal, err)
			}
			if err := m.bringUp(ctx, m.entries[dev.Name()]); err != nil {
				return fmt.Errorf("%w: %w", ErrFatal, err)
			}
		}
	}

	m.logger.Info("all devices initialized", "devices", len(m.initialized), "resources", m.registry.Len())
	return nil
}

// reset rebuilds per-run state and rejects duplicate device names.
func (m *Manager) reset() error {
	m.entries = make(map[string]*entry)
	m.initialized = nil
	for _, b := range m.buckets {
		for _, dev := range b.Devices {
			name := dev.Name()
			if prev, ok := m.entries[name]; ok {
				return fmt.Errorf("%w: %q declared in %s and %s", ErrDuplicateName, name, prev.bucket, b.Name)
			}
			m.entries[name] = &entry{bucket: b.Name, dev: dev, state: Uninitialized}
		}
	}
	return nil
}

func (m *Manager) bringUp(ctx context.Context, e *entry) error {
	name := e.dev.Name()
	for _, id := range e.dev.Requirements().IDs() {
		if err := m.registry.Claim(id, name); err != nil {
			e.state = Failed
			if ce, ok := resource.AsConflict(err); ok {
				m.logger.Error("resource conflict",
					"resource", ce.ID.String(),
					"device", ce.Owner,
					"owner", ce.Existing,
				)
			}
			m.rollback(ctx, "resource claim failed", err)
			return err
		}
	}
	e.state = ResourceClaimed

	if err := e.dev.Initialize(ctx); err != nil {
		e.state = Failed
		ierr := &InitError{Device: name, Err: err}
		m.rollback(ctx, "device initialization failed", ierr)
		return ierr
	}

	e.state = Initialized
	m.initialized = append(m.initialized, e)
	m.logger.Info("device initialized",
		"bucket", e.bucket,
		"device", name,
		"category", string(e.dev.Category()),
	)
	return nil
}

func (m *Manager) rollback(ctx context.Context, reason string, cause error) {
	m.logger.Error(reason+", rolling back", "error", cause, "initialized", len(m.initialized))
	// Rollback failures are already logged per device by ReleaseAll.
	_ = m.ReleaseAll(ctx)
}

// ReleaseAll releases every initialized device in initialization order, then
// clears the initialized list and the registry. Failures do not stop the pass;
// they are logged and returned joined as *ReleaseError values. Calling
// ReleaseAll with nothing initialized is a no-op.
func (m *Manager) ReleaseAll(ctx context.Context) error {
	var errs []error
	for _, e := range m.initialized {
		name := e.dev.Name()
		if err := e.dev.Release(ctx); err != nil {
			m.logger.Warn("device release failed", "device", name, "error", err)
			errs = append(errs, &ReleaseError{Device: name, Err: err})
		} else {
			m.logger.Debug("device released", "device", name)
		}
		e.state = Released
	}
	if n := len(m.initialized); n > 0 {
		m.logger.Info("devices released", "devices", n, "failures", len(errs))
	}
	m.initialized = nil
	m.registry.ReleaseAll()
	return errors.Join(errs...)
}

// Device returns the initialized device name from bucket.
func (m *Manager) Device(bucket, name string) (device.Device, error) {
	e, ok := m.entries[name]
	if !ok || e.bucket != bucket || e.state != Initialized {
		return nil, fmt.Errorf("%w: %s/%s", ErrDeviceNotFound, bucket, name)
	}
	return e.dev, nil
}

// Lookup returns the initialized device name from any bucket.
func (m *Manager) Lookup(name string) (device.Device, bool) {
	e, ok := m.entries[name]
	if !ok || e.state != Initialized {
		return nil, false
	}
	return e.dev, true
}

// Devices returns the initialized devices of bucket in initialization order.
func (m *Manager) Devices(bucket string) []device.Device {
	var out []device.Device
	for _, e := range m.initialized {
		if e.bucket == bucket {
			out = append(out, e.dev)
		}
	}
	return out
}

// Initialized returns the names of all initialized devices in order.
func (m *Manager) Initialized() []string {
	out := make([]string, len(m.initialized))
	for i, e := range m.initialized {
		out[i] = e.dev.Name()
	}
	return out
}

// State returns the lifecycle state of the named device. Unknown names are
// reported as Uninitialized.
func (m *Manager) State(name string) State {
	if e, ok := m.entries[name]; ok {
		return e.state
	}
	return Uninitialized
}

// Check claims every requirement of buckets in a scratch registry without
// touching hardware and returns every conflict found, in declaration order.
func Check(buckets []Bucket) []*resource.ConflictError {
	reg := resource.NewRegistry()
	var conflicts []*resource.ConflictError
	for _, b := range buckets {
		for _, dev := range b.Devices {
			for _, id := range dev.Requirements().IDs() {
				if ce, ok := resource.AsConflict(reg.Claim(id, dev.Name())); ok {
					conflicts = append(conflicts, ce)
				}
			}
		}
	}
	return conflicts
}
