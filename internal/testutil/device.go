package testutil

import (
	"context"
	"sync"

	"github.com/roach88/hilbench/internal/device"
)

// Journal records device lifecycle calls across several fake devices so tests
// can assert on their global order.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// Record appends one entry.
func (j *Journal) Record(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// FakeDevice is a scriptable device.Device.
//
// Initialize and Release record "init <name>" and "release <name>" in Journal
// (when set) and return InitErr and ReleaseErr respectively.
type FakeDevice struct {
	DeviceName string
	Cat        device.Category
	Req        device.Requirements
	InitErr    error
	ReleaseErr error
	Journal    *Journal

	InitCalls    int
	ReleaseCalls int
}

var _ device.Device = (*FakeDevice)(nil)

// NewFakeDevice returns a peripheral claiming pins.
func NewFakeDevice(name string, j *Journal, pins ...int) *FakeDevice {
	return &FakeDevice{
		DeviceName: name,
		Cat:        device.CategoryPeripheral,
		Req:        device.Requirements{Pins: pins},
		Journal:    j,
	}
}

// WithPorts adds port requirements and returns d.
func (d *FakeDevice) WithPorts(ports ...string) *FakeDevice {
	d.Req.Ports = append(d.Req.Ports, ports...)
	return d
}

func (d *FakeDevice) Name() string { return d.DeviceName }

func (d *FakeDevice) Category() device.Category {
	if d.Cat == "" {
		return device.CategoryPeripheral
	}
	return d.Cat
}

func (d *FakeDevice) Requirements() device.Requirements { return d.Req }

func (d *FakeDevice) Initialize(_ context.Context) error {
	d.InitCalls++
	if d.Journal != nil {
		d.Journal.Record("init " + d.DeviceName)
	}
	return d.InitErr
}

func (d *FakeDevice) Release(_ context.Context) error {
	d.ReleaseCalls++
	if d.Journal != nil {
		d.Journal.Record("release " + d.DeviceName)
	}
	return d.ReleaseErr
}
