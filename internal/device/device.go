package device

import (
	"context"

	"github.com/roach88/hilbench/internal/device/hal"
	"github.com/roach88/hilbench/internal/resource"
)

// Category tells protocol clients and direct peripherals apart.
type Category string

const (
	CategoryProtocol   Category = "protocol"
	CategoryPeripheral Category = "peripheral"
)

// Requirements lists the resources a device must own before it initializes.
type Requirements struct {
	Pins  []int    `json:"pins,omitempty"`
	Ports []string `json:"ports,omitempty"`
}

// IDs returns the resource IDs in claim order: pins first, then ports, each
// in declared order.
func (r Requirements) IDs() []resource.ID {
	ids := make([]resource.ID, 0, len(r.Pins)+len(r.Ports))
	for _, p := range r.Pins {
		ids = append(ids, resource.Pin(p))
	}
	for _, p := range r.Ports {
		ids = append(ids, resource.Port(p))
	}
	return ids
}

// Device is the contract between the lifecycle manager and a driver.
type Device interface {
	// Name identifies the device in logs, conflicts and test plans.
	Name() string

	// Category reports whether the device is a protocol or a peripheral.
	Category() Category

	// Requirements reports the resources to claim. It must not touch hardware.
	Requirements() Requirements

	// Initialize brings the device up. Called only after every required
	// resource was claimed.
	Initialize(ctx context.Context) error

	// Release tears the device down. Best effort; the caller logs failures.
	Release(ctx context.Context) error
}

// base carries the fields shared by the built-in drivers.
type base struct {
	name        string
	category    Category
	backend     hal.Backend
	initialized bool
}

func (b *base) Name() string       { return b.name }
func (b *base) Category() Category { return b.category }

// Initialized reports whether Initialize succeeded and Release has not run since.
func (b *base) Initialized() bool { return b.initialized }

func (b *base) ready() error {
	if !b.initialized {
		return &NotInitializedError{Device: b.name}
	}
	return nil
}

var (
	_ Device = (*GPIO)(nil)
	_ Device = (*PWM)(nil)
	_ Device = (*UART)(nil)
	_ Device = (*I2C)(nil)
	_ Device = (*SPI)(nil)
	_ Device = (*Modbus)(nil)
)
