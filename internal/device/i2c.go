package device

import (
	"context"
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// DefaultI2CBus and DefaultI2CFrequency are used when an I2C entry omits them.
const (
	DefaultI2CBus       = 1
	DefaultI2CFrequency = 100000
)

// I2CConfig declares an I2C bus.
type I2CConfig struct {
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Bus       *int   `yaml:"bus,omitempty" json:"bus,omitempty"`
	Frequency int    `yaml:"frequency,omitempty" json:"frequency,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *I2CConfig) ApplyDefaults() {
	if c.Bus == nil {
		bus := DefaultI2CBus
		c.Bus = &bus
	}
	if c.Frequency == 0 {
		c.Frequency = DefaultI2CFrequency
	}
}

// I2CPath returns the Linux device node for bus.
func I2CPath(bus int) string {
	return fmt.Sprintf("/dev/i2c-%d", bus)
}

// I2C is an I2C bus master.
type I2C struct {
	base
	bus       int
	frequency int
	conn      hal.I2C
}

// NewI2C validates cfg and returns an uninitialized bus.
func NewI2C(name string, cfg I2CConfig, b hal.Backend) (*I2C, error) {
	cfg.ApplyDefaults()
	if *cfg.Bus < 0 {
		return nil, invalidf("i2c", "bus must be >= 0, got %d", *cfg.Bus)
	}
	if cfg.Frequency < 0 {
		return nil, invalidf("i2c", "frequency must be positive, got %d", cfg.Frequency)
	}
	return &I2C{
		base:      base{name: name, category: CategoryPeripheral, backend: b},
		bus:       *cfg.Bus,
		frequency: cfg.Frequency,
	}, nil
}

// Path returns the bus device node.
func (d *I2C) Path() string { return I2CPath(d.bus) }

// Requirements implements Device.
func (d *I2C) Requirements() Requirements {
	return Requirements{Ports: []string{d.Path()}}
}

// Initialize implements Device.
func (d *I2C) Initialize(_ context.Context) error {
	conn, err := d.backend.OpenI2C(d.Path(), d.frequency)
	if err != nil {
		return fmt.Errorf("open i2c bus %d: %w", d.bus, err)
	}
	d.conn = conn
	d.initialized = true
	return nil
}

// Release implements Device.
func (d *I2C) Release(_ context.Context) error {
	if !d.initialized {
		return nil
	}
	d.initialized = false
	conn := d.conn
	d.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close i2c bus %d: %w", d.bus, err)
	}
	return nil
}

// ReadRegister reads n bytes starting at reg of the target at addr.
func (d *I2C) ReadRegister(addr, reg uint8, n int) ([]byte, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.conn.ReadRegister(addr, reg, n)
}

// WriteRegister writes data starting at reg of the target at addr.
func (d *I2C) WriteRegister(addr, reg uint8, data []byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.conn.WriteRegister(addr, reg, data)
}
