package config

import (
	"fmt"
	"sort"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/device/hal"
	"github.com/roach88/hilbench/internal/device/hal/sim"
	"github.com/roach88/hilbench/internal/lifecycle"
)

// Bucket names, in initialization order.
const (
	BucketProtocols   = "protocols"
	BucketPeripherals = "peripherals"
)

// declaration is one device entry with its resolved name.
type declaration struct {
	name  string
	where string
}

func resolveName(explicit, kind string, i int) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("%s%d", kind, i)
}

func (c *Config) declarations() []declaration {
	var out []declaration
	add := func(explicit, kind string, i int) {
		out = append(out, declaration{
			name:  resolveName(explicit, kind, i),
			where: fmt.Sprintf("%s[%d]", kind, i),
		})
	}
	for i, d := range c.Protocols.Modbus {
		add(d.Name, "modbus", i)
	}
	for i, d := range c.Peripherals.UART {
		add(d.Name, "uart", i)
	}
	for i, d := range c.Peripherals.GPIO {
		add(d.Name, "gpio", i)
	}
	for i, d := range c.Peripherals.PWM {
		add(d.Name, "pwm", i)
	}
	for i, d := range c.Peripherals.I2C {
		add(d.Name, "i2c", i)
	}
	for i, d := range c.Peripherals.SPI {
		add(d.Name, "spi", i)
	}
	return out
}

// DeviceCount returns the number of declared devices.
func (c *Config) DeviceCount() int {
	return len(c.declarations())
}

// OpenBackend returns the hardware backend named by bench.backend.
func (c *Config) OpenBackend() (hal.Backend, error) {
	switch c.Bench.Backend {
	case "sim":
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", c.Bench.Backend)
	}
}

// Buckets builds every declared device on b and groups them for the
// lifecycle manager.
func (c *Config) Buckets(b hal.Backend) ([]lifecycle.Bucket, error) {
	protocols := lifecycle.Bucket{Name: BucketProtocols}
	for i, cfg := range c.Protocols.Modbus {
		d, err := device.NewModbus(resolveName(cfg.Name, "modbus", i), cfg, b)
		if err != nil {
			return nil, fmt.Errorf("protocols.modbus[%d]: %w", i, err)
		}
		protocols.Devices = append(protocols.Devices, d)
	}

	peripherals := lifecycle.Bucket{Name: BucketPeripherals}
	add := func(kind string, i int, d device.Device, err error) error {
		if err != nil {
			return fmt.Errorf("peripherals.%s[%d]: %w", kind, i, err)
		}
		peripherals.Devices = append(peripherals.Devices, d)
		return nil
	}
	for i, cfg := range c.Peripherals.UART {
		d, err := device.NewUART(resolveName(cfg.Name, "uart", i), cfg, b)
		if err := add("uart", i, d, err); err != nil {
			return nil, err
		}
	}
	for i, cfg := range c.Peripherals.GPIO {
		d, err := device.NewGPIO(resolveName(cfg.Name, "gpio", i), cfg, b)
		if err := add("gpio", i, d, err); err != nil {
			return nil, err
		}
	}
	for i, cfg := range c.Peripherals.PWM {
		d, err := device.NewPWM(resolveName(cfg.Name, "pwm", i), cfg, b)
		if err := add("pwm", i, d, err); err != nil {
			return nil, err
		}
	}
	for i, cfg := range c.Peripherals.I2C {
		d, err := device.NewI2C(resolveName(cfg.Name, "i2c", i), cfg, b)
		if err := add("i2c", i, d, err); err != nil {
			return nil, err
		}
	}
	for i, cfg := range c.Peripherals.SPI {
		d, err := device.NewSPI(resolveName(cfg.Name, "spi", i), cfg, b)
		if err := add("spi", i, d, err); err != nil {
			return nil, err
		}
	}

	return []lifecycle.Bucket{protocols, peripherals}, nil
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
