package device

import (
	"context"
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// UARTConfig declares a raw serial port.
type UARTConfig struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	SerialConfig `yaml:",inline"`
}

// UART is a raw serial port.
type UART struct {
	base
	cfg  SerialConfig
	port hal.Serial
}

// NewUART validates cfg and returns an uninitialized UART.
func NewUART(name string, cfg UARTConfig, b hal.Backend) (*UART, error) {
	cfg.ApplyDefaults()
	if err := cfg.validate("uart"); err != nil {
		return nil, err
	}
	return &UART{
		base: base{name: name, category: CategoryPeripheral, backend: b},
		cfg:  cfg.SerialConfig,
	}, nil
}

// Port returns the device path.
func (u *UART) Port() string { return u.cfg.Port }

// Requirements implements Device.
func (u *UART) Requirements() Requirements {
	return Requirements{Ports: []string{u.cfg.Port}}
}

// Initialize implements Device.
func (u *UART) Initialize(_ context.Context) error {
	port, err := u.backend.OpenSerial(u.cfg.Port, u.cfg.halConfig())
	if err != nil {
		return fmt.Errorf("open uart %s: %w", u.cfg.Port, err)
	}
	u.port = port
	u.initialized = true
	return nil
}

// Release implements Device.
func (u *UART) Release(_ context.Context) error {
	if !u.initialized {
		return nil
	}
	u.initialized = false
	port := u.port
	u.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("close uart %s: %w", u.cfg.Port, err)
	}
	return nil
}

// Write sends data and returns the number of bytes written.
func (u *UART) Write(data []byte) (int, error) {
	if err := u.ready(); err != nil {
		return 0, err
	}
	return u.port.Write(data)
}

// Read reads up to n bytes. A timeout with nothing received returns hal.ErrTimeout.
func (u *UART) Read(n int) ([]byte, error) {
	if err := u.ready(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("uart %s: read size must be positive, got %d", u.name, n)
	}
	buf := make([]byte, n)
	got, err := u.port.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:got], nil
}
