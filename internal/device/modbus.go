package device

import (
	"context"
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// ModbusConfig declares a Modbus RTU client on a serial line.
type ModbusConfig struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	SerialConfig `yaml:",inline"`
}

// Modbus is a Modbus RTU master.
type Modbus struct {
	base
	cfg  SerialConfig
	conn hal.Modbus
}

// NewModbus validates cfg and returns an uninitialized client.
func NewModbus(name string, cfg ModbusConfig, b hal.Backend) (*Modbus, error) {
	cfg.ApplyDefaults()
	if err := cfg.validate("modbus"); err != nil {
		return nil, err
	}
	return &Modbus{
		base: base{name: name, category: CategoryProtocol, backend: b},
		cfg:  cfg.SerialConfig,
	}, nil
}

// Port returns the serial device path.
func (m *Modbus) Port() string { return m.cfg.Port }

// Requirements implements Device.
func (m *Modbus) Requirements() Requirements {
	return Requirements{Ports: []string{m.cfg.Port}}
}

// Initialize implements Device.
func (m *Modbus) Initialize(_ context.Context) error {
	conn, err := m.backend.OpenModbus(m.cfg.Port, m.cfg.halConfig())
	if err != nil {
		return fmt.Errorf("open modbus on %s: %w", m.cfg.Port, err)
	}
	m.conn = conn
	m.initialized = true
	return nil
}

// Release implements Device.
func (m *Modbus) Release(_ context.Context) error {
	if !m.initialized {
		return nil
	}
	m.initialized = false
	conn := m.conn
	m.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close modbus on %s: %w", m.cfg.Port, err)
	}
	return nil
}

// ReadHoldingRegisters reads count registers starting at addr.
func (m *Modbus) ReadHoldingRegisters(slave uint8, addr, count uint16) ([]uint16, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if count == 0 || count > 125 {
		return nil, fmt.Errorf("modbus %s: register count must be 1-125, got %d", m.name, count)
	}
	return m.conn.ReadHoldingRegisters(slave, addr, count)
}

// WriteSingleRegister writes one holding register.
func (m *Modbus) WriteSingleRegister(slave uint8, addr, value uint16) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.conn.WriteSingleRegister(slave, addr, value)
}

// WriteMultipleRegisters writes consecutive holding registers starting at addr.
func (m *Modbus) WriteMultipleRegisters(slave uint8, addr uint16, values []uint16) error {
	if err := m.ready(); err != nil {
		return err
	}
	if len(values) == 0 || len(values) > 123 {
		return fmt.Errorf("modbus %s: register count must be 1-123, got %d", m.name, len(values))
	}
	return m.conn.WriteMultipleRegisters(slave, addr, values)
}
