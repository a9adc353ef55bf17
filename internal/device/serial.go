package device

import (
	"strings"
	"time"

	"github.com/roach88/hilbench/internal/device/hal"
)

// Serial line defaults shared by UART and Modbus RTU entries.
const (
	DefaultSerialPort = "/dev/ttyUSB0"
	DefaultBaudRate   = 9600
	DefaultParity     = "N"
	DefaultStopBits   = 1
	DefaultTimeout    = 1.0
)

// SerialConfig is the on-disk form of a serial line. Timeout is in seconds.
type SerialConfig struct {
	Port     string  `yaml:"port,omitempty" json:"port,omitempty"`
	BaudRate int     `yaml:"baudrate,omitempty" json:"baudrate,omitempty"`
	Parity   string  `yaml:"parity,omitempty" json:"parity,omitempty"`
	StopBits int     `yaml:"stopbits,omitempty" json:"stopbits,omitempty"`
	Timeout  float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *SerialConfig) ApplyDefaults() {
	if c.Port == "" {
		c.Port = DefaultSerialPort
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.Parity == "" {
		c.Parity = DefaultParity
	}
	if c.StopBits == 0 {
		c.StopBits = DefaultStopBits
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c SerialConfig) validate(kind string) error {
	if c.BaudRate <= 0 {
		return invalidf(kind, "baudrate must be positive, got %d", c.BaudRate)
	}
	switch strings.ToUpper(c.Parity) {
	case "N", "E", "O":
	default:
		return invalidf(kind, "parity must be N, E or O, got %q", c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return invalidf(kind, "stopbits must be 1 or 2, got %d", c.StopBits)
	}
	if c.Timeout < 0 {
		return invalidf(kind, "timeout must not be negative, got %g", c.Timeout)
	}
	return nil
}

func (c SerialConfig) halConfig() hal.SerialConfig {
	return hal.SerialConfig{
		BaudRate: c.BaudRate,
		Parity:   strings.ToUpper(c.Parity),
		StopBits: c.StopBits,
		Timeout:  time.Duration(c.Timeout * float64(time.Second)),
	}
}
