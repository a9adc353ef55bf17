package hal

import (
	"errors"
	"io"
	"time"
)

// Level is a digital line level.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

// Direction is the configured direction of a GPIO line.
type Direction int

const (
	Input Direction = iota
	Output
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == Output {
		return "out"
	}
	return "in"
}

// SerialConfig holds line settings for UART and Modbus RTU links.
type SerialConfig struct {
	BaudRate int
	Parity   string // "N", "E" or "O"
	StopBits int
	Timeout  time.Duration
}

// SPIConfig holds SPI transfer settings.
type SPIConfig struct {
	MaxSpeedHz  int
	Mode        int
	BitsPerWord int
	CSHigh      bool
	LSBFirst    bool
}

// Serial is an open serial port.
type Serial interface {
	io.ReadWriteCloser
}

// I2C is an open I2C bus.
type I2C interface {
	ReadRegister(addr, reg uint8, n int) ([]byte, error)
	WriteRegister(addr, reg uint8, data []byte) error
	Close() error
}

// SPI is an open SPI device.
type SPI interface {
	// Transfer clocks tx out and returns the bytes clocked in.
	Transfer(tx []byte) ([]byte, error)
	Close() error
}

// Modbus is an open Modbus RTU client.
type Modbus interface {
	ReadHoldingRegisters(slave uint8, addr, count uint16) ([]uint16, error)
	WriteSingleRegister(slave uint8, addr, value uint16) error
	WriteMultipleRegisters(slave uint8, addr uint16, values []uint16) error
	Close() error
}

// Backend gives drivers access to the bench hardware.
type Backend interface {
	ConfigurePin(pin int, dir Direction, initial Level) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	SetPWM(pin int, frequencyHz float64, dutyPercent float64) error
	ReleasePin(pin int) error

	OpenSerial(path string, cfg SerialConfig) (Serial, error)
	OpenI2C(path string, frequencyHz int) (I2C, error)
	OpenSPI(path string, cfg SPIConfig) (SPI, error)
	OpenModbus(path string, cfg SerialConfig) (Modbus, error)
}

// Domain-specific errors returned by backends.
var (
	// ErrTimeout is returned when a read finds no data before the timeout.
	ErrTimeout = errors.New("hal: read timeout")

	// ErrNotConfigured is returned for operations on a pin that was never configured.
	ErrNotConfigured = errors.New("hal: pin not configured")

	// ErrClosed is returned for operations on a closed handle.
	ErrClosed = errors.New("hal: handle closed")

	// ErrModbusException is returned when a slave answers with an exception.
	ErrModbusException = errors.New("hal: modbus exception")
)
