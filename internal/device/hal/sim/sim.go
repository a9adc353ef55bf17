package sim

import (
	"fmt"
	"sync"

	"github.com/roach88/hilbench/internal/device/hal"
)

// Backend simulates a bench. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	pins    map[int]*pinState
	serial  map[string][]byte
	i2c     map[string]map[uint8]map[uint8][]byte
	modbus  map[string]map[uint8]map[uint16]uint16
	open    map[string]int
	failOn  map[string]error
	failOff map[string]error
}

type pinState struct {
	dir   hal.Direction
	level hal.Level
	freq  float64
	duty  float64
}

var _ hal.Backend = (*Backend)(nil)

// New creates an empty simulated bench.
func New() *Backend {
	return &Backend{
		pins:    make(map[int]*pinState),
		serial:  make(map[string][]byte),
		i2c:     make(map[string]map[uint8]map[uint8][]byte),
		modbus:  make(map[string]map[uint8]map[uint16]uint16),
		open:    make(map[string]int),
		failOn:  make(map[string]error),
		failOff: make(map[string]error),
	}
}

// FailOpen makes the next configure/open of resource fail with err.
// resource is a device path, or "pin:<n>" for GPIO lines.
func (b *Backend) FailOpen(resource string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOn[resource] = err
}

// FailClose makes the next release/close of resource fail with err.
func (b *Backend) FailClose(resource string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOff[resource] = err
}

// SetPinLevel drives an input pin from outside, as a wired peer would.
func (b *Backend) SetPinLevel(pin int, level hal.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.pins[pin]
	if !ok {
		st = &pinState{dir: hal.Input}
		b.pins[pin] = st
	}
	st.level = level
}

// PinLevel returns the current level of pin.
func (b *Backend) PinLevel(pin int) (hal.Level, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.pins[pin]
	if !ok {
		return hal.Low, false
	}
	return st.level, true
}

// PWM returns the frequency and duty cycle last set on pin.
func (b *Backend) PWM(pin int) (frequencyHz, dutyPercent float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.pins[pin]; ok {
		return st.freq, st.duty
	}
	return 0, 0
}

// SetRegister seeds register reg of the I2C device at addr on bus path.
func (b *Backend) SetRegister(path string, addr, reg uint8, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setRegisterLocked(path, addr, reg, data)
}

func (b *Backend) setRegisterLocked(path string, addr, reg uint8, data []byte) {
	bus, ok := b.i2c[path]
	if !ok {
		bus = make(map[uint8]map[uint8][]byte)
		b.i2c[path] = bus
	}
	dev, ok := bus[addr]
	if !ok {
		dev = make(map[uint8][]byte)
		bus[addr] = dev
	}
	dev[reg] = append([]byte(nil), data...)
}

// SetHoldingRegister seeds a holding register of slave on the Modbus link at path.
func (b *Backend) SetHoldingRegister(path string, slave uint8, addr, value uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setHoldingLocked(path, slave, addr, value)
}

func (b *Backend) setHoldingLocked(path string, slave uint8, addr, value uint16) {
	link, ok := b.modbus[path]
	if !ok {
		link = make(map[uint8]map[uint16]uint16)
		b.modbus[path] = link
	}
	regs, ok := link[slave]
	if !ok {
		regs = make(map[uint16]uint16)
		link[slave] = regs
	}
	regs[addr] = value
}

// OpenHandles returns how many handles are open on path.
func (b *Backend) OpenHandles(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[path]
}

func (b *Backend) takeFault(m map[string]error, key string) error {
	err, ok := m[key]
	if !ok {
		return nil
	}
	delete(m, key)
	return err
}

func pinKey(pin int) string {
	return fmt.Sprintf("pin:%d", pin)
}

// ConfigurePin implements hal.Backend.
func (b *Backend) ConfigurePin(pin int, dir hal.Direction, initial hal.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFault(b.failOn, pinKey(pin)); err != nil {
		return err
	}
	st, ok := b.pins[pin]
	if !ok {
		st = &pinState{}
		b.pins[pin] = st
	}
	st.dir = dir
	if dir == hal.Output {
		st.level = initial
	}
	b.open[pinKey(pin)]++
	return nil
}

// WritePin implements hal.Backend.
func (b *Backend) WritePin(pin int, level hal.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.pins[pin]
	if !ok || b.open[pinKey(pin)] == 0 {
		return fmt.Errorf("%w: %d", hal.ErrNotConfigured, pin)
	}
	st.level = level
	return nil
}

// ReadPin implements hal.Backend.
func (b *Backend) ReadPin(pin int) (hal.Level, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.pins[pin]
	if !ok || b.open[pinKey(pin)] == 0 {
		return hal.Low, fmt.Errorf("%w: %d", hal.ErrNotConfigured, pin)
	}
	return st.level, nil
}

// SetPWM implements hal.Backend.
func (b *Backend) SetPWM(pin int, frequencyHz, dutyPercent float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.pins[pin]
	if !ok || b.open[pinKey(pin)] == 0 {
		return fmt.Errorf("%w: %d", hal.ErrNotConfigured, pin)
	}
	st.freq = frequencyHz
	st.duty = dutyPercent
	return nil
}

// ReleasePin implements hal.Backend.
func (b *Backend) ReleasePin(pin int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked(pinKey(pin))
}

func (b *Backend) openLocked(path string) error {
	if err := b.takeFault(b.failOn, path); err != nil {
		return err
	}
	b.open[path]++
	return nil
}

func (b *Backend) closeLocked(path string) error {
	if b.open[path] > 0 {
		b.open[path]--
	}
	return b.takeFault(b.failOff, path)
}

func (b *Backend) release(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked(path)
}

// OpenSerial implements hal.Backend.
func (b *Backend) OpenSerial(path string, _ hal.SerialConfig) (hal.Serial, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.openLocked(path); err != nil {
		return nil, err
	}
	return &serialPort{b: b, path: path}, nil
}

// OpenI2C implements hal.Backend.
func (b *Backend) OpenI2C(path string, _ int) (hal.I2C, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.openLocked(path); err != nil {
		return nil, err
	}
	return &i2cBus{b: b, path: path}, nil
}

// OpenSPI implements hal.Backend.
func (b *Backend) OpenSPI(path string, _ hal.SPIConfig) (hal.SPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.openLocked(path); err != nil {
		return nil, err
	}
	return &spiDevice{b: b, path: path}, nil
}

// OpenModbus implements hal.Backend.
func (b *Backend) OpenModbus(path string, _ hal.SerialConfig) (hal.Modbus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.openLocked(path); err != nil {
		return nil, err
	}
	return &modbusLink{b: b, path: path}, nil
}
