package sim

import (
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// handle tracks the closed state shared by every simulated handle.
type handle struct {
	b      *Backend
	path   string
	closed bool
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.b.release(h.path)
}

func (h *handle) check() error {
	if h.closed {
		return fmt.Errorf("%w: %s", hal.ErrClosed, h.path)
	}
	return nil
}

// serialPort loops written bytes back to the reader.
type serialPort handle

func (p *serialPort) Write(data []byte) (int, error) {
	if err := (*handle)(p).check(); err != nil {
		return 0, err
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.serial[p.path] = append(p.b.serial[p.path], data...)
	return len(data), nil
}

func (p *serialPort) Read(buf []byte) (int, error) {
	if err := (*handle)(p).check(); err != nil {
		return 0, err
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	pending := p.b.serial[p.path]
	if len(pending) == 0 {
		return 0, hal.ErrTimeout
	}
	n := copy(buf, pending)
	p.b.serial[p.path] = pending[n:]
	return n, nil
}

func (p *serialPort) Close() error { return (*handle)(p).Close() }

type i2cBus handle

func (d *i2cBus) ReadRegister(addr, reg uint8, n int) ([]byte, error) {
	if err := (*handle)(d).check(); err != nil {
		return nil, err
	}
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	dev, ok := d.b.i2c[d.path][addr]
	if !ok {
		return nil, fmt.Errorf("i2c %s: no device at 0x%02x", d.path, addr)
	}
	out := make([]byte, n)
	copy(out, dev[reg])
	return out, nil
}

func (d *i2cBus) WriteRegister(addr, reg uint8, data []byte) error {
	if err := (*handle)(d).check(); err != nil {
		return err
	}
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	d.b.setRegisterLocked(d.path, addr, reg, data)
	return nil
}

func (d *i2cBus) Close() error { return (*handle)(d).Close() }

type spiDevice handle

func (d *spiDevice) Transfer(tx []byte) ([]byte, error) {
	if err := (*handle)(d).check(); err != nil {
		return nil, err
	}
	return append([]byte(nil), tx...), nil
}

func (d *spiDevice) Close() error { return (*handle)(d).Close() }

type modbusLink handle

func (m *modbusLink) ReadHoldingRegisters(slave uint8, addr, count uint16) ([]uint16, error) {
	if err := (*handle)(m).check(); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	regs, ok := m.b.modbus[m.path][slave]
	if !ok {
		return nil, fmt.Errorf("%w: slave %d does not respond", hal.ErrModbusException, slave)
	}
	out := make([]uint16, count)
	for i := range out {
		v, ok := regs[addr+uint16(i)]
		if !ok {
			return nil, fmt.Errorf("%w: illegal data address %d", hal.ErrModbusException, addr+uint16(i))
		}
		out[i] = v
	}
	return out, nil
}

func (m *modbusLink) WriteSingleRegister(slave uint8, addr, value uint16) error {
	return m.WriteMultipleRegisters(slave, addr, []uint16{value})
}

func (m *modbusLink) WriteMultipleRegisters(slave uint8, addr uint16, values []uint16) error {
	if err := (*handle)(m).check(); err != nil {
		return err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	for i, v := range values {
		m.b.setHoldingLocked(m.path, slave, addr+uint16(i), v)
	}
	return nil
}

func (m *modbusLink) Close() error { return (*handle)(m).Close() }
