package plan

import (
	"fmt"
	"time"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/harness"
)

// action is one compiled step.
type action func(ec *harness.ExecContext) error

// check is a compiled read check. bind turns it into a Deferred assertion
// once the read value is known.
type check struct {
	kind     harness.Kind
	expected any
	want     bool
	label    string
}

func (c *check) bind(actual any) harness.Deferred {
	switch c.kind {
	case harness.KindIn:
		return harness.Deferred{Kind: harness.KindIn, Args: []any{actual, c.expected}}
	case harness.KindTrue:
		return harness.Deferred{
			Kind: harness.KindTrue,
			Args: []any{truthy(actual) == c.want, fmt.Sprintf("%s returned %v", c.label, actual)},
		}
	default:
		return harness.Deferred{Kind: harness.KindEqual, Args: []any{c.expected, actual}}
	}
}

// Compile turns p into a harness group.
func Compile(p *Plan) (*harness.Group, error) {
	setup, err := compileUnit(p.Setup)
	if err != nil {
		return nil, fmt.Errorf("%s: setup: %w", p.Name, err)
	}
	teardown, err := compileUnit(p.Teardown)
	if err != nil {
		return nil, fmt.Errorf("%s: teardown: %w", p.Name, err)
	}

	tests := make([]harness.TestCase, 0, len(p.Tests))
	for _, t := range p.Tests {
		run, err := compileUnit(t.Steps)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", p.Name, t.Name, err)
		}
		tests = append(tests, harness.TestCase{Name: t.Name, Run: run})
	}
	return harness.NewGroup(p.Name, setup, teardown, tests...), nil
}

// CompileAll compiles plans in order.
func CompileAll(plans []*Plan) ([]*harness.Group, error) {
	groups := make([]*harness.Group, 0, len(plans))
	for _, p := range plans {
		g, err := Compile(p)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// compileUnit returns nil for an empty step list.
func compileUnit(steps []Step) (harness.TestFunc, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	actions := make([]action, len(steps))
	for i, s := range steps {
		a, err := compileStep(s)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
		actions[i] = a
	}
	return func(ec *harness.ExecContext) error {
		for i, a := range actions {
			if err := a(ec); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, describe(steps[i]), err)
			}
		}
		return nil
	}, nil
}

func describe(s Step) string {
	if s.Device == "" {
		return s.Op
	}
	return s.Op + " " + s.Device
}

func compileCheck(s Step, normalize func(any) (any, error)) (*check, error) {
	if normalize == nil {
		normalize = func(v any) (any, error) { return v, nil }
	}
	label := describe(s)
	switch {
	case s.Expect != nil:
		v, err := normalize(s.Expect)
		if err != nil {
			return nil, fmt.Errorf("expect: %w", err)
		}
		return &check{kind: harness.KindEqual, expected: v, label: label}, nil
	case s.ExpectIn != nil:
		list := make([]any, len(s.ExpectIn))
		for i, e := range s.ExpectIn {
			v, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("expect_in[%d]: %w", i, err)
			}
			list[i] = v
		}
		return &check{kind: harness.KindIn, expected: list, label: label}, nil
	case s.ExpectTrue != nil:
		return &check{kind: harness.KindTrue, want: *s.ExpectTrue, label: label}, nil
	default:
		return nil, nil
	}
}

// read wraps a read operation with its optional check.
func read(c *check, fn func(ec *harness.ExecContext) (any, error)) action {
	return func(ec *harness.ExecContext) error {
		v, err := fn(ec)
		if err != nil {
			return err
		}
		if c == nil {
			ec.Logger().Debug("read", "value", v)
			return nil
		}
		c.bind(v).Evaluate(ec)
		return nil
	}
}

func compileStep(s Step) (action, error) {
	switch s.Op {
	case OpGPIOWrite:
		level, err := toLevel(s.Value)
		if err != nil {
			return nil, err
		}
		return func(ec *harness.ExecContext) error {
			g, err := harness.DeviceAs[*device.GPIO](ec, s.Device)
			if err != nil {
				return err
			}
			return g.Write(level)
		}, nil

	case OpGPIORead:
		c, err := compileCheck(s, func(v any) (any, error) {
			l, err := toLevel(v)
			return int(l), err
		})
		if err != nil {
			return nil, err
		}
		return read(c, func(ec *harness.ExecContext) (any, error) {
			g, err := harness.DeviceAs[*device.GPIO](ec, s.Device)
			if err != nil {
				return nil, err
			}
			l, err := g.Read()
			return int(l), err
		}), nil

	case OpPWMDuty:
		duty, err := toFloat(s.Value)
		if err != nil {
			return nil, err
		}
		if duty < 0 || duty > 100 {
			return nil, fmt.Errorf("duty cycle %g out of range 0-100", duty)
		}
		if s.Frequency < 0 {
			return nil, fmt.Errorf("frequency %g must be positive", s.Frequency)
		}
		return func(ec *harness.ExecContext) error {
			p, err := harness.DeviceAs[*device.PWM](ec, s.Device)
			if err != nil {
				return err
			}
			if s.Frequency > 0 {
				if err := p.SetFrequency(s.Frequency); err != nil {
					return err
				}
			}
			return p.SetDutyCycle(duty)
		}, nil

	case OpUARTWrite:
		data, err := toBytes(s.Value)
		if err != nil {
			return nil, err
		}
		return func(ec *harness.ExecContext) error {
			u, err := harness.DeviceAs[*device.UART](ec, s.Device)
			if err != nil {
				return err
			}
			_, err = u.Write(data)
			return err
		}, nil

	case OpUARTRead:
		c, err := compileCheck(s, nil)
		if err != nil {
			return nil, err
		}
		return read(c, func(ec *harness.ExecContext) (any, error) {
			u, err := harness.DeviceAs[*device.UART](ec, s.Device)
			if err != nil {
				return nil, err
			}
			b, err := u.Read(s.Count)
			return string(b), err
		}), nil

	case OpI2CWrite:
		if err := i2cTarget(s); err != nil {
			return nil, err
		}
		data, err := toBytes(s.Value)
		if err != nil {
			return nil, err
		}
		return func(ec *harness.ExecContext) error {
			d, err := harness.DeviceAs[*device.I2C](ec, s.Device)
			if err != nil {
				return err
			}
			return d.WriteRegister(uint8(s.Address), uint8(s.Register), data)
		}, nil

	case OpI2CRead:
		if err := i2cTarget(s); err != nil {
			return nil, err
		}
		c, err := compileCheck(s, nil)
		if err != nil {
			return nil, err
		}
		return read(c, func(ec *harness.ExecContext) (any, error) {
			d, err := harness.DeviceAs[*device.I2C](ec, s.Device)
			if err != nil {
				return nil, err
			}
			b, err := d.ReadRegister(uint8(s.Address), uint8(s.Register), s.Count)
			if err != nil {
				return nil, err
			}
			return bytesResult(b), nil
		}), nil

	case OpSPITransfer:
		tx, err := toBytes(s.Value)
		if err != nil {
			return nil, err
		}
		c, err := compileCheck(s, nil)
		if err != nil {
			return nil, err
		}
		return read(c, func(ec *harness.ExecContext) (any, error) {
			d, err := harness.DeviceAs[*device.SPI](ec, s.Device)
			if err != nil {
				return nil, err
			}
			rx, err := d.Transfer(tx)
			if err != nil {
				return nil, err
			}
			return bytesResult(rx), nil
		}), nil

	case OpModbusRead:
		if err := modbusTarget(s); err != nil {
			return nil, err
		}
		if err := inRange("count", s.Count, 1, 125); err != nil {
			return nil, err
		}
		c, err := compileCheck(s, nil)
		if err != nil {
			return nil, err
		}
		return read(c, func(ec *harness.ExecContext) (any, error) {
			m, err := harness.DeviceAs[*device.Modbus](ec, s.Device)
			if err != nil {
				return nil, err
			}
			regs, err := m.ReadHoldingRegisters(uint8(s.Slave), uint16(s.Address), uint16(s.Count))
			if err != nil {
				return nil, err
			}
			return registersResult(regs), nil
		}), nil

	case OpModbusWrite:
		if err := modbusTarget(s); err != nil {
			return nil, err
		}
		values, err := toRegisters(s.Value)
		if err != nil {
			return nil, err
		}
		_, multiple := s.Value.([]any)
		return func(ec *harness.ExecContext) error {
			m, err := harness.DeviceAs[*device.Modbus](ec, s.Device)
			if err != nil {
				return err
			}
			if multiple {
				return m.WriteMultipleRegisters(uint8(s.Slave), uint16(s.Address), values)
			}
			return m.WriteSingleRegister(uint8(s.Slave), uint16(s.Address), values[0])
		}, nil

	case OpSleep:
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("duration %s must not be negative", d)
		}
		return func(ec *harness.ExecContext) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ec.Context().Done():
				return ec.Context().Err()
			}
		}, nil

	case OpInfo:
		msg := s.Message
		return func(ec *harness.ExecContext) error {
			harness.InfoMessage(ec, msg)
			return nil
		}, nil

	case OpFail:
		msg := s.Message
		return func(ec *harness.ExecContext) error {
			harness.FailWithMessage(ec, msg)
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown op %q", s.Op)
	}
}

func i2cTarget(s Step) error {
	if err := inRange("address", s.Address, 0, 0x7f); err != nil {
		return err
	}
	return inRange("register", s.Register, 0, 0xff)
}

func modbusTarget(s Step) error {
	if err := inRange("slave", s.Slave, 0, 247); err != nil {
		return err
	}
	return inRange("address", s.Address, 0, 0xffff)
}
