package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hilbench/internal/device/hal"
	"github.com/roach88/hilbench/internal/device/hal/sim"
	"github.com/roach88/hilbench/internal/resource"
)

func intPtr(v int) *int { return &v }

func TestRequirementsIDsPinsBeforePorts(t *testing.T) {
	req := Requirements{Pins: []int{8, 3}, Ports: []string{"/dev/spidev0.0", "/dev/ttyS0"}}

	assert.Equal(t, []resource.ID{
		resource.Pin(8),
		resource.Pin(3),
		resource.Port("/dev/spidev0.0"),
		resource.Port("/dev/ttyS0"),
	}, req.IDs())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    hal.Direction
		wantErr bool
	}{
		{"IN", hal.Input, false},
		{"in", hal.Input, false},
		{"GPIO.IN", hal.Input, false},
		{"out", hal.Output, false},
		{" GPIO.OUT ", hal.Output, false},
		{"inout", hal.Input, true},
		{"", hal.Input, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]hal.Level{"": hal.Low, "LOW": hal.Low, "gpio.high": hal.High, "1": hal.High, "0": hal.Low} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("medium")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGPIOOutput(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	g, err := NewGPIO("led", GPIOConfig{Pin: 17, Mode: "OUT", Initial: "HIGH"}, b)
	require.NoError(t, err)

	assert.Equal(t, "led", g.Name())
	assert.Equal(t, CategoryPeripheral, g.Category())
	assert.Equal(t, Requirements{Pins: []int{17}}, g.Requirements())

	require.ErrorIs(t, g.Write(hal.Low), ErrNotInitialized)

	require.NoError(t, g.Initialize(ctx))
	level, _ := b.PinLevel(17)
	assert.Equal(t, hal.High, level)

	require.NoError(t, g.Write(hal.Low))
	level, _ = b.PinLevel(17)
	assert.Equal(t, hal.Low, level)

	_, err = g.Read()
	require.ErrorIs(t, err, ErrWrongMode)

	require.NoError(t, g.Release(ctx))
	assert.Equal(t, 0, b.OpenHandles("pin:17"))
	assert.False(t, g.Initialized())
}

func TestGPIOInput(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	g, err := NewGPIO("button", GPIOConfig{Pin: 27, Mode: "GPIO.IN"}, b)
	require.NoError(t, err)
	require.NoError(t, g.Initialize(ctx))
	defer g.Release(ctx)

	b.SetPinLevel(27, hal.High)
	level, err := g.Read()
	require.NoError(t, err)
	assert.Equal(t, hal.High, level)

	require.ErrorIs(t, g.Write(hal.High), ErrWrongMode)
}

func TestGPIORejectsBadConfig(t *testing.T) {
	_, err := NewGPIO("x", GPIOConfig{Pin: -1, Mode: "OUT"}, sim.New())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGPIO("x", GPIOConfig{Pin: 4, Mode: "sideways"}, sim.New())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPWM(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	p, err := NewPWM("fan", PWMConfig{Pin: 18}, b)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(ctx))

	freq, duty := b.PWM(18)
	assert.Equal(t, DefaultPWMFrequency, freq)
	assert.Zero(t, duty)

	require.NoError(t, p.SetDutyCycle(42.5))
	_, duty = b.PWM(18)
	assert.Equal(t, 42.5, duty)
	assert.Equal(t, 42.5, p.DutyCycle())

	require.Error(t, p.SetDutyCycle(101))
	require.Error(t, p.SetFrequency(0))

	require.NoError(t, p.SetFrequency(250))
	freq, duty = b.PWM(18)
	assert.Equal(t, 250.0, freq)
	assert.Equal(t, 42.5, duty)

	require.NoError(t, p.Release(ctx))
	require.ErrorIs(t, p.SetDutyCycle(10), ErrNotInitialized)
}

func TestUARTDefaultsAndLoopback(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	u, err := NewUART("console", UARTConfig{}, b)
	require.NoError(t, err)
	assert.Equal(t, DefaultSerialPort, u.Port())
	assert.Equal(t, Requirements{Ports: []string{DefaultSerialPort}}, u.Requirements())

	require.NoError(t, u.Initialize(ctx))
	assert.Equal(t, 1, b.OpenHandles(DefaultSerialPort))

	n, err := u.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := u.Read(16)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)

	_, err = u.Read(16)
	require.ErrorIs(t, err, hal.ErrTimeout)

	require.NoError(t, u.Release(ctx))
	assert.Equal(t, 0, b.OpenHandles(DefaultSerialPort))
	require.NoError(t, u.Release(ctx), "second release is a no-op")
}

func TestSerialValidation(t *testing.T) {
	tests := map[string]SerialConfig{
		"parity":   {Parity: "X"},
		"stopbits": {StopBits: 3},
		"baudrate": {BaudRate: -1},
		"timeout":  {Timeout: -0.5},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewUART("u", UARTConfig{SerialConfig: cfg}, sim.New())
			require.ErrorIs(t, err, ErrInvalidConfig)
			_, err = NewModbus("m", ModbusConfig{SerialConfig: cfg}, sim.New())
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestI2C(t *testing.T) {
	ctx := context.Background()
	b := sim.New()

	d, err := NewI2C("sensors", I2CConfig{}, b)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-1", d.Path())

	d0, err := NewI2C("aux", I2CConfig{Bus: intPtr(0)}, b)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-0", d0.Path())

	b.SetRegister("/dev/i2c-1", 0x48, 0x00, []byte{0x19, 0x80})
	require.NoError(t, d.Initialize(ctx))

	got, err := d.ReadRegister(0x48, 0x00, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x19, 0x80}, got)

	require.NoError(t, d.WriteRegister(0x48, 0x01, []byte{0x60}))
	got, err = d.ReadRegister(0x48, 0x01, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60}, got)

	require.NoError(t, d.Release(ctx))
}

func TestSPIWithChipSelect(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	d, err := NewSPI("adc", SPIConfig{Bus: 0, Device: 1, CSPin: intPtr(8)}, b)
	require.NoError(t, err)

	assert.Equal(t, Requirements{Pins: []int{8}, Ports: []string{"/dev/spidev0.1"}}, d.Requirements())

	require.NoError(t, d.Initialize(ctx))
	level, _ := b.PinLevel(8)
	assert.Equal(t, hal.High, level, "chip select idles high")

	rx, err := d.Transfer([]byte{0x01, 0x80, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x80, 0x00}, rx)

	b.FailClose("/dev/spidev0.1", errors.New("stuck"))
	err = d.Release(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, b.OpenHandles("pin:8"), "chip select released despite node close failure")
}

func TestSPIRollsBackChipSelectOnOpenFailure(t *testing.T) {
	b := sim.New()
	d, err := NewSPI("adc", SPIConfig{CSPin: intPtr(8)}, b)
	require.NoError(t, err)

	b.FailOpen("/dev/spidev0.0", errors.New("no such device"))
	require.Error(t, d.Initialize(context.Background()))
	assert.Equal(t, 0, b.OpenHandles("pin:8"))
	assert.False(t, d.Initialized())
}

func TestSPIValidation(t *testing.T) {
	_, err := NewSPI("s", SPIConfig{Mode: 4}, sim.New())
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewSPI("s", SPIConfig{Bus: -1}, sim.New())
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewSPI("s", SPIConfig{BitsPerWord: 64}, sim.New())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestModbus(t *testing.T) {
	ctx := context.Background()
	b := sim.New()
	m, err := NewModbus("plc", ModbusConfig{SerialConfig: SerialConfig{Port: "/dev/ttyUSB1"}}, b)
	require.NoError(t, err)
	assert.Equal(t, CategoryProtocol, m.Category())
	assert.Equal(t, Requirements{Ports: []string{"/dev/ttyUSB1"}}, m.Requirements())

	b.SetHoldingRegister("/dev/ttyUSB1", 1, 100, 0x1234)
	require.NoError(t, m.Initialize(ctx))

	regs, err := m.ReadHoldingRegisters(1, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234}, regs)

	require.NoError(t, m.WriteMultipleRegisters(1, 101, []uint16{7, 8}))
	regs, err = m.ReadHoldingRegisters(1, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234, 7, 8}, regs)

	_, err = m.ReadHoldingRegisters(9, 0, 1)
	require.ErrorIs(t, err, hal.ErrModbusException)

	_, err = m.ReadHoldingRegisters(1, 0, 0)
	require.Error(t, err)

	require.NoError(t, m.Release(ctx))
	_, err = m.ReadHoldingRegisters(1, 100, 1)
	var nie *NotInitializedError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "plc", nie.Device)
}

func TestInitializeFailureLeavesDeviceUninitialized(t *testing.T) {
	b := sim.New()
	b.FailOpen("pin:5", errors.New("export failed"))
	g, err := NewGPIO("relay", GPIOConfig{Pin: 5, Mode: "OUT"}, b)
	require.NoError(t, err)

	err = g.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export failed")
	assert.False(t, g.Initialized())
	require.NoError(t, g.Release(context.Background()))
}
