package device

import (
	"context"
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// DefaultPWMFrequency is used when a PWM entry omits its frequency.
const DefaultPWMFrequency = 1000.0

// PWMConfig declares a software or hardware PWM output.
type PWMConfig struct {
	Name      string  `yaml:"name,omitempty" json:"name,omitempty"`
	Pin       int     `yaml:"pin" json:"pin"`
	Frequency float64 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *PWMConfig) ApplyDefaults() {
	if c.Frequency == 0 {
		c.Frequency = DefaultPWMFrequency
	}
}

// PWM drives a pulse-width modulated output.
type PWM struct {
	base
	pin       int
	frequency float64
	duty      float64
}

// NewPWM validates cfg and returns an uninitialized PWM output.
func NewPWM(name string, cfg PWMConfig, b hal.Backend) (*PWM, error) {
	cfg.ApplyDefaults()
	if cfg.Pin < 0 {
		return nil, invalidf("pwm", "pin must be >= 0, got %d", cfg.Pin)
	}
	if cfg.Frequency < 0 {
		return nil, invalidf("pwm", "frequency must be positive, got %g", cfg.Frequency)
	}
	return &PWM{
		base:      base{name: name, category: CategoryPeripheral, backend: b},
		pin:       cfg.Pin,
		frequency: cfg.Frequency,
	}, nil
}

// Requirements implements Device.
func (p *PWM) Requirements() Requirements {
	return Requirements{Pins: []int{p.pin}}
}

// Initialize implements Device. The output starts at 0% duty.
func (p *PWM) Initialize(_ context.Context) error {
	if err := p.backend.ConfigurePin(p.pin, hal.Output, hal.Low); err != nil {
		return fmt.Errorf("configure pwm pin %d: %w", p.pin, err)
	}
	if err := p.backend.SetPWM(p.pin, p.frequency, 0); err != nil {
		_ = p.backend.ReleasePin(p.pin)
		return fmt.Errorf("start pwm on pin %d: %w", p.pin, err)
	}
	p.duty = 0
	p.initialized = true
	return nil
}

// Release implements Device.
func (p *PWM) Release(_ context.Context) error {
	if !p.initialized {
		return nil
	}
	p.initialized = false
	if err := p.backend.ReleasePin(p.pin); err != nil {
		return fmt.Errorf("release pwm pin %d: %w", p.pin, err)
	}
	return nil
}

// SetDutyCycle sets the duty cycle in percent (0-100).
func (p *PWM) SetDutyCycle(percent float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("pwm %s: duty cycle %g out of range 0-100", p.name, percent)
	}
	if err := p.backend.SetPWM(p.pin, p.frequency, percent); err != nil {
		return err
	}
	p.duty = percent
	return nil
}

// SetFrequency changes the output frequency, keeping the duty cycle.
func (p *PWM) SetFrequency(hz float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	if hz <= 0 {
		return fmt.Errorf("pwm %s: frequency must be positive, got %g", p.name, hz)
	}
	if err := p.backend.SetPWM(p.pin, hz, p.duty); err != nil {
		return err
	}
	p.frequency = hz
	return nil
}

// DutyCycle returns the last duty cycle set.
func (p *PWM) DutyCycle() float64 { return p.duty }
