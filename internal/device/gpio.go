package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hilbench/internal/device/hal"
)

// GPIOConfig declares one GPIO line.
type GPIOConfig struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Pin     int    `yaml:"pin" json:"pin"`
	Mode    string `yaml:"mode" json:"mode"`
	Initial string `yaml:"initial,omitempty" json:"initial,omitempty"`
}

// ParseMode accepts "in"/"out" in any case, optionally prefixed with "GPIO.".
func ParseMode(s string) (hal.Direction, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "GPIO.") {
	case "IN":
		return hal.Input, nil
	case "OUT":
		return hal.Output, nil
	default:
		return hal.Input, invalidf("gpio", "invalid mode %q", s)
	}
}

// ParseLevel accepts "low"/"high" (any case, optional "GPIO." prefix) or
// "0"/"1". An empty string is low.
func ParseLevel(s string) (hal.Level, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "GPIO.") {
	case "", "LOW", "0":
		return hal.Low, nil
	case "HIGH", "1":
		return hal.High, nil
	default:
		return hal.Low, invalidf("gpio", "invalid initial value %q", s)
	}
}

// GPIO is a single digital line.
type GPIO struct {
	base
	pin     int
	dir     hal.Direction
	initial hal.Level
}

// NewGPIO validates cfg and returns an uninitialized GPIO.
func NewGPIO(name string, cfg GPIOConfig, b hal.Backend) (*GPIO, error) {
	if cfg.Pin < 0 {
		return nil, invalidf("gpio", "pin must be >= 0, got %d", cfg.Pin)
	}
	dir, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	initial, err := ParseLevel(cfg.Initial)
	if err != nil {
		return nil, err
	}
	return &GPIO{
		base:    base{name: name, category: CategoryPeripheral, backend: b},
		pin:     cfg.Pin,
		dir:     dir,
		initial: initial,
	}, nil
}

// Pin returns the BCM pin number.
func (g *GPIO) Pin() int { return g.pin }

// Direction returns the configured direction.
func (g *GPIO) Direction() hal.Direction { return g.dir }

// Requirements implements Device.
func (g *GPIO) Requirements() Requirements {
	return Requirements{Pins: []int{g.pin}}
}

// Initialize implements Device.
func (g *GPIO) Initialize(_ context.Context) error {
	if err := g.backend.ConfigurePin(g.pin, g.dir, g.initial); err != nil {
		return fmt.Errorf("configure gpio %d as %s: %w", g.pin, g.dir, err)
	}
	g.initialized = true
	return nil
}

// Release implements Device.
func (g *GPIO) Release(_ context.Context) error {
	if !g.initialized {
		return nil
	}
	g.initialized = false
	if err := g.backend.ReleasePin(g.pin); err != nil {
		return fmt.Errorf("release gpio %d: %w", g.pin, err)
	}
	return nil
}

// Write drives an output line.
func (g *GPIO) Write(level hal.Level) error {
	if err := g.ready(); err != nil {
		return err
	}
	if g.dir != hal.Output {
		return fmt.Errorf("%w: cannot write to pin %d, it must be set as OUTPUT", ErrWrongMode, g.pin)
	}
	return g.backend.WritePin(g.pin, level)
}

// Read samples an input line.
func (g *GPIO) Read() (hal.Level, error) {
	if err := g.ready(); err != nil {
		return hal.Low, err
	}
	if g.dir != hal.Input {
		return hal.Low, fmt.Errorf("%w: cannot read from pin %d, it must be set as INPUT", ErrWrongMode, g.pin)
	}
	return g.backend.ReadPin(g.pin)
}
