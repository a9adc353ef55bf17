package device

import (
	"context"
	"fmt"

	"github.com/roach88/hilbench/internal/device/hal"
)

// SPI defaults.
const (
	DefaultSPIMaxSpeedHz  = 50000
	DefaultSPIBitsPerWord = 8
)

// SPIConfig declares an SPI device. CSPin, when set, is a GPIO line used as
// chip select and is claimed alongside the device node.
type SPIConfig struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Bus         int    `yaml:"bus" json:"bus"`
	Device      int    `yaml:"device" json:"device"`
	MaxSpeedHz  int    `yaml:"max_speed_hz,omitempty" json:"max_speed_hz,omitempty"`
	Mode        int    `yaml:"mode,omitempty" json:"mode,omitempty"`
	BitsPerWord int    `yaml:"bits_per_word,omitempty" json:"bits_per_word,omitempty"`
	CSHigh      bool   `yaml:"cshigh,omitempty" json:"cshigh,omitempty"`
	LSBFirst    bool   `yaml:"lsbfirst,omitempty" json:"lsbfirst,omitempty"`
	CSPin       *int   `yaml:"cs_pin,omitempty" json:"cs_pin,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *SPIConfig) ApplyDefaults() {
	if c.MaxSpeedHz == 0 {
		c.MaxSpeedHz = DefaultSPIMaxSpeedHz
	}
	if c.BitsPerWord == 0 {
		c.BitsPerWord = DefaultSPIBitsPerWord
	}
}

// SPIPath returns the Linux device node for bus and chip select.
func SPIPath(bus, dev int) string {
	return fmt.Sprintf("/dev/spidev%d.%d", bus, dev)
}

// SPI is an SPI master bound to one chip select.
type SPI struct {
	base
	cfg  SPIConfig
	conn hal.SPI
}

// NewSPI validates cfg and returns an uninitialized device.
func NewSPI(name string, cfg SPIConfig, b hal.Backend) (*SPI, error) {
	cfg.ApplyDefaults()
	switch {
	case cfg.Bus < 0 || cfg.Device < 0:
		return nil, invalidf("spi", "bus and device must be >= 0, got %d.%d", cfg.Bus, cfg.Device)
	case cfg.Mode < 0 || cfg.Mode > 3:
		return nil, invalidf("spi", "mode must be 0-3, got %d", cfg.Mode)
	case cfg.MaxSpeedHz < 0:
		return nil, invalidf("spi", "max_speed_hz must be positive, got %d", cfg.MaxSpeedHz)
	case cfg.BitsPerWord < 1 || cfg.BitsPerWord > 32:
		return nil, invalidf("spi", "bits_per_word must be 1-32, got %d", cfg.BitsPerWord)
	case cfg.CSPin != nil && *cfg.CSPin < 0:
		return nil, invalidf("spi", "cs_pin must be >= 0, got %d", *cfg.CSPin)
	}
	return &SPI{
		base: base{name: name, category: CategoryPeripheral, backend: b},
		cfg:  cfg,
	}, nil
}

// Path returns the device node.
func (d *SPI) Path() string { return SPIPath(d.cfg.Bus, d.cfg.Device) }

// Requirements implements Device.
func (d *SPI) Requirements() Requirements {
	req := Requirements{Ports: []string{d.Path()}}
	if d.cfg.CSPin != nil {
		req.Pins = []int{*d.cfg.CSPin}
	}
	return req
}

// Initialize implements Device. A dedicated chip select line idles inactive.
func (d *SPI) Initialize(_ context.Context) error {
	if d.cfg.CSPin != nil {
		idle := hal.High
		if d.cfg.CSHigh {
			idle = hal.Low
		}
		if err := d.backend.ConfigurePin(*d.cfg.CSPin, hal.Output, idle); err != nil {
			return fmt.Errorf("configure spi chip select %d: %w", *d.cfg.CSPin, err)
		}
	}
	conn, err := d.backend.OpenSPI(d.Path(), hal.SPIConfig{
		MaxSpeedHz:  d.cfg.MaxSpeedHz,
		Mode:        d.cfg.Mode,
		BitsPerWord: d.cfg.BitsPerWord,
		CSHigh:      d.cfg.CSHigh,
		LSBFirst:    d.cfg.LSBFirst,
	})
	if err != nil {
		if d.cfg.CSPin != nil {
			_ = d.backend.ReleasePin(*d.cfg.CSPin)
		}
		return fmt.Errorf("open spi %s: %w", d.Path(), err)
	}
	d.conn = conn
	d.initialized = true
	return nil
}

// Release implements Device. Both the node and the chip select line are
// released even if one fails.
func (d *SPI) Release(_ context.Context) error {
	if !d.initialized {
		return nil
	}
	d.initialized = false
	conn := d.conn
	d.conn = nil
	var firstErr error
	if err := conn.Close(); err != nil {
		firstErr = fmt.Errorf("close spi %s: %w", d.Path(), err)
	}
	if d.cfg.CSPin != nil {
		if err := d.backend.ReleasePin(*d.cfg.CSPin); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release spi chip select %d: %w", *d.cfg.CSPin, err)
		}
	}
	return firstErr
}

// Transfer performs one full-duplex transfer.
func (d *SPI) Transfer(tx []byte) ([]byte, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.conn.Transfer(tx)
}
