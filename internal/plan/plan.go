package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is one test group declared in YAML.
type Plan struct {
	// Name is the group name used in reports.
	Name string `yaml:"name"`

	// Description explains what the plan exercises.
	Description string `yaml:"description,omitempty"`

	// Setup runs before the first test, attributed to the "setup" unit.
	Setup []Step `yaml:"setup,omitempty"`

	// Tests run in file order.
	Tests []Test `yaml:"tests"`

	// Teardown runs after the last test, attributed to the "teardown" unit.
	Teardown []Step `yaml:"teardown,omitempty"`

	// Path is the file the plan was loaded from.
	Path string `yaml:"-"`
}

// Test is a named list of steps.
type Test struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op        string  `yaml:"op"`
	Device    string  `yaml:"device,omitempty"`
	Value     any     `yaml:"value,omitempty"`
	Frequency float64 `yaml:"frequency,omitempty"`
	Count     int     `yaml:"count,omitempty"`
	Address   int     `yaml:"address,omitempty"`
	Register  int     `yaml:"register,omitempty"`
	Slave     int     `yaml:"slave,omitempty"`
	Duration  string  `yaml:"duration,omitempty"`
	Message   string  `yaml:"message,omitempty"`

	Expect     any   `yaml:"expect,omitempty"`
	ExpectIn   []any `yaml:"expect_in,omitempty"`
	ExpectTrue *bool `yaml:"expect_true,omitempty"`
}

// Step operations.
const (
	OpGPIOWrite   = "gpio.write"
	OpGPIORead    = "gpio.read"
	OpPWMDuty     = "pwm.duty"
	OpUARTWrite   = "uart.write"
	OpUARTRead    = "uart.read"
	OpI2CWrite    = "i2c.write"
	OpI2CRead     = "i2c.read"
	OpSPITransfer = "spi.transfer"
	OpModbusRead  = "modbus.read"
	OpModbusWrite = "modbus.write"
	OpSleep       = "sleep"
	OpInfo        = "info"
	OpFail        = "fail"
)

// readOps may carry a check.
var readOps = map[string]bool{
	OpGPIORead:    true,
	OpUARTRead:    true,
	OpI2CRead:     true,
	OpSPITransfer: true,
	OpModbusRead:  true,
}

// deviceOps need a device.
var deviceOps = map[string]bool{
	OpGPIOWrite:   true,
	OpGPIORead:    true,
	OpPWMDuty:     true,
	OpUARTWrite:   true,
	OpUARTRead:    true,
	OpI2CWrite:    true,
	OpI2CRead:     true,
	OpSPITransfer: true,
	OpModbusRead:  true,
	OpModbusWrite: true,
}

// ErrInvalidPlan is wrapped by every validation error.
var ErrInvalidPlan = errors.New("invalid plan")

// Load reads and validates the plan at path.
// Unknown fields are rejected so that typos surface at load time.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes and validates a plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks required fields and step shapes.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if len(p.Tests) == 0 {
		return fmt.Errorf("%w: tests list is required and must be non-empty", ErrInvalidPlan)
	}

	for i, s := range p.Setup {
		if err := validateStep(s); err != nil {
			return fmt.Errorf("%w: setup[%d]: %v", ErrInvalidPlan, i, err)
		}
	}
	seen := make(map[string]bool)
	for i, t := range p.Tests {
		if t.Name == "" {
			return fmt.Errorf("%w: tests[%d]: name is required", ErrInvalidPlan, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: tests[%d]: duplicate test name %q", ErrInvalidPlan, i, t.Name)
		}
		seen[t.Name] = true
		if len(t.Steps) == 0 {
			return fmt.Errorf("%w: tests[%d] (%s): steps list is required", ErrInvalidPlan, i, t.Name)
		}
		for j, s := range t.Steps {
			if err := validateStep(s); err != nil {
				return fmt.Errorf("%w: tests[%d] (%s) step %d: %v", ErrInvalidPlan, i, t.Name, j+1, err)
			}
		}
	}
	for i, s := range p.Teardown {
		if err := validateStep(s); err != nil {
			return fmt.Errorf("%w: teardown[%d]: %v", ErrInvalidPlan, i, err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch s.Op {
	case "":
		return errors.New("op is required")
	case OpGPIOWrite, OpGPIORead, OpPWMDuty, OpUARTWrite, OpUARTRead,
		OpI2CWrite, OpI2CRead, OpSPITransfer, OpModbusRead, OpModbusWrite,
		OpSleep, OpInfo, OpFail:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	if deviceOps[s.Op] && s.Device == "" {
		return fmt.Errorf("%s: device is required", s.Op)
	}

	checks := 0
	if s.Expect != nil {
		checks++
	}
	if s.ExpectIn != nil {
		checks++
	}
	if s.ExpectTrue != nil {
		checks++
	}
	if checks > 0 && !readOps[s.Op] {
		return fmt.Errorf("%s: expect, expect_in and expect_true apply to read operations only", s.Op)
	}
	if checks > 1 {
		return fmt.Errorf("%s: use only one of expect, expect_in and expect_true", s.Op)
	}

	switch s.Op {
	case OpUARTRead, OpI2CRead, OpModbusRead:
		if s.Count <= 0 {
			return fmt.Errorf("%s: count must be positive", s.Op)
		}
	case OpGPIOWrite, OpPWMDuty, OpUARTWrite, OpI2CWrite, OpSPITransfer, OpModbusWrite:
		if s.Value == nil {
			return fmt.Errorf("%s: value is required", s.Op)
		}
	case OpSleep:
		if s.Duration == "" {
			return errors.New("sleep: duration is required")
		}
	case OpInfo, OpFail:
		if s.Message == "" {
			return fmt.Errorf("%s: message is required", s.Op)
		}
	}
	return nil
}
