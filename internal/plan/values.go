package plan

import (
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/device/hal"
)

// toInt accepts YAML integers and integral floats.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("%d is out of range", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%g is not an integer", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%v (%T) is not an integer", v, v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%v (%T) is not a number", v, v)
	}
}

func inRange(what string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d out of range %d-%d", what, v, lo, hi)
	}
	return nil
}

// toBytes accepts a string, a single byte value or a list of byte values.
func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []any:
		out := make([]byte, len(x))
		for i, e := range x {
			n, err := toInt(e)
			if err != nil {
				return nil, fmt.Errorf("byte %d: %w", i, err)
			}
			if err := inRange(fmt.Sprintf("byte %d", i), n, 0, 255); err != nil {
				return nil, err
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		if err := inRange("byte", n, 0, 255); err != nil {
			return nil, err
		}
		return []byte{byte(n)}, nil
	}
}

// toRegisters accepts a single register value or a list of them.
func toRegisters(v any) ([]uint16, error) {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	out := make([]uint16, len(items))
	for i, e := range items {
		n, err := toInt(e)
		if err != nil {
			return nil, fmt.Errorf("register %d: %w", i, err)
		}
		if err := inRange(fmt.Sprintf("register %d", i), n, 0, math.MaxUint16); err != nil {
			return nil, err
		}
		out[i] = uint16(n)
	}
	return out, nil
}

// toLevel accepts level names, 0/1 and booleans.
func toLevel(v any) (hal.Level, error) {
	switch x := v.(type) {
	case string:
		return device.ParseLevel(x)
	case bool:
		if x {
			return hal.High, nil
		}
		return hal.Low, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return hal.Low, err
		}
		switch n {
		case 0:
			return hal.Low, nil
		case 1:
			return hal.High, nil
		}
		return hal.Low, fmt.Errorf("level %d must be 0 or 1", n)
	}
}

// bytesResult returns a single byte as an int and longer reads as a list.
func bytesResult(b []byte) any {
	if len(b) == 1 {
		return int(b[0])
	}
	out := make([]any, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func registersResult(regs []uint16) any {
	if len(regs) == 1 {
		return int(regs[0])
	}
	out := make([]any, len(regs))
	for i, v := range regs {
		out[i] = int(v)
	}
	return out
}

// truthy is false for zero numbers, empty strings and lists, and nil.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if f, err := toFloat(v); err == nil {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	default:
		return true
	}
}
