// Package config loads bench configuration.
//
// A bench file is YAML (.yaml, .yml) or CUE (.cue). Loading follows the order:
//
//  1. Built-in defaults
//  2. The file, validated against the embedded #Bench schema
//  3. Environment overrides (HILBENCH_*)
//  4. Semantic validation (Validate)
//
// Example:
//
//	bench:
//	  name: board-a
//	  backend: sim
//	protocols:
//	  modbus:
//	    - name: plc
//	      port: /dev/ttyUSB0
//	peripherals:
//	  gpio:
//	    - { name: led, pin: 17, mode: out, initial: low }
//	    - { name: button, pin: 27, mode: in }
//	  spi:
//	    - { name: adc, bus: 0, device: 0, cs_pin: 8 }
//
// Devices without a name get "<kind><index>" (gpio0, gpio1, ...). Buckets
// turns the device lists into lifecycle buckets: "protocols" first, then
// "peripherals" in the order uart, gpio, pwm, i2c, spi.
package config
