// Package sim is an in-memory hal.Backend.
//
// It models a bench wired in loopback: serial ports echo what is written,
// SPI devices return the transmitted bytes (MISO tied to MOSI), I2C buses
// expose per-address register maps and Modbus links expose per-slave
// holding-register banks. Tests and dry runs seed the simulated peripherals
// through the Set* helpers and inject faults with FailOpen and FailClose.
//
// The simulator is safe for concurrent use, although the harness only ever
// drives it from one goroutine.
package sim
