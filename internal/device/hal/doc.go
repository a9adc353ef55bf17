// Package hal defines the hardware abstraction the device drivers talk to.
//
// Drivers never touch vendor libraries directly. They open pins, serial
// ports, I2C buses, SPI devices and Modbus links through a Backend, so the
// same driver code runs against a real board or against the in-memory
// simulator in package sim.
//
// Backends only move bytes and levels. Resource arbitration is done before a
// backend is ever called, by the lifecycle manager.
package hal
