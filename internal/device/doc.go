// Package device defines the descriptor contract every bench peripheral and
// protocol client satisfies, and ships the built-in driver kinds.
//
// A Device reports the physical resources it needs, then initializes and
// releases itself through a hal.Backend. The lifecycle manager claims the
// reported resources before Initialize is ever called.
//
// # Categories
//
// Devices carry their category explicitly:
//
//   - CategoryProtocol: protocol clients layered on a link (Modbus RTU)
//   - CategoryPeripheral: direct peripherals (GPIO, PWM, UART, I2C, SPI)
//
// # Driver Kinds
//
//	Kind     Requirements                      Operations
//	gpio     pin                               Write, Read
//	pwm      pin                               SetDutyCycle, SetFrequency
//	uart     port                              Write, Read
//	i2c      /dev/i2c-<bus>                    ReadRegister, WriteRegister
//	spi      /dev/spidev<bus>.<dev> [+cs pin]  Transfer
//	modbus   port                              ReadHoldingRegisters, WriteSingleRegister, WriteMultipleRegisters
package device
