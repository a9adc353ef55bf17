// Package plan loads declarative test plans and compiles them into
// harness groups.
//
// # Plan Format
//
//	name: gpio_loopback
//	description: "LED output is wired to the button input"
//	setup:
//	  - { op: gpio.write, device: led, value: low }
//	tests:
//	  - name: led_high_reads_high
//	    steps:
//	      - { op: gpio.write, device: led, value: high }
//	      - { op: gpio.read, device: button, expect: high }
//	teardown:
//	  - { op: gpio.write, device: led, value: low }
//
// # Operations
//
//	gpio.write    device, value (low|high|0|1)
//	gpio.read     device
//	pwm.duty      device, value (0-100), optional frequency
//	uart.write    device, value (string or byte list)
//	uart.read     device, count
//	i2c.write     device, address, register, value (byte list)
//	i2c.read      device, address, register, count
//	spi.transfer  device, value (byte list)
//	modbus.read   device, slave, address, count
//	modbus.write  device, slave, address, value (int or list)
//	sleep         duration ("250ms")
//	info          message
//	fail          message
//
// Read operations may carry one check: expect (equality), expect_in (the
// value must be one of a list) or expect_true (the value must be non-zero
// and non-empty, or the opposite when false). Reads of a single register or
// byte yield an integer, longer reads a list; uart.read yields a string.
//
// Checks are compiled into harness.Deferred records ahead of time and
// evaluated inside the execution context once the read returns. A step that
// fails to execute ends its test with one failure naming the step.
package plan
