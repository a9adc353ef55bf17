// Package harness runs grouped hardware tests against an initialized bench.
//
// The Engine drives one run through its phases:
//
//	INITIALIZATION -> TEST EXECUTION -> RESOURCE CLEANUP -> summary
//
// A fatal initialization error (resource conflict or failed device) skips
// every group. Otherwise each group runs setup, its tests in registration
// order, then teardown. Devices are always released before the summary is
// emitted.
//
// # Execution Context
//
// Every test body, setup and teardown receives its own *ExecContext naming
// the group and unit being run. The context is closed as soon as the unit
// returns, including when it panics. Assertions take the context explicitly:
//
//	func(ec *harness.ExecContext) error {
//	    led, err := harness.DeviceAs[*device.GPIO](ec, "led")
//	    if err != nil {
//	        return err
//	    }
//	    level, err := led.Read()
//	    if err != nil {
//	        return err
//	    }
//	    harness.AssertEqual(ec, hal.High, level)
//	    return nil
//	}
//
// # Assertions
//
// With a live context an assertion is evaluated at once, reported, and
// returned as an Evaluated outcome. A failed assertion does not stop the
// body. With a nil or closed context the assertion is returned as a Deferred
// record that can be evaluated later inside another context. Declarative
// plans use this to build their checks ahead of time.
//
// Every evaluated assertion counts as one result in the run summary. A body
// that returns an error or panics yields one extra failure carrying the
// message; the group and the run carry on. A test body that reports nothing
// and returns nil counts as one pass.
//
// # Exit Codes
//
// Result.ExitCode is 0 when every result passed and 1 when any result failed,
// initialization was fatal, or the run was canceled.
package harness
