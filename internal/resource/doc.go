// Package resource arbitrates exclusive ownership of physical I/O handles.
//
// A resource is either a GPIO pin (by BCM number) or a device file such as
// /dev/ttyUSB0. Every resource can be owned by at most one device at a time.
// The Registry records ownership at claim time, before any driver touches
// the hardware, so that a misconfigured bench is rejected up front instead of
// two drivers fighting over the same line.
//
// # Claim Semantics
//
//   - A second claim of an ID already present is a conflict, whoever the
//     owner is. Re-claiming for the same owner is not special-cased.
//   - Conflicts carry the claiming and the existing owner so the operator
//     can fix the configuration.
//   - Entries are never removed one by one. ReleaseAll clears the whole
//     registry at the end of a release pass.
//
// Port paths are canonicalised (trimmed, cleaned, NFC-normalised) before
// they are used as keys, so "/dev//ttyUSB0" and "/dev/ttyUSB0" collide.
//
// The Registry is not safe for concurrent use. The harness drives it from a
// single goroutine; shared buses cannot be driven in parallel anyway.
package resource
