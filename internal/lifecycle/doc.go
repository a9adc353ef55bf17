// Package lifecycle brings a bench up and down as one unit.
//
// The Manager walks named buckets of devices in declared order. For every
// device it claims the device's resources in the resource.Registry, then
// calls Initialize. A conflicting claim or an Initialize error is fatal:
// every device initialized so far is released, the registry is emptied and
// InitializeAll returns an error wrapping ErrFatal.
//
// Per-device states:
//
//	Uninitialized -> ResourceClaimed -> Initialized -> Released
//	        \________________\______________________-> Failed
//
// Failed devices are never released; every device that reached Initialized is.
//
// ReleaseAll is best effort. Individual release failures are logged and
// joined into the returned error, and the initialized list and registry are
// cleared regardless.
package lifecycle
