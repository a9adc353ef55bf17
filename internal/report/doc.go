// Package report contains the sinks a run reports into.
//
// Every sink implements harness.Reporter for per-result events and
// harness.RunObserver for run boundaries, plus Close. Multi fans one
// engine out to any number of sinks.
//
// Sinks never fail a run: delivery errors are logged and kept for Close to
// return, so a broken broker or database does not change test outcomes.
package report
