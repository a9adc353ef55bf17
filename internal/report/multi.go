package report

import (
	"errors"

	"github.com/roach88/hilbench/internal/harness"
)

// Multi forwards every call to each of its sinks in order.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a fan-out over sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends sinks.
func (m *Multi) Add(sinks ...Sink) {
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
}

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// ReportResult implements harness.Reporter.
func (m *Multi) ReportResult(group, test string, passed bool, detail string) {
	for _, s := range m.sinks {
		s.ReportResult(group, test, passed, detail)
	}
}

// ReportInfo implements harness.Reporter.
func (m *Multi) ReportInfo(group, test, message string) {
	for _, s := range m.sinks {
		s.ReportInfo(group, test, message)
	}
}

// RunStarted implements harness.RunObserver.
func (m *Multi) RunStarted(info harness.RunInfo) {
	for _, s := range m.sinks {
		s.RunStarted(info)
	}
}

// PhaseChanged implements harness.RunObserver.
func (m *Multi) PhaseChanged(phase harness.Phase) {
	for _, s := range m.sinks {
		s.PhaseChanged(phase)
	}
}

// RunAborted implements harness.RunObserver.
func (m *Multi) RunAborted(err error) {
	for _, s := range m.sinks {
		s.RunAborted(err)
	}
}

// RunFinished implements harness.RunObserver.
func (m *Multi) RunFinished(res harness.Result) {
	for _, s := range m.sinks {
		s.RunFinished(res)
	}
}

// Close closes every sink and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
