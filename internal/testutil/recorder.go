package testutil

import (
	"fmt"
	"sync"
)

// Event is one call received by a Recorder.
type Event struct {
	Info   bool
	Group  string
	Test   string
	Passed bool
	Detail string
}

// String renders the event the way the console reporter prints it, which
// keeps test expectations short.
func (e Event) String() string {
	switch {
	case e.Info:
		return fmt.Sprintf("[INFO] %s, %s: %s", e.Group, e.Test, e.Detail)
	case e.Passed:
		return fmt.Sprintf("[PASS] %s, %s", e.Group, e.Test)
	default:
		return fmt.Sprintf("[FAIL] %s, %s: %s", e.Group, e.Test, e.Detail)
	}
}

// Recorder is a reporter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ReportResult records a pass or fail.
func (r *Recorder) ReportResult(group, test string, passed bool, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Group: group, Test: test, Passed: passed, Detail: detail})
}

// ReportInfo records an informational message.
func (r *Recorder) ReportInfo(group, test, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Info: true, Group: group, Test: test, Detail: message})
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Results returns the pass/fail events only.
func (r *Recorder) Results() []Event {
	var out []Event
	for _, e := range r.Events() {
		if !e.Info {
			out = append(out, e)
		}
	}
	return out
}

// Lines renders every event with Event.String.
func (r *Recorder) Lines() []string {
	events := r.Events()
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.String()
	}
	return lines
}

// Counts returns the number of passed and failed results.
func (r *Recorder) Counts() (passed, failed int) {
	for _, e := range r.Results() {
		if e.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
