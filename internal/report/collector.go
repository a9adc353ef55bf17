package report

import (
	"sync"
	"time"

	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/resource"
	"github.com/roach88/hilbench/internal/store"
)

// Event is one reported line.
type Event struct {
	Kind   string    `json:"kind"`
	Test   string    `json:"test"`
	Passed bool      `json:"passed"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Class is the CSS class of the event in the HTML report.
func (e Event) Class() string {
	switch {
	case e.Kind == store.KindInfo:
		return "info"
	case e.Passed:
		return "pass"
	default:
		return "fail"
	}
}

// Label is the tag printed for the event.
func (e Event) Label() string {
	switch e.Class() {
	case "info":
		return "INFO"
	case "pass":
		return "PASS"
	default:
		return "FAIL"
	}
}

// GroupEvents holds the events of one group in report order.
type GroupEvents struct {
	Name   string  `json:"name"`
	Events []Event `json:"events"`
}

// ConflictDoc describes the resource conflict that aborted a run.
type ConflictDoc struct {
	Resource string `json:"resource"`
	Owner    string `json:"owner"`
	Existing string `json:"existing"`
}

// Document is a whole run as written by the JSON and HTML sinks.
type Document struct {
	RunID      string          `json:"run_id"`
	Bench      string          `json:"bench"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    harness.Summary `json:"summary"`
	Canceled   bool            `json:"canceled,omitempty"`
	Fatal      string          `json:"fatal,omitempty"`
	Conflict   *ConflictDoc    `json:"conflict,omitempty"`
	Groups     []GroupEvents   `json:"groups"`
}

// collector accumulates a Document across one run.
type collector struct {
	mu     sync.Mutex
	now    func() time.Time
	doc    Document
	groups map[string]int
}

func newCollector(now func() time.Time) *collector {
	c := &collector{now: now}
	c.reset(harness.RunInfo{})
	return c
}

func (c *collector) reset(info harness.RunInfo) {
	c.doc = Document{
		RunID:     info.RunID,
		Bench:     info.Bench,
		StartedAt: info.StartedAt,
		Groups:    []GroupEvents{},
	}
	c.groups = make(map[string]int)
}

func (c *collector) add(group string, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev.At = c.now()
	i, ok := c.groups[group]
	if !ok {
		i = len(c.doc.Groups)
		c.groups[group] = i
		c.doc.Groups = append(c.doc.Groups, GroupEvents{Name: group})
	}
	c.doc.Groups[i].Events = append(c.doc.Groups[i].Events, ev)
}

// ReportResult implements harness.Reporter.
func (c *collector) ReportResult(group, test string, passed bool, detail string) {
	c.add(group, Event{Kind: store.KindResult, Test: test, Passed: passed, Detail: detail})
}

// ReportInfo implements harness.Reporter.
func (c *collector) ReportInfo(group, test, message string) {
	c.add(group, Event{Kind: store.KindInfo, Test: test, Detail: message})
}

// RunStarted implements harness.RunObserver.
func (c *collector) RunStarted(info harness.RunInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(info)
}

// PhaseChanged implements harness.RunObserver.
func (c *collector) PhaseChanged(harness.Phase) {}

// RunAborted implements harness.RunObserver.
func (c *collector) RunAborted(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Fatal = err.Error()
	if ce, ok := resource.AsConflict(err); ok {
		c.doc.Conflict = &ConflictDoc{Resource: ce.ID.String(), Owner: ce.Owner, Existing: ce.Existing}
	}
}

// finish completes and returns a copy of the document.
func (c *collector) finish(res harness.Result) Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.RunID = res.RunID
	c.doc.Bench = res.Bench
	c.doc.Status = Outcome(res)
	c.doc.StartedAt = res.StartedAt
	c.doc.FinishedAt = res.FinishedAt
	c.doc.Summary = res.Summary
	c.doc.Canceled = res.Canceled
	if res.Fatal != nil && c.doc.Fatal == "" {
		c.doc.Fatal = res.Fatal.Error()
	}
	return c.doc
}
