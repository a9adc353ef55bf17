package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/resource"
	"github.com/roach88/hilbench/internal/store"
)

// HistoryStore is the part of store.Store the History sink writes to.
type HistoryStore interface {
	BeginRun(ctx context.Context, run store.Run) error
	WriteResult(ctx context.Context, rec store.Record) (int64, error)
	WriteConflict(ctx context.Context, c store.Conflict) error
	FinishRun(ctx context.Context, run store.Run) error
}

// History persists runs, results and conflicts.
type History struct {
	ctx    context.Context
	st     HistoryStore
	opts   options
	errs   errorSet
	mu     sync.Mutex
	runID  string
	active bool
}

// NewHistory returns a sink writing to st. ctx bounds every write; it
// should outlive the run so that cleanup-phase results are still stored.
func NewHistory(ctx context.Context, st HistoryStore, opts ...Option) *History {
	return &History{ctx: ctx, st: st, opts: buildOptions("report.history", opts)}
}

func (h *History) current() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runID, h.active
}

func (h *History) fail(what string, err error) {
	if err == nil {
		return
	}
	h.opts.logger.Warn("history write failed", "op", what, "error", err)
	h.errs.add(fmt.Errorf("history %s: %w", what, err))
}

// RunStarted implements harness.RunObserver.
func (h *History) RunStarted(info harness.RunInfo) {
	err := h.st.BeginRun(h.ctx, store.Run{ID: info.RunID, Bench: info.Bench, StartedAt: info.StartedAt})
	h.mu.Lock()
	h.runID, h.active = info.RunID, err == nil
	h.mu.Unlock()
	h.fail("begin run", err)
}

func (h *History) write(rec store.Record) {
	runID, ok := h.current()
	if !ok {
		return
	}
	rec.RunID = runID
	rec.RecordedAt = h.opts.now()
	_, err := h.st.WriteResult(h.ctx, rec)
	h.fail("write result", err)
}

// ReportResult implements harness.Reporter.
func (h *History) ReportResult(group, test string, passed bool, detail string) {
	h.write(store.Record{Kind: store.KindResult, Group: group, Test: test, Passed: passed, Detail: detail})
}

// ReportInfo implements harness.Reporter.
func (h *History) ReportInfo(group, test, message string) {
	h.write(store.Record{Kind: store.KindInfo, Group: group, Test: test, Detail: message})
}

// PhaseChanged implements harness.RunObserver.
func (h *History) PhaseChanged(harness.Phase) {}

// RunAborted implements harness.RunObserver.
func (h *History) RunAborted(err error) {
	runID, ok := h.current()
	if !ok {
		return
	}
	ce, isConflict := resource.AsConflict(err)
	if !isConflict {
		return
	}
	h.fail("write conflict", h.st.WriteConflict(h.ctx, store.Conflict{
		RunID:      runID,
		Resource:   ce.ID.String(),
		Owner:      ce.Owner,
		Existing:   ce.Existing,
		RecordedAt: h.opts.now(),
	}))
}

// RunFinished implements harness.RunObserver.
func (h *History) RunFinished(res harness.Result) {
	runID, ok := h.current()
	if !ok {
		return
	}
	finished := res.FinishedAt
	run := store.Run{
		ID:         runID,
		Status:     Outcome(res),
		FinishedAt: &finished,
		Total:      res.Summary.Total,
		Passed:     res.Summary.Passed,
		Failed:     res.Summary.Failed,
	}
	if res.Fatal != nil {
		run.Error = res.Fatal.Error()
	}
	h.fail("finish run", h.st.FinishRun(h.ctx, run))

	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// Close returns the joined write errors. The store itself is owned by the
// caller.
func (h *History) Close() error {
	return h.errs.err()
}
