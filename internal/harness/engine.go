package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/roach88/hilbench/internal/device"
)

// Lifecycle is the part of the lifecycle manager the engine drives.
type Lifecycle interface {
	InitializeAll(ctx context.Context) error
	ReleaseAll(ctx context.Context) error
	Lookup(name string) (device.Device, bool)
}

// Summary counts the results of one run.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

func (s *Summary) record(passed bool) {
	s.Total++
	if passed {
		s.Passed++
	} else {
		s.Failed++
	}
}

// Result is the outcome of RunAll.
type Result struct {
	RunID      string
	Bench      string
	Summary    Summary
	StartedAt  time.Time
	FinishedAt time.Time

	// Fatal is the initialization error that stopped the run, if any.
	Fatal error

	// Canceled is set when the context ended before every group ran.
	Canceled bool
}

// Passed reports whether the run had no failures and was not cut short.
func (r Result) Passed() bool {
	return r.Fatal == nil && !r.Canceled && r.Summary.Failed == 0
}

// Status returns "PASSED" or "FAILED".
func (r Result) Status() string {
	if r.Passed() {
		return "PASSED"
	}
	return "FAILED"
}

// ExitCode returns 0 for a passing run and 1 otherwise.
func (r Result) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the run ID generator. The default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithBench names the bench in RunInfo and Result.
func WithBench(name string) Option {
	return func(e *Engine) { e.bench = name }
}

// Engine runs registered groups against a bench.
//
// Thread-safety: Engine is not safe for concurrent use; RunAll runs one unit
// at a time on the calling goroutine.
type Engine struct {
	lifecycle Lifecycle
	reporter  Reporter
	observer  RunObserver
	groups    []*Group
	logger    *slog.Logger
	now       func() time.Time
	ids       IDGenerator
	bench     string
	summary   Summary
}

// NewEngine creates an engine. If reporter also implements RunObserver it is
// notified of run boundaries.
func NewEngine(lc Lifecycle, reporter Reporter, opts ...Option) *Engine {
	if reporter == nil {
		reporter = NopReporter{}
	}
	e := &Engine{
		lifecycle: lc,
		reporter:  reporter,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		ids:       UUIDv7Generator{},
	}
	if o, ok := reporter.(RunObserver); ok {
		e.observer = o
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "harness")
	return e
}

// AddGroup registers groups to run after those already registered.
func (e *Engine) AddGroup(groups ...*Group) {
	e.groups = append(e.groups, groups...)
}

// Groups returns the registered groups in order.
func (e *Engine) Groups() []*Group {
	return append([]*Group(nil), e.groups...)
}

// Summary returns the counters of the current or last run.
func (e *Engine) Summary() Summary {
	return e.summary
}

// RunAll initializes the bench, runs every group and releases the bench.
// The summary is reset first, so an Engine can run several times.
//
// ctx is checked between groups; once it is done the remaining groups are
// skipped, devices are still released and the result is marked Canceled.
func (e *Engine) RunAll(ctx context.Context) Result {
	e.summary = Summary{}
	res := Result{
		RunID:     e.ids.Generate(),
		Bench:     e.bench,
		StartedAt: e.now(),
	}
	logger := e.logger.With("run_id", res.RunID)
	logger.Info("run started", "bench", e.bench, "groups", len(e.groups))
	if e.observer != nil {
		e.observer.RunStarted(RunInfo{
			RunID:     res.RunID,
			Bench:     e.bench,
			StartedAt: res.StartedAt,
			Groups:    len(e.groups),
		})
	}

	e.enterPhase(PhaseInit)
	if err := e.lifecycle.InitializeAll(ctx); err != nil {
		logger.Error("initialization failed, no tests will run", "error", err)
		res.Fatal = err
		if e.observer != nil {
			e.observer.RunAborted(err)
		}
		return e.finish(logger, res)
	}

	res.Canceled = e.execute(ctx, logger)
	return e.finish(logger, res)
}

func (e *Engine) execute(ctx context.Context, logger *slog.Logger) (canceled bool) {
	defer func() {
		e.enterPhase(PhaseCleanup)
		if err := e.lifecycle.ReleaseAll(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release reported failures", "error", err)
		}
	}()

	e.enterPhase(PhaseExecution)
	for _, g := range e.groups {
		if err := ctx.Err(); err != nil {
			logger.Warn("run canceled, skipping remaining groups", "next_group", g.name, "error", err)
			return true
		}
		e.runGroup(ctx, g)
	}
	return false
}

func (e *Engine) finish(logger *slog.Logger, res Result) Result {
	res.Summary = e.summary
	res.FinishedAt = e.now()
	logger.Info("run finished",
		"total", res.Summary.Total,
		"passed", res.Summary.Passed,
		"failed", res.Summary.Failed,
		"status", res.Status(),
	)
	if e.observer != nil {
		e.observer.RunFinished(res)
	}
	return res
}

func (e *Engine) enterPhase(p Phase) {
	if e.observer != nil {
		e.observer.PhaseChanged(p)
	}
}

func (e *Engine) runGroup(ctx context.Context, g *Group) {
	e.logger.Debug("running group", "group", g.name, "tests", len(g.tests))
	if g.setup != nil {
		e.runUnit(ctx, g.name, SetupName, g.setup, false)
	}
	for _, tc := range g.tests {
		e.runUnit(ctx, g.name, tc.Name, tc.Run, true)
	}
	if g.teardown != nil {
		e.runUnit(ctx, g.name, TeardownName, g.teardown, false)
	}
}

// runUnit runs fn inside a fresh execution context. A returned error or a
// panic becomes one failure; a silent test body becomes one pass when
// implicitPass is set.
func (e *Engine) runUnit(ctx context.Context, group, test string, fn TestFunc, implicitPass bool) {
	ec := &ExecContext{
		ctx:      ctx,
		reporter: e.reporter,
		summary:  &e.summary,
		lookup:   e.lifecycle.Lookup,
		logger:   e.logger.With("group", group, "test", test),
		group:    group,
		test:     test,
	}
	defer ec.close()

	err := invoke(ec, fn)
	if err != nil {
		if IsPanic(err) {
			var pe *PanicError
			errors.As(err, &pe)
			ec.logger.Error("unit panicked", "panic", pe.Value, "stack", string(pe.Stack))
		} else {
			ec.logger.Warn("unit returned error", "error", err)
		}
		ec.reportResult(false, err.Error())
		return
	}
	if implicitPass && ec.reported == 0 {
		ec.reportResult(true, "")
	}
}

func invoke(ec *ExecContext, fn TestFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(ec)
}
