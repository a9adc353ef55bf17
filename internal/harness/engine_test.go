package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/lifecycle"
	"github.com/roach88/hilbench/internal/resource"
	"github.com/roach88/hilbench/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// observingRecorder adds RunObserver to testutil.Recorder and journals the
// run boundaries.
type observingRecorder struct {
	*testutil.Recorder
	calls    []string
	finished Result
}

func newObservingRecorder() *observingRecorder {
	return &observingRecorder{Recorder: testutil.NewRecorder()}
}

func (o *observingRecorder) RunStarted(info RunInfo) {
	o.calls = append(o.calls, fmt.Sprintf("started %s groups=%d", info.RunID, info.Groups))
}

func (o *observingRecorder) PhaseChanged(p Phase) {
	o.calls = append(o.calls, "phase "+string(p))
}

func (o *observingRecorder) RunAborted(err error) {
	o.calls = append(o.calls, "aborted")
}

func (o *observingRecorder) RunFinished(r Result) {
	o.finished = r
	o.calls = append(o.calls, "finished "+r.Status())
}

func bench(devs ...device.Device) *lifecycle.Manager {
	return lifecycle.NewManager([]lifecycle.Bucket{{Name: "peripherals", Devices: devs}})
}

func newTestEngine(lc Lifecycle, rep Reporter, ids ...string) *Engine {
	if len(ids) == 0 {
		ids = []string{"run-1"}
	}
	clock := testutil.NewDeterministicClock()
	return NewEngine(lc, rep,
		WithClock(clock.Now),
		WithIDGenerator(NewFixedGenerator(ids...)),
		WithBench("bench-a"),
	)
}

func passing(name string) TestCase {
	return TestCase{Name: name, Run: func(ec *ExecContext) error {
		AssertTrue(ec, true)
		return nil
	}}
}

func failing(name string) TestCase {
	return TestCase{Name: name, Run: func(ec *ExecContext) error {
		AssertEqual(ec, 1, 2)
		return nil
	}}
}

func TestRunAll_DisjointBenchTwoPassOneFail(t *testing.T) {
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 17)
	b := testutil.NewFakeDevice("B", j, 18)
	rec := newObservingRecorder()

	e := newTestEngine(bench(a, b), rec)
	e.AddGroup(NewGroup("gpio", nil, nil, passing("t1"), passing("t2"), failing("t3")))

	res := e.RunAll(context.Background())

	assert.Equal(t, Summary{Total: 3, Passed: 2, Failed: 1}, res.Summary)
	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, "FAILED", res.Status())
	assert.NoError(t, res.Fatal)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "bench-a", res.Bench)
	assert.Equal(t, testutil.Epoch, res.StartedAt)
	assert.True(t, res.FinishedAt.After(res.StartedAt))

	assert.Equal(t, []string{"init A", "init B", "release A", "release B"}, j.Entries())

	want := []string{
		"started run-1 groups=1",
		"phase INITIALIZATION",
		"phase TEST EXECUTION",
		"phase RESOURCE CLEANUP",
		"finished FAILED",
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("observer calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, res.Summary, rec.finished.Summary)
}

func TestRunAll_ConflictSkipsEveryGroup(t *testing.T) {
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 17)
	b := testutil.NewFakeDevice("B", j, 17)
	rec := newObservingRecorder()

	ran := false
	e := newTestEngine(bench(a, b), rec)
	e.AddGroup(NewGroup("gpio", nil, nil, TestCase{Name: "t", Run: func(*ExecContext) error {
		ran = true
		return nil
	}}))

	res := e.RunAll(context.Background())

	assert.False(t, ran)
	assert.Equal(t, 1, res.ExitCode())
	require.Error(t, res.Fatal)
	assert.True(t, lifecycle.IsFatal(res.Fatal))

	ce, ok := resource.AsConflict(res.Fatal)
	require.True(t, ok)
	assert.Equal(t, resource.Pin(17), ce.ID)
	assert.Equal(t, "B", ce.Owner)
	assert.Equal(t, "A", ce.Existing)

	assert.Equal(t, Summary{}, res.Summary)
	assert.Equal(t, []string{"init A", "release A"}, j.Entries())
	assert.Equal(t, []string{
		"started run-1 groups=1",
		"phase INITIALIZATION",
		"aborted",
		"finished FAILED",
	}, rec.calls)
	assert.Empty(t, rec.Events())
}

func TestRunAll_ErrorAndPanicAreIsolated(t *testing.T) {
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(testutil.NewFakeDevice("A", nil, 1)), rec)
	e.AddGroup(NewGroup("uart", nil, nil,
		TestCase{Name: "raises", Run: func(*ExecContext) error {
			return errors.New("serial timeout")
		}},
		TestCase{Name: "panics", Run: func(*ExecContext) error {
			var m map[string]int
			m["boom"]++
			return nil
		}},
		passing("after"),
	))
	e.AddGroup(NewGroup("gpio", nil, nil, passing("next_group")))

	res := e.RunAll(context.Background())

	lines := rec.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, "[FAIL] uart, raises: serial timeout", lines[0])
	assert.Contains(t, lines[1], "[FAIL] uart, panics: panic: assignment to entry in nil map")
	assert.Equal(t, "[PASS] uart, after", lines[2])
	assert.Equal(t, "[PASS] gpio, next_group", lines[3])
	assert.Equal(t, Summary{Total: 4, Passed: 2, Failed: 2}, res.Summary)
}

func TestRunAll_AssertionsThenErrorCountsEach(t *testing.T) {
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(), rec)
	e.AddGroup(NewGroup("g", nil, nil, TestCase{Name: "t", Run: func(ec *ExecContext) error {
		AssertEqual(ec, 1, 1)
		AssertEqual(ec, 1, 0)
		return errors.New("gave up")
	}}))

	res := e.RunAll(context.Background())
	assert.Equal(t, Summary{Total: 3, Passed: 1, Failed: 2}, res.Summary)
}

func TestRunAll_SetupAndTeardownFailures(t *testing.T) {
	j := &testutil.Journal{}
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(testutil.NewFakeDevice("A", j, 1)), rec)

	var order []string
	setup := func(*ExecContext) error {
		order = append(order, "setup")
		return errors.New("fixture missing")
	}
	teardown := func(*ExecContext) error {
		order = append(order, "teardown")
		panic("teardown exploded")
	}
	e.AddGroup(NewGroup("i2c", setup, teardown,
		TestCase{Name: "t1", Run: func(ec *ExecContext) error {
			order = append(order, "t1")
			return nil
		}},
	))
	e.AddGroup(NewGroup("spi", nil, nil, passing("t2")))

	res := e.RunAll(context.Background())

	assert.Equal(t, []string{"setup", "t1", "teardown"}, order)
	assert.Equal(t, []string{
		"[FAIL] i2c, setup: fixture missing",
		"[PASS] i2c, t1",
		"[FAIL] i2c, teardown: panic: teardown exploded",
		"[PASS] spi, t2",
	}, rec.Lines())
	assert.Equal(t, Summary{Total: 4, Passed: 2, Failed: 2}, res.Summary)
	assert.Equal(t, []string{"init A", "release A"}, j.Entries())
}

func TestRunAll_SilentHooksReportNothing(t *testing.T) {
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(), rec)
	noop := func(*ExecContext) error { return nil }
	e.AddGroup(NewGroup("g", noop, noop, TestCase{Name: "silent", Run: noop}))

	res := e.RunAll(context.Background())
	assert.Equal(t, []string{"[PASS] g, silent"}, rec.Lines())
	assert.Equal(t, Summary{Total: 1, Passed: 1}, res.Summary)
	assert.Equal(t, 0, res.ExitCode())
}

func TestRunAll_ContextScopedToUnit(t *testing.T) {
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(), rec)

	var seen []string
	var leaked *ExecContext
	record := func(ec *ExecContext) error {
		seen = append(seen, ec.Group()+"/"+ec.Test())
		require.True(t, ec.Active())
		leaked = ec
		return nil
	}
	e.AddGroup(NewGroup("g", record, record, TestCase{Name: "t", Run: record}))
	e.RunAll(context.Background())

	assert.Equal(t, []string{"g/setup", "g/t", "g/teardown"}, seen)
	require.NotNil(t, leaked)
	assert.False(t, leaked.Active())
	_, deferred := AssertTrue(leaked, true).(Deferred)
	assert.True(t, deferred, "a closed context no longer reports")
}

func TestRunAll_DeviceLookup(t *testing.T) {
	led := testutil.NewFakeDevice("led", nil, 17)
	e := newTestEngine(bench(led), testutil.NewRecorder())
	e.AddGroup(NewGroup("g", nil, nil, TestCase{Name: "lookup", Run: func(ec *ExecContext) error {
		d, err := DeviceAs[*testutil.FakeDevice](ec, "led")
		require.NoError(t, err)
		assert.Same(t, led, d)

		_, err = ec.Device("missing")
		assert.Error(t, err)

		_, err = DeviceAs[*device.GPIO](ec, "led")
		assert.Error(t, err)
		return nil
	}}))
	res := e.RunAll(context.Background())
	assert.Equal(t, 0, res.ExitCode())
}

func TestRunAll_TeardownStillReleasesAndSummarizes(t *testing.T) {
	j := &testutil.Journal{}
	rel := testutil.NewFakeDevice("B", j, 2)
	rel.ReleaseErr = errors.New("stuck")
	rec := newObservingRecorder()
	e := newTestEngine(bench(testutil.NewFakeDevice("A", j, 1), rel), rec)
	e.AddGroup(NewGroup("g", nil, func(*ExecContext) error { return errors.New("cleanup failed") }, passing("t")))

	res := e.RunAll(context.Background())
	assert.Equal(t, Summary{Total: 2, Passed: 1, Failed: 1}, res.Summary)
	assert.Equal(t, []string{"init A", "init B", "release A", "release B"}, j.Entries())
	assert.Equal(t, "finished FAILED", rec.calls[len(rec.calls)-1])
}

func TestRunAll_SummaryResetsBetweenRuns(t *testing.T) {
	rec := testutil.NewRecorder()
	a := testutil.NewFakeDevice("A", nil, 1)
	e := newTestEngine(bench(a), rec, "run-1", "run-2")
	e.AddGroup(NewGroup("g", nil, nil, passing("t1"), failing("t2")))

	first := e.RunAll(context.Background())
	second := e.RunAll(context.Background())

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, Summary{Total: 2, Passed: 1, Failed: 1}, second.Summary)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, 2, a.InitCalls)
	assert.Equal(t, 2, a.ReleaseCalls)
}

func TestRunAll_CanceledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &testutil.Journal{}
	rec := testutil.NewRecorder()
	e := newTestEngine(bench(testutil.NewFakeDevice("A", j, 1)), rec)
	e.AddGroup(NewGroup("first", nil, nil, TestCase{Name: "t", Run: func(*ExecContext) error {
		cancel()
		return nil
	}}))
	e.AddGroup(NewGroup("second", nil, nil, passing("never")))

	res := e.RunAll(ctx)

	assert.True(t, res.Canceled)
	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, []string{"[PASS] first, t"}, rec.Lines())
	assert.Equal(t, []string{"init A", "release A"}, j.Entries())
}

func TestRunAll_NilReporter(t *testing.T) {
	e := NewEngine(bench(), nil, WithClock(func() time.Time { return testutil.Epoch }))
	e.AddGroup(NewGroup("g", nil, nil, passing("t")))
	res := e.RunAll(context.Background())
	assert.Equal(t, Summary{Total: 1, Passed: 1}, res.Summary)
	assert.Len(t, res.RunID, 36)
}

func TestGroupIsImmutable(t *testing.T) {
	tests := []TestCase{passing("a")}
	g := NewGroup("g", nil, nil, tests...)
	tests[0].Name = "changed"

	got := g.Tests()
	got[0].Name = "also changed"

	assert.Equal(t, "a", g.Tests()[0].Name)
	assert.False(t, g.HasSetup())
	assert.False(t, g.HasTeardown())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
