package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hilbench/internal/device"
	"github.com/roach88/hilbench/internal/resource"
	"github.com/roach88/hilbench/internal/testutil"
)

func states(m *Manager, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = m.State(n).String()
	}
	return out
}

func TestInitializeAll_DisjointResources(t *testing.T) {
	ctx := context.Background()
	j := &testutil.Journal{}
	plc := testutil.NewFakeDevice("plc", j).WithPorts("/dev/ttyUSB0")
	plc.Cat = device.CategoryProtocol
	led := testutil.NewFakeDevice("led", j, 17)
	btn := testutil.NewFakeDevice("button", j, 27)

	m := NewManager([]Bucket{
		{Name: "protocols", Devices: []device.Device{plc}},
		{Name: "peripherals", Devices: []device.Device{led, btn}},
	})

	require.NoError(t, m.InitializeAll(ctx))

	assert.Equal(t, []string{"init plc", "init led", "init button"}, j.Entries())
	assert.Equal(t, []string{"plc", "led", "button"}, m.Initialized())
	assert.Equal(t, 3, m.Registry().Len())
	owner, ok := m.Registry().Owner(resource.Pin(17))
	require.True(t, ok)
	assert.Equal(t, "led", owner)

	got, err := m.Device("peripherals", "led")
	require.NoError(t, err)
	assert.Same(t, led, got)

	_, err = m.Device("protocols", "led")
	require.ErrorIs(t, err, ErrDeviceNotFound)

	assert.Equal(t, []device.Device{led, btn}, m.Devices("peripherals"))

	require.NoError(t, m.ReleaseAll(ctx))
	assert.Equal(t, []string{
		"init plc", "init led", "init button",
		"release plc", "release led", "release button",
	}, j.Entries())
}

func TestInitializeAll_ConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 17)
	b := testutil.NewFakeDevice("B", j, 17)
	c := testutil.NewFakeDevice("C", j, 22)

	var logs bytes.Buffer
	m := NewManager(
		[]Bucket{{Name: "peripherals", Devices: []device.Device{a, b, c}}},
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	err := m.InitializeAll(ctx)
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	ce, ok := resource.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, resource.Pin(17), ce.ID)
	assert.Equal(t, "B", ce.Owner)
	assert.Equal(t, "A", ce.Existing)

	assert.Equal(t, []string{"init A", "release A"}, j.Entries())
	assert.Zero(t, b.InitCalls)
	assert.Zero(t, c.InitCalls)
	assert.Zero(t, m.Registry().Len())
	assert.Empty(t, m.Initialized())

	want := map[string]string{"A": "released", "B": "failed", "C": "uninitialized"}
	if diff := cmp.Diff(want, states(m, "A", "B", "C")); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, logs.String(), "resource conflict")
	assert.Contains(t, logs.String(), "resource=\"pin 17\"")
}

func TestInitializeAll_PortSpellingsConflict(t *testing.T) {
	a := testutil.NewFakeDevice("modbus0", nil).WithPorts("/dev/ttyUSB0")
	b := testutil.NewFakeDevice("uart0", nil).WithPorts("/dev//ttyUSB0/")

	m := NewManager([]Bucket{{Name: "all", Devices: []device.Device{a, b}}})
	err := m.InitializeAll(context.Background())
	require.True(t, resource.IsConflict(err))
	assert.Equal(t, 1, a.ReleaseCalls)
}

func TestInitializeAll_InitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 1)
	b := testutil.NewFakeDevice("B", j, 2)
	b.InitErr = errors.New("no ack")
	c := testutil.NewFakeDevice("C", j, 3)

	m := NewManager([]Bucket{{Name: "peripherals", Devices: []device.Device{a, b, c}}})
	err := m.InitializeAll(ctx)

	require.ErrorIs(t, err, ErrFatal)
	assert.True(t, IsInitError(err))
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "B", ie.Device)
	assert.Contains(t, err.Error(), "no ack")

	assert.Equal(t, []string{"init A", "init B", "release A"}, j.Entries())
	assert.Equal(t, Failed, m.State("B"))
	assert.Zero(t, b.ReleaseCalls, "failed devices are not released")
	assert.Zero(t, m.Registry().Len())
}

func TestInitializeAll_DuplicateNames(t *testing.T) {
	a := testutil.NewFakeDevice("gpio0", nil, 1)
	b := testutil.NewFakeDevice("gpio0", nil, 2)

	m := NewManager([]Bucket{
		{Name: "protocols", Devices: []device.Device{a}},
		{Name: "peripherals", Devices: []device.Device{b}},
	})
	err := m.InitializeAll(context.Background())
	require.ErrorIs(t, err, ErrFatal)
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Zero(t, a.InitCalls)
}

func TestInitializeAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := testutil.NewFakeDevice("A", nil, 1)

	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a}}})
	err := m.InitializeAll(ctx)
	require.ErrorIs(t, err, ErrFatal)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.InitCalls)
}

func TestReleaseAll_BestEffort(t *testing.T) {
	ctx := context.Background()
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 1)
	a.ReleaseErr = errors.New("busy")
	b := testutil.NewFakeDevice("B", j, 2)

	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a, b}}})
	require.NoError(t, m.InitializeAll(ctx))

	err := m.ReleaseAll(ctx)
	require.Error(t, err)
	var re *ReleaseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "A", re.Device)

	assert.Equal(t, []string{"init A", "init B", "release A", "release B"}, j.Entries())
	assert.Zero(t, m.Registry().Len())
	assert.Empty(t, m.Initialized())
	assert.Equal(t, Released, m.State("A"))
}

func TestReleaseAll_SecondCallIsNoop(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewFakeDevice("A", nil, 1)
	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a}}})
	require.NoError(t, m.InitializeAll(ctx))

	require.NoError(t, m.ReleaseAll(ctx))
	require.NoError(t, m.ReleaseAll(ctx))
	assert.Equal(t, 1, a.ReleaseCalls)
	assert.Zero(t, m.Registry().Len())

	_, ok := m.Lookup("A")
	assert.False(t, ok)
}

func TestInitializeAll_Rerun(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewFakeDevice("A", nil, 1)
	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a}}})

	for i := 0; i < 2; i++ {
		require.NoError(t, m.InitializeAll(ctx))
		assert.Equal(t, Initialized, m.State("A"))
		require.NoError(t, m.ReleaseAll(ctx))
	}
	assert.Equal(t, 2, a.InitCalls)
	assert.Equal(t, 2, a.ReleaseCalls)
}

func TestInitializeAll_ReleasesPreviousBench(t *testing.T) {
	ctx := context.Background()
	j := &testutil.Journal{}
	a := testutil.NewFakeDevice("A", j, 17)
	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a}}})

	require.NoError(t, m.InitializeAll(ctx))
	require.NoError(t, m.InitializeAll(ctx))

	assert.Equal(t, []string{"init A", "release A", "init A"}, j.Entries())
	assert.Equal(t, []string{"A"}, m.Initialized())
	owner, ok := m.Registry().Owner(resource.Pin(17))
	require.True(t, ok)
	assert.Equal(t, "A", owner)

	require.NoError(t, m.ReleaseAll(ctx))
	assert.Equal(t, 2, a.ReleaseCalls)
	assert.Zero(t, m.Registry().Len())
}

func TestStateSequence(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewFakeDevice("A", nil, 1)
	m := NewManager([]Bucket{{Name: "p", Devices: []device.Device{a}}})

	var seq []State
	seq = append(seq, m.State("A"))
	require.NoError(t, m.InitializeAll(ctx))
	seq = append(seq, m.State("A"))
	require.NoError(t, m.ReleaseAll(ctx))
	seq = append(seq, m.State("A"))

	if diff := cmp.Diff([]State{Uninitialized, Initialized, Released}, seq); diff != "" {
		t.Errorf("state sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_ReportsEveryConflict(t *testing.T) {
	a := testutil.NewFakeDevice("A", nil, 17, 18)
	b := testutil.NewFakeDevice("B", nil, 17)
	c := testutil.NewFakeDevice("C", nil, 18).WithPorts("/dev/ttyS0")
	d := testutil.NewFakeDevice("D", nil).WithPorts("/dev/ttyS0")

	conflicts := Check([]Bucket{{Name: "p", Devices: []device.Device{a, b, c, d}}})
	require.Len(t, conflicts, 3)

	got := make([]string, len(conflicts))
	for i, ce := range conflicts {
		got[i] = ce.Error()
	}
	assert.Equal(t, []string{
		`resource conflict: pin 17 requested by "B" is already owned by "A"`,
		`resource conflict: pin 18 requested by "C" is already owned by "A"`,
		`resource conflict: port /dev/ttyS0 requested by "D" is already owned by "C"`,
	}, got)

	assert.Zero(t, a.InitCalls, "check never touches hardware")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "resource_claimed", ResourceClaimed.String())
	assert.Equal(t, "unknown", State(42).String())
}
