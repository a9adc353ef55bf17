package harness

// Synthetic test names used for group hooks.
const (
	SetupName    = "setup"
	TeardownName = "teardown"
)

// TestFunc is a test body, setup or teardown. Returning an error reports one
// failure carrying the error message.
type TestFunc func(ec *ExecContext) error

// TestCase is a named test body.
type TestCase struct {
	Name string
	Run  TestFunc
}

// Group is an ordered list of tests with optional setup and teardown.
// A Group is immutable once built.
type Group struct {
	name     string
	setup    TestFunc
	teardown TestFunc
	tests    []TestCase
}

// NewGroup builds a group. setup and teardown may be nil.
func NewGroup(name string, setup, teardown TestFunc, tests ...TestCase) *Group {
	return &Group{
		name:     name,
		setup:    setup,
		teardown: teardown,
		tests:    append([]TestCase(nil), tests...),
	}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Tests returns a copy of the test list.
func (g *Group) Tests() []TestCase {
	return append([]TestCase(nil), g.tests...)
}

// HasSetup reports whether the group has a setup hook.
func (g *Group) HasSetup() bool { return g.setup != nil }

// HasTeardown reports whether the group has a teardown hook.
func (g *Group) HasTeardown() bool { return g.teardown != nil }
