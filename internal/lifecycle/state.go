package lifecycle

// State is the lifecycle position of one device within a run.
type State int

const (
	Uninitialized State = iota
	ResourceClaimed
	Initialized
	Released
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ResourceClaimed:
		return "resource_claimed"
	case Initialized:
		return "initialized"
	case Released:
		return "released"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
