package harness

import "time"

// Reporter receives results as they happen.
type Reporter interface {
	ReportResult(group, test string, passed bool, detail string)
	ReportInfo(group, test, message string)
}

// Phase is a stage of a run.
type Phase string

const (
	PhaseInit      Phase = "INITIALIZATION"
	PhaseExecution Phase = "TEST EXECUTION"
	PhaseCleanup   Phase = "RESOURCE CLEANUP"
)

// RunInfo describes a run as it starts.
type RunInfo struct {
	RunID     string
	Bench     string
	StartedAt time.Time
	Groups    int
}

// RunObserver is implemented by reporters that also track run boundaries.
// The engine detects it with a type assertion.
type RunObserver interface {
	RunStarted(info RunInfo)
	PhaseChanged(phase Phase)
	// RunAborted is called once when initialization fails fatally.
	RunAborted(err error)
	RunFinished(result Result)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ReportResult(string, string, bool, string) {}
func (NopReporter) ReportInfo(string, string, string)         {}
