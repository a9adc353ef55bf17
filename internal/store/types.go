package store

import "time"

// Run status values.
const (
	StatusRunning  = "running"
	StatusPassed   = "passed"
	StatusFailed   = "failed"
	StatusAborted  = "aborted"
	StatusCanceled = "canceled"
)

// Record kinds.
const (
	KindResult = "result"
	KindInfo   = "info"
)

// Run is one row of the runs table.
type Run struct {
	ID         string     `json:"id"`
	Bench      string     `json:"bench"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

// Record is one reported line of a run. Info records never pass or fail;
// Passed is false for them.
type Record struct {
	RunID      string    `json:"run_id"`
	Seq        int64     `json:"seq"`
	Kind       string    `json:"kind"`
	Group      string    `json:"group"`
	Test       string    `json:"test"`
	Passed     bool      `json:"passed"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Conflict is a resource conflict that aborted a run.
type Conflict struct {
	RunID      string    `json:"run_id"`
	Resource   string    `json:"resource"`
	Owner      string    `json:"owner"`
	Existing   string    `json:"existing"`
	RecordedAt time.Time `json:"recorded_at"`
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
