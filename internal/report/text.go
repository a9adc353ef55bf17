package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/hilbench/internal/harness"
)

var banners = map[harness.Phase]string{
	harness.PhaseInit:      "=================== INITIALIZATION ===================",
	harness.PhaseExecution: "=================== TEST EXECUTION ===================",
	harness.PhaseCleanup:   "==================== RESOURCE CLEANUP ====================",
}

// Text writes the line-oriented report: phase banners, one line per
// result and the closing summary.
type Text struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	pass   lipgloss.Style
	fail   lipgloss.Style
	info   lipgloss.Style
	errs   errorSet
}

// NewConsole writes to w, colouring the PASS and FAIL tags when w is a
// terminal that supports it.
func NewConsole(w io.Writer) *Text {
	return newText(w, nil)
}

// NewLogFile creates (or truncates) path and writes the uncoloured report
// to it.
func NewLogFile(path string) (*Text, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return newText(f, f), nil
}

// newText styles through a renderer bound to w, so colour is only emitted
// when w itself is a colour terminal.
func newText(w io.Writer, closer io.Closer) *Text {
	r := lipgloss.NewRenderer(w)
	return &Text{
		w:      w,
		closer: closer,
		pass:   r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("1")),
		info:   r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

func (t *Text) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		t.errs.add(err)
	}
}

// ReportResult implements harness.Reporter.
func (t *Text) ReportResult(group, test string, passed bool, detail string) {
	if passed {
		t.printf("[%s] %s, %s\n", t.pass.Render("PASS"), group, test)
		return
	}
	line := fmt.Sprintf("[%s] %s, %s:", t.fail.Render("FAIL"), group, test)
	if detail != "" {
		line += " " + detail
	}
	t.printf("%s\n", line)
}

// ReportInfo implements harness.Reporter.
func (t *Text) ReportInfo(group, test, message string) {
	t.printf("[%s] %s, %s: %s\n", t.info.Render("INFO"), group, test, message)
}

// RunStarted implements harness.RunObserver.
func (t *Text) RunStarted(info harness.RunInfo) {
	t.printf("Run %s on bench %s\n", info.RunID, info.Bench)
}

// PhaseChanged implements harness.RunObserver.
func (t *Text) PhaseChanged(phase harness.Phase) {
	banner, ok := banners[phase]
	if !ok {
		banner = string(phase)
	}
	if phase == harness.PhaseExecution {
		t.printf("\n%s\n\n", banner)
		return
	}
	t.printf("\n%s\n", banner)
}

// RunAborted implements harness.RunObserver.
func (t *Text) RunAborted(err error) {
	t.printf("[%s] initialization failed: %v\n", t.fail.Render("FATAL"), err)
}

// RunFinished implements harness.RunObserver.
func (t *Text) RunFinished(res harness.Result) {
	status := "✅ PASSED"
	style := t.pass
	if !res.Passed() {
		status = "❌ FAILED"
		style = t.fail
	}
	canceled := ""
	if res.Canceled {
		canceled = "> Canceled before every group ran\n"
	}
	t.printf("\n=================== TEST SUMMARY ===================\n"+
		"> Total Tests Run:     %d\n"+
		"> Passed:              %d ✅\n"+
		"> Failed:              %d ❌\n"+
		"%s"+
		"\n======================== STATUS =====================\n"+
		"\nOVERALL STATUS: %s : Please check logs for details.\n",
		res.Summary.Total, res.Summary.Passed, res.Summary.Failed, canceled, style.Render(status))
}

// Close closes the underlying file, if the sink owns one, and returns any
// write error seen so far.
func (t *Text) Close() error {
	if t.closer != nil {
		t.errs.add(t.closer.Close())
		t.closer = nil
	}
	return t.errs.err()
}
