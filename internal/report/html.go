package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"

	"github.com/roach88/hilbench/internal/harness"
)

//go:embed report.html.tmpl
var htmlTemplate string

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// htmlView is the data handed to the template.
type htmlView struct {
	Document
	StatusLabel string
}

// HTML renders a single report page when the run finishes.
type HTML struct {
	*collector
	out  reportFile
	errs errorSet
}

// NewHTML creates (or truncates) path and returns a sink rendering into it.
func NewHTML(path string, opts ...Option) (*HTML, error) {
	o := buildOptions("report.html", opts)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create html report: %w", err)
	}
	return &HTML{collector: newCollector(o.now), out: reportFile{f: f}}, nil
}

// RunFinished implements harness.RunObserver.
func (h *HTML) RunFinished(res harness.Result) {
	view := htmlView{Document: h.finish(res), StatusLabel: res.Status()}

	w, err := h.out.rewind()
	if err != nil {
		h.errs.add(fmt.Errorf("write html report: %w", err))
		return
	}
	if err := reportTemplate.Execute(w, view); err != nil {
		h.errs.add(fmt.Errorf("render html report: %w", err))
	}
}

// Close closes the file and returns any error seen while writing.
func (h *HTML) Close() error {
	h.errs.add(h.out.close())
	return h.errs.err()
}
