package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/roach88/hilbench/internal/harness"
)

// JSON writes the run as one indented JSON document when the run finishes.
type JSON struct {
	*collector
	out  reportFile
	errs errorSet
}

// NewJSON creates (or truncates) path and returns a sink writing into it.
func NewJSON(path string, opts ...Option) (*JSON, error) {
	o := buildOptions("report.json", opts)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create json report: %w", err)
	}
	return &JSON{collector: newCollector(o.now), out: reportFile{f: f}}, nil
}

// RunFinished implements harness.RunObserver.
func (j *JSON) RunFinished(res harness.Result) {
	data, err := json.MarshalIndent(j.finish(res), "", "  ")
	if err != nil {
		j.errs.add(fmt.Errorf("encode json report: %w", err))
		return
	}
	w, err := j.out.rewind()
	if err == nil {
		_, err = w.Write(append(data, '\n'))
	}
	if err != nil {
		j.errs.add(fmt.Errorf("write json report: %w", err))
	}
}

// Close closes the file and returns any error seen while writing.
func (j *JSON) Close() error {
	j.errs.add(j.out.close())
	return j.errs.err()
}
