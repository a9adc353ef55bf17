package report

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/roach88/hilbench/internal/harness"
)

// PointWriter is the part of influx.Client the Influx sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, points ...*write.Point) error
}

// Influx writes a test_result point per result and a run_summary point per
// run. Info lines are not metrics and are skipped.
type Influx struct {
	ctx   context.Context
	w     PointWriter
	opts  options
	errs  errorSet
	bench string
	runID string
}

// NewInflux returns a sink writing through w.
func NewInflux(ctx context.Context, w PointWriter, opts ...Option) *Influx {
	return &Influx{ctx: ctx, w: w, opts: buildOptions("report.influx", opts)}
}

func (x *Influx) write(p *write.Point) {
	if err := x.w.WritePoint(x.ctx, p); err != nil {
		x.opts.logger.Warn("influx write failed", "measurement", p.Name(), "error", err)
		x.errs.add(fmt.Errorf("write %s: %w", p.Name(), err))
	}
}

// ReportResult implements harness.Reporter.
func (x *Influx) ReportResult(group, test string, passed bool, detail string) {
	fields := map[string]interface{}{
		"passed": passed,
		"run_id": x.runID,
	}
	if detail != "" {
		fields["detail"] = detail
	}
	x.write(write.NewPoint("test_result",
		map[string]string{"bench": x.bench, "group": group, "test": test},
		fields, x.opts.now()))
}

// ReportInfo implements harness.Reporter.
func (x *Influx) ReportInfo(string, string, string) {}

// RunStarted implements harness.RunObserver.
func (x *Influx) RunStarted(info harness.RunInfo) {
	x.bench, x.runID = info.Bench, info.RunID
}

// PhaseChanged implements harness.RunObserver.
func (x *Influx) PhaseChanged(harness.Phase) {}

// RunAborted implements harness.RunObserver.
func (x *Influx) RunAborted(error) {}

// RunFinished implements harness.RunObserver.
func (x *Influx) RunFinished(res harness.Result) {
	x.write(write.NewPoint("run_summary",
		map[string]string{"bench": res.Bench, "status": Outcome(res)},
		map[string]interface{}{
			"run_id":     res.RunID,
			"total":      res.Summary.Total,
			"passed":     res.Summary.Passed,
			"failed":     res.Summary.Failed,
			"duration_s": res.FinishedAt.Sub(res.StartedAt).Seconds(),
		},
		res.FinishedAt))
}

// Close returns the joined write errors.
func (x *Influx) Close() error {
	return x.errs.err()
}
