package report

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/store"
)

// Sink is a complete reporter.
type Sink interface {
	harness.Reporter
	harness.RunObserver
	io.Closer
}

// Option configures a sink.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock sets the clock used to timestamp events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for delivery errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(component string, opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", component)
	return o
}

// Outcome maps a run result to one of the store status values.
func Outcome(res harness.Result) string {
	switch {
	case res.Fatal != nil:
		return store.StatusAborted
	case res.Canceled:
		return store.StatusCanceled
	case res.Passed():
		return store.StatusPassed
	default:
		return store.StatusFailed
	}
}

// errorSet keeps delivery errors for Close.
type errorSet struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSet) add(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errorSet) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// reportFile is a file opened when its sink is built and rewritten at
// every run end.
type reportFile struct {
	mu sync.Mutex
	f  *os.File
}

func (r *reportFile) rewind() (io.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil, os.ErrClosed
	}
	if err := r.f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return r.f, nil
}

// close is a no-op after the first call.
func (r *reportFile) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

var (
	_ Sink = (*Text)(nil)
	_ Sink = (*JSON)(nil)
	_ Sink = (*HTML)(nil)
	_ Sink = (*History)(nil)
	_ Sink = (*MQTT)(nil)
	_ Sink = (*Influx)(nil)
	_ Sink = (*Multi)(nil)
)
