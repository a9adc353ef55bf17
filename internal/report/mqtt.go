package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/mqtt"
	"github.com/roach88/hilbench/internal/store"
)

// Publisher is the part of mqtt.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Topics() mqtt.Topics
}

// ResultMessage is published on the result topic for every event.
type ResultMessage struct {
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	Group     string `json:"group"`
	Test      string `json:"test"`
	Passed    bool   `json:"passed"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RunStatusMessage is published, retained, on the status topic.
type RunStatusMessage struct {
	RunID     string           `json:"run_id"`
	Status    string           `json:"status"`
	Phase     string           `json:"phase,omitempty"`
	Summary   *harness.Summary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// MQTT publishes results and run status to a broker.
type MQTT struct {
	pub   Publisher
	opts  options
	errs  errorSet
	runID string
}

// NewMQTT returns a sink publishing through pub.
func NewMQTT(pub Publisher, opts ...Option) *MQTT {
	return &MQTT{pub: pub, opts: buildOptions("report.mqtt", opts)}
}

func (m *MQTT) stamp() string {
	return m.opts.now().UTC().Format(time.RFC3339)
}

func (m *MQTT) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err == nil {
		err = m.pub.Publish(topic, payload, retained)
	}
	if err != nil {
		m.opts.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		m.errs.add(fmt.Errorf("publish %s: %w", topic, err))
	}
}

// ReportResult implements harness.Reporter.
func (m *MQTT) ReportResult(group, test string, passed bool, detail string) {
	m.publish(m.pub.Topics().Result(), ResultMessage{
		RunID: m.runID, Kind: store.KindResult, Group: group, Test: test,
		Passed: passed, Detail: detail, Timestamp: m.stamp(),
	}, false)
}

// ReportInfo implements harness.Reporter.
func (m *MQTT) ReportInfo(group, test, message string) {
	m.publish(m.pub.Topics().Result(), ResultMessage{
		RunID: m.runID, Kind: store.KindInfo, Group: group, Test: test,
		Detail: message, Timestamp: m.stamp(),
	}, false)
}

// RunStarted implements harness.RunObserver.
func (m *MQTT) RunStarted(info harness.RunInfo) {
	m.runID = info.RunID
	m.publish(m.pub.Topics().Status(), RunStatusMessage{
		RunID: info.RunID, Status: store.StatusRunning, Timestamp: m.stamp(),
	}, true)
}

// PhaseChanged implements harness.RunObserver.
func (m *MQTT) PhaseChanged(phase harness.Phase) {
	m.publish(m.pub.Topics().Status(), RunStatusMessage{
		RunID: m.runID, Status: store.StatusRunning, Phase: string(phase), Timestamp: m.stamp(),
	}, true)
}

// RunAborted implements harness.RunObserver.
func (m *MQTT) RunAborted(error) {}

// RunFinished implements harness.RunObserver.
func (m *MQTT) RunFinished(res harness.Result) {
	summary := res.Summary
	msg := RunStatusMessage{
		RunID: res.RunID, Status: Outcome(res), Summary: &summary, Timestamp: m.stamp(),
	}
	if res.Fatal != nil {
		msg.Error = res.Fatal.Error()
	}
	m.publish(m.pub.Topics().Status(), msg, true)
}

// Close returns the joined publish errors. The client is owned by the
// caller.
func (m *MQTT) Close() error {
	return m.errs.err()
}
