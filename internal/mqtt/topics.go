package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "hilbench"

// Topics builds the topics of one bench.
type Topics struct {
	Prefix string
	Bench  string
}

// Status returns the retained status topic, e.g. hilbench/lab-a/status.
func (t Topics) Status() string {
	return t.join("status")
}

// Result returns the per-result topic, e.g. hilbench/lab-a/result.
func (t Topics) Result() string {
	return t.join("result")
}

func (t Topics) join(leaf string) string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + sanitize(t.Bench) + "/" + leaf
}

// sanitize keeps MQTT wildcards and separators out of a topic level.
func sanitize(level string) string {
	if level == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(level)
}
