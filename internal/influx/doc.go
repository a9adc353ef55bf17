// Package influx writes bench run metrics to InfluxDB v2.
//
// Writes are blocking: a run is short-lived and a dropped point should be
// reported, not silently buffered.
package influx
