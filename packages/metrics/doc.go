// Package metrics collects harness counters for Prometheus and latency
// percentiles for the end-of-run summary.
//
// Every method is safe on a nil *Metrics so components can record
// unconditionally.
package metrics
