// Package prometheus exports engine metrics through client_golang.
//
// [NewCollector] wraps an Engine (or any [Source]) as a prometheus.Collector.
// Counters are named pairauth_*_total and latency histograms
// pairauth_*_latency_seconds. Nothing is registered globally; callers use
// [NewRegistry] or register the collector themselves.
package prometheus
