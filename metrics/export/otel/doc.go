// Package otel publishes engine metrics as OpenTelemetry observable
// instruments. The caller owns the MeterProvider; [NewExporter] only
// registers a callback on the supplied Meter.
package otel
