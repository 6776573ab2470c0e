// Package internaldefs holds the exported metric names and bucket math shared
// by the Prometheus and OpenTelemetry exporters.
package internaldefs
