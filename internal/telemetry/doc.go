// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing, metrics and log export across the scribe bot and worker.
//
// The package configures OTLP HTTP export with support for Grafana Cloud,
// Better Stack and local collector backends.
package telemetry
