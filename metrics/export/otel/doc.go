// Package otel exposes authcore counters as OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket, plus a Float64ObservableGauge for
// the cache hit ratio. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection. Callers own the
// MeterProvider.
package otel
