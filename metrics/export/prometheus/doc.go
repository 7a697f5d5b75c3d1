// Package prometheus renders authcore metrics in Prometheus text exposition
// format.
//
// Counters are named authcore_*_total and the single histogram is
// authcore_resolve_latency_seconds. authcore_cache_hit_ratio is derived from
// the cache counters and only appears once the cache was consulted. Nothing is registered globally; callers
// mount [PrometheusExporter.Handler].
package prometheus
