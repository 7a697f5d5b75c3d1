package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id  authcore.MetricID
	ins metric.Int64ObservableCounter
}

// latencyGauges mirrors one bucketed histogram: a cumulative gauge per
// upper bound plus the sample count.
type latencyGauges struct {
	id      authcore.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter observes engine counters on each collection cycle.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counterInstrument
	latencies    []latencyGauges
	cacheRatio   metric.Float64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, engine *authcore.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		g, err := newLatencyGauges(meter, def)
		if err != nil {
			return nil, err
		}
		e.latencies = append(e.latencies, g)
		for _, b := range g.buckets {
			observables = append(observables, b)
		}
		observables = append(observables, g.count)
	}

	ratio, err := meter.Float64ObservableGauge(internaldefs.CacheHitRatioName, metric.WithDescription(internaldefs.CacheHitRatioHelp))
	if err != nil {
		return nil, fmt.Errorf("gauge %s: %w", internaldefs.CacheHitRatioName, err)
	}
	e.cacheRatio = ratio
	observables = append(observables, ratio)

	dropped, err := meter.Int64ObservableCounter(
		"authcore_audit_dropped_total",
		metric.WithDescription("Audit events discarded because the dispatcher queue was full or the caller gave up."),
	)
	if err != nil {
		return nil, fmt.Errorf("counter authcore_audit_dropped_total: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatencyGauges(meter metric.Meter, def internaldefs.HistogramDef) (latencyGauges, error) {
	g := latencyGauges{id: def.ID}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative count at or under "+internaldefs.HistogramBounds[i]+"s."))
		if err != nil {
			return g, fmt.Errorf("gauge %s: %w", name, err)
		}
		g.buckets[i] = ins
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return g, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	g.count = count
	return g, nil
}

// observe takes one snapshot per collection so every instrument reports the
// same instant.
func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, g := range e.latencies {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[g.id]))
		for i, b := range buckets {
			o.ObserveInt64(g.buckets[i], int64(b))
		}
		o.ObserveInt64(g.count, int64(buckets[len(buckets)-1]))
	}
	if ratio, ok := internaldefs.CacheHitRatio(snap); ok {
		o.ObserveFloat64(e.cacheRatio, ratio)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The instruments stay with the meter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
