package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

const (
	auditDroppedName = "authcore_audit_dropped_total"
	auditDroppedHelp = "Audit events discarded because the dispatcher queue was full or the caller gave up."
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders authcore metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource is NewPrometheusExporter for anything that
// exposes a snapshot, mostly tests.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on GET.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// nothing was ever dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeFamily(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, "", strconv.FormatUint(snap.Counters[def.ID], 10))
	}

	if ratio, ok := internaldefs.CacheHitRatio(snap); ok {
		writeFamily(&b, internaldefs.CacheHitRatioName, internaldefs.CacheHitRatioHelp, "gauge")
		writeSample(&b, internaldefs.CacheHitRatioName, "", strconv.FormatFloat(ratio, 'g', -1, 64))
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		writeFamily(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			writeSample(&b, def.Name+"_bucket", `le="`+le+`"`, strconv.FormatUint(buckets[i], 10))
		}
		writeSample(&b, def.Name+"_count", "", strconv.FormatUint(buckets[len(buckets)-1], 10))
		// Resolve latency is only bucketed; there is no running sum to report.
		writeSample(&b, def.Name+"_sum", "", "0")
	}

	writeFamily(&b, auditDroppedName, auditDroppedHelp, "counter")
	writeSample(&b, auditDroppedName, "", strconv.FormatUint(dropped, 10))

	return b.String()
}

func writeFamily(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func writeSample(b *strings.Builder, name, labels, value string) {
	b.WriteString(name)
	if labels != "" {
		b.WriteString("{" + labels + "}")
	}
	b.WriteString(" " + value + "\n")
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
