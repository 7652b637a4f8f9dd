package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	authguard "github.com/farmstack/authguard"
)

type metricsSource interface {
	MetricsSnapshot() authguard.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{ID: authguard.MetricCheckAllowed, Name: "authguard_check_allowed_total", Help: "Rate-limit checks that passed."},
	{ID: authguard.MetricCheckDenied, Name: "authguard_check_denied_total", Help: "Rate-limit checks that were denied."},
	{ID: authguard.MetricFailureRecorded, Name: "authguard_failure_recorded_total", Help: "Authentication failures reported to the guard."},
	{ID: authguard.MetricLockoutTriggered, Name: "authguard_lockout_triggered_total", Help: "Failure streaks escalated into lockouts."},
	{ID: authguard.MetricLockoutCleared, Name: "authguard_lockout_cleared_total", Help: "Lockouts cleared by administrative unblock."},
	{ID: authguard.MetricSweepEvicted, Name: "authguard_sweep_evicted_total", Help: "Expired entries removed by sweep passes."},
}

// Exporter renders guard metrics in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter that reads from the given [authguard.Guard].
func NewExporter(guard *authguard.Guard) *Exporter {
	return &Exporter{source: guard}
}

// NewExporterFromSource creates an exporter from a custom metrics source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the metrics.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render writes the current counters in Prometheus text exposition format.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()

	var b strings.Builder
	b.Grow(2048)

	for _, def := range counterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	writeCounter(&b, "authguard_audit_dropped_total",
		"Dropped audit events due to dispatcher backpressure.", e.source.AuditDropped())

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
