package output

import (
	"context"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/ccollicutt/steptrace/pkg/parser"
)

// MetricsFormatter renders a report in the Prometheus text exposition
// format, for the node_exporter textfile collector.
type MetricsFormatter struct{}

// NewMetricsFormatter creates a new metrics formatter.
func NewMetricsFormatter() *MetricsFormatter {
	return &MetricsFormatter{}
}

// Name returns the format name.
func (f *MetricsFormatter) Name() string {
	return "metrics"
}

// Extension returns the file extension.
func (f *MetricsFormatter) Extension() string {
	return "prom"
}

// ContentType returns the MIME type.
func (f *MetricsFormatter) ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}

type reportMetrics struct {
	steps       *prometheus.GaugeVec
	successRate *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	averageStep *prometheus.GaugeVec
	errorCodes  *prometheus.GaugeVec
}

func newReportMetrics(registry *prometheus.Registry) *reportMetrics {
	m := &reportMetrics{
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steptrace_steps",
			Help: "Number of deployment steps by outcome.",
		}, []string{"source", "outcome"}),
		successRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steptrace_success_rate_percent",
			Help: "Share of finished steps that succeeded, in percent.",
		}, []string{"source"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steptrace_duration_seconds",
			Help: "Time between the first and last recorded step.",
		}, []string{"source"}),
		averageStep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steptrace_average_step_seconds",
			Help: "Total duration divided by the number of finished steps.",
		}, []string{"source"}),
		errorCodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "steptrace_error_codes",
			Help: "Number of distinct error codes reported by failed steps.",
		}, []string{"source"}),
	}

	registry.MustRegister(
		m.steps,
		m.successRate,
		m.duration,
		m.averageStep,
		m.errorCodes,
	)
	return m
}

// Format renders the report as Prometheus metrics.
func (f *MetricsFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := newReportMetrics(registry)

	s := report.Summary
	source := report.Metadata.Source

	m.steps.WithLabelValues(source, outcomeLabel(parser.KindSuccess)).Set(float64(s.SuccessCount))
	m.steps.WithLabelValues(source, outcomeLabel(parser.KindError)).Set(float64(s.FailureCount))
	m.steps.WithLabelValues(source, outcomeLabel(parser.KindWarning)).Set(float64(s.WarningCount))
	m.successRate.WithLabelValues(source).Set(s.SuccessRate)
	m.duration.WithLabelValues(source).Set(s.TotalDuration.Seconds())
	m.averageStep.WithLabelValues(source).Set(s.AverageStepDuration.Seconds())
	m.errorCodes.WithLabelValues(source).Set(float64(len(s.ErrorCodes)))

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func outcomeLabel(k parser.Kind) string {
	return strings.ToLower(string(k))
}
