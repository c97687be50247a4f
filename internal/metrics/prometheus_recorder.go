package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "microsite"

// PrometheusRecorder implements Recorder with client_golang collectors
// registered on its own registry.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	runDuration   prom.Histogram
	pages         *prom.CounterVec
	placeholders  *prom.CounterVec
	runs          *prom.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the generator collectors on reg, or on a
// fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of generation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total generation run duration",
			Buckets:   prom.DefBuckets,
		}),
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Article pages by outcome",
		}, []string{"outcome"}),
		placeholders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "placeholders_total",
			Help:      "Microtemplate placeholders by key and outcome",
		}, []string{"key", "outcome"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs by final state",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.pages, pr.placeholders, pr.runs)
	return pr
}

// Registry exposes the registry the collectors live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPage(outcome string) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPlaceholder(key, outcome string) {
	if p == nil || p.placeholders == nil {
		return
	}
	p.placeholders.WithLabelValues(key, outcome).Inc()
}

func (p *PrometheusRecorder) IncRun(outcome string) {
	if p == nil || p.runs == nil {
		return
	}
	p.runs.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the current metric values in the text exposition
// format, for collection by node_exporter's textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.registry == nil || path == "" {
		return nil
	}
	return prom.WriteToTextfile(path, p.registry)
}
