// Package metrics owns the Prometheus gauges published by the exporter.
// All writes are gauge sets, which client_golang performs as a single
// atomic store, so the scrape path never waits on a probe runner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const labelTestName = "test_name"

type Registry struct {
	reg      *prometheus.Registry
	success  *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	status   prometheus.Gauge
}

// New builds a private registry. runtime adds the Go and process collectors.
func New(runtime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smoketest_success",
			Help: "Indicates if a smoke test succeeded (1 for success, 0 for failure)",
		}, []string{labelTestName}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smoketest_duration_millisec",
			Help: "Duration (in ms) for a smoke test to succeed",
		}, []string{labelTestName}),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exporter_status",
			Help: "Indicates if the smoke test exporter is running (1 for running, 0 for stopped)",
		}),
	}
	r.reg.MustRegister(r.success, r.duration, r.status)
	if runtime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Track creates the per-service series so they are exported from the
// moment a runner starts, before its first iteration completes.
func (r *Registry) Track(service string) {
	r.success.WithLabelValues(service)
	r.duration.WithLabelValues(service)
}

func (r *Registry) SetSuccess(service string, ok bool) {
	r.success.WithLabelValues(service).Set(boolToFloat(ok))
}

// SetDurationMS is only called for successful iterations; failures leave
// the last successful duration in place.
func (r *Registry) SetDurationMS(service string, ms float64) {
	r.duration.WithLabelValues(service).Set(ms)
}

func (r *Registry) SetExporterStatus(up bool) {
	r.status.Set(boolToFloat(up))
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// The collector accessors below are read by tests through testutil.

func (r *Registry) Success() *prometheus.GaugeVec { return r.success }

func (r *Registry) Duration() *prometheus.GaugeVec { return r.duration }

func (r *Registry) Status() prometheus.Gauge { return r.status }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
