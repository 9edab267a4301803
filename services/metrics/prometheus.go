// Package metricsvc exposes the dashboard's Prometheus metrics.
package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/madrasa/core/crud"
)

// commit outcomes
const (
	Created  = "created"
	Updated  = "updated"
	Removed  = "removed"
	Rejected = "rejected"
)

// Recorder collects per-panel record counts and commit outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	records  *prometheus.GaugeVec
	commits  *prometheus.CounterVec
	uploads  *prometheus.CounterVec
}

func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of records held by each panel.",
		}, []string{"panel"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Record submissions by panel and outcome.",
		}, []string{"panel", "outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_uploads_total",
			Help:      "Schedule document uploads by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.records,
		r.commits,
		r.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// StoreChanged is a crud.ChangeFunc keeping the records gauge up to date.
func (r *Recorder) StoreChanged(schema crud.Schema, size int) {
	r.records.WithLabelValues(schema.Name).Set(float64(size))
}

func (r *Recorder) Commit(panel, outcome string) {
	r.commits.WithLabelValues(panel, outcome).Inc()
}

func (r *Recorder) Upload(outcome string) {
	r.uploads.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
