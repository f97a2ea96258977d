// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A run of dataprocessor is a short batch job with nothing
// to scrape, so the collected registry is pushed once at the end.
//
// The metrics.Labels "job" value (the resource name) becomes the "resource"
// label; the Pushgateway grouping job is fixed per backend.
package prompush

import (
	"fmt"

	"dataprocessor/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // resource, step, status
	stepDuration  *prometheus.SummaryVec // resource, step, status
	recordCounter *prometheus.CounterVec // resource, kind
	batchCounter  *prometheus.CounterVec // resource
	bytesCounter  *prometheus.CounterVec // resource
}

// NewBackend constructs a Pushgateway backend. An empty jobName defaults to
// "dataprocessor".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dataprocessor"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Load step executions by resource, step and status.",
		}, []string{"resource", "step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Load step duration in seconds by resource, step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"resource", "step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Rows per resource and kind (parsed, inserted).",
		}, []string{"resource", "kind"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "COPY batches flushed per resource.",
		}, []string{"resource"}),
		bytesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.DownloadedBytes,
			Help: "Bytes downloaded per resource.",
		}, []string{"resource"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":   b.stepCounter,
		"step summary":   b.stepDuration,
		"record counter": b.recordCounter,
		"batch counter":  b.batchCounter,
		"bytes counter":  b.bytesCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	res := labels["job"]
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(res, labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(res, labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.WithLabelValues(res).Add(delta)
		}
	case metrics.DownloadedBytes:
		if b.bytesCounter != nil {
			b.bytesCounter.WithLabelValues(res).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["job"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push for the same job.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
