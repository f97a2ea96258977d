// Package metrics records operational metrics for resource loads.
//
// Callers use the package-level Record* helpers; the installed Backend decides
// where the numbers go. The default backend discards everything, so metrics
// are always safe to call even when no backend is configured. Concrete
// systems live in subpackages (prompush, datadog) and are installed once from
// main via SetBackend.
//
// Every helper takes the resource name as its "job" label, so parallel loads
// of several resources stay distinguishable.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Metric names shared by the backends.
const (
	StepTotal       = "etl_step_total"
	StepDuration    = "etl_step_duration_seconds"
	RecordsTotal    = "etl_records_total"
	BatchesTotal    = "etl_batches_total"
	DownloadedBytes = "etl_download_bytes_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend and returns the one it replaced.
// Passing nil keeps the existing backend.
func SetBackend(b Backend) (prev Backend) {
	mu.Lock()
	defer mu.Unlock()
	prev = backend
	if b != nil {
		backend = b
	}
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a load step and its latency, labelled
// success or failure by err.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta to the record counter for kind ("parsed", "inserted").
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches increments the COPY batch counter.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordDownload adds the size of a fetched resource.
func RecordDownload(job string, bytes int64) {
	if bytes <= 0 {
		return
	}
	current().IncCounter(DownloadedBytes, float64(bytes), Labels{"job": job})
}
