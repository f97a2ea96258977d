package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dataprocessor/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// readCounterValue reads the current value of a Counter for assertions.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("summary observer does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL", jobName: "x", wantErr: true},
		{name: "default job name", gatewayURL: "http://pushgateway:9091", wantJobName: "dataprocessor"},
		{name: "explicit job name", jobName: "duo-nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "duo-nightly"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want nil, error", tt.jobName, tt.gatewayURL, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"job": "onderwijsbesturen", "step": "fetch", "status": "success"})
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"job": "onderwijsbesturen", "step": "fetch", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"job": "onderwijsbesturen", "kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 2, metrics.Labels{"job": "onderwijsbesturen"})
	b.IncCounter(metrics.DownloadedBytes, 512, metrics.Labels{"job": "examenlicenties"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"job": "onderwijsbesturen"})

	checks := []struct {
		name string
		c    prometheus.Counter
		want float64
	}{
		{"step", b.stepCounter.WithLabelValues("onderwijsbesturen", "fetch", "success"), 3},
		{"records", b.recordCounter.WithLabelValues("onderwijsbesturen", "inserted"), 5},
		{"batches", b.batchCounter.WithLabelValues("onderwijsbesturen"), 2},
		{"bytes", b.bytesCounter.WithLabelValues("examenlicenties"), 512},
		{"untouched", b.bytesCounter.WithLabelValues("onderwijsbesturen"), 0},
	}
	for _, c := range checks {
		if got := readCounterValue(t, c.c); got != c.want {
			t.Fatalf("%s counter = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.IncCounter(metrics.DownloadedBytes, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	lbls := metrics.Labels{"job": "onderwijsbesturen", "step": "write", "status": "success"}
	b.ObserveHistogram(metrics.StepDuration, 1.5, lbls)
	b.ObserveHistogram("other_metric", 2.0, lbls)

	count, sum := readSummaryCountSum(t, b.stepDuration, "onderwijsbesturen", "write", "success")
	if count != 1 || sum != 1.5 {
		t.Fatalf("summary = count %d sum %v, want 1, 1.5", count, sum)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushed, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("duo", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"job": "onderwijsbesturen", "step": "fetch", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush did not reach the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", got.method)
	}
	if !strings.HasPrefix(got.path, "/metrics/job/duo") {
		t.Fatalf("path = %q, want /metrics/job/duo...", got.path)
	}
	if got.body == "" {
		t.Fatal("empty push body")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("duo", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil || !strings.Contains(err.Error(), "prompush: push") {
		t.Fatalf("Flush error = %v, want prompush push error", err)
	}
}
