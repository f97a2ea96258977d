package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

// fakeBackend records every call in memory.
type fakeBackend struct {
	mu         sync.Mutex
	counters   []counterCall
	histograms []histCall
	flushes    int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// install swaps in a fake backend for the duration of the test. Tests using
// it must not run in parallel with each other.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	orig := SetBackend(fb)
	t.Cleanup(func() { SetBackend(orig) })
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("onderwijsbesturen", "fetch", nil, 2*time.Second)
	RecordStep("examenlicenties", "write", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2, 2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["job"] != "onderwijsbesturen" || c0.labels["step"] != "fetch" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}
	if h := fb.histograms[0]; h.name != StepDuration || h.value < 1.999 || h.value > 2.001 {
		t.Fatalf("hist[0] = %#v; want ~2s", h)
	}

	if got := fb.counters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1] status = %q, want failure", got)
	}
	if h := fb.histograms[1]; h.value < 1.499 || h.value > 1.501 {
		t.Fatalf("hist[1].value = %v; want ~1.5", h.value)
	}
}

func TestRecordCounters(t *testing.T) {
	fb := install(t)

	RecordRow("r", "parsed", 3)
	RecordRow("r", "parsed", 0) // ignored
	RecordRow("r", "inserted", 5)
	RecordBatches("r", 2)
	RecordBatches("r", -1) // ignored
	RecordDownload("r", 1024)
	RecordDownload("r", 0) // ignored

	want := []counterCall{
		{RecordsTotal, 3, Labels{"job": "r", "kind": "parsed"}},
		{RecordsTotal, 5, Labels{"job": "r", "kind": "inserted"}},
		{BatchesTotal, 2, Labels{"job": "r"}},
		{DownloadedBytes, 1024, Labels{"job": "r"}},
	}
	if len(fb.counters) != len(want) {
		t.Fatalf("counter calls = %d, want %d: %#v", len(fb.counters), len(want), fb.counters)
	}
	for i, w := range want {
		got := fb.counters[i]
		if got.name != w.name || got.delta != w.delta {
			t.Fatalf("counter[%d] = %#v, want %#v", i, got, w)
		}
		for k, v := range w.labels {
			if got.labels[k] != v {
				t.Fatalf("counter[%d] label %s = %q, want %q", i, k, got.labels[k], v)
			}
		}
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", fb.flushes)
	}

	if prev := SetBackend(nil); prev != Backend(fb) {
		t.Fatalf("SetBackend(nil) returned %T, want the installed backend", prev)
	}
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) replaced the backend")
	}
}

func TestSetBackend_ReturnsPrevious(t *testing.T) {
	first := &fakeBackend{}
	orig := SetBackend(first)
	defer SetBackend(orig)

	second := &fakeBackend{}
	if prev := SetBackend(second); prev != Backend(first) {
		t.Fatalf("SetBackend returned %T, want the first backend", prev)
	}
	if prev := SetBackend(orig); prev != Backend(second) {
		t.Fatalf("restore returned %T, want the second backend", prev)
	}
	if current() != orig {
		t.Fatal("backend not restored")
	}
}
