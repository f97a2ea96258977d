package main

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dataprocessor/internal/journal"
	"dataprocessor/internal/loader"
)

type fakeLoader struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeLoader) Load(ctx context.Context, schemaName, resource string) (loader.Report, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, schemaName+"/"+resource)
	f.mu.Unlock()

	if err := f.fail[resource]; err != nil {
		return loader.Report{}, err
	}
	return loader.Report{
		Resource: resource,
		Table:    schemaName + "." + loader.TableName("onderwijs", resource),
		Rows:     2,
		Bytes:    64,
		Checksum: 0xabc,
	}, nil
}

func (f *fakeLoader) sortedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func TestLoadAll_AllResources(t *testing.T) {
	t.Parallel()

	fl := &fakeLoader{}
	err := loadAll(context.Background(), fl, nil, runConfig{
		Schema:        "dataset_onderwijs",
		DatasetPrefix: "onderwijs",
		Resources:     []string{"onderwijsbesturen", "examenlicenties"},
		Parallel:      1,
	})
	if err != nil {
		t.Fatalf("loadAll: %v", err)
	}
	got := fl.sortedCalls()
	want := []string{"dataset_onderwijs/examenlicenties", "dataset_onderwijs/onderwijsbesturen"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if fl.maxSeen.Load() != 1 {
		t.Fatalf("parallel=1 ran %d loads at once", fl.maxSeen.Load())
	}
}

func TestLoadAll_BoundsParallelism(t *testing.T) {
	t.Parallel()

	fl := &fakeLoader{delay: 20 * time.Millisecond}
	err := loadAll(context.Background(), fl, nil, runConfig{
		Schema:    "s",
		Resources: []string{"a", "b", "c", "d", "e"},
		Parallel:  2,
	})
	if err != nil {
		t.Fatalf("loadAll: %v", err)
	}
	if got := fl.maxSeen.Load(); got > 2 {
		t.Fatalf("max concurrent loads = %d, want <= 2", got)
	}
	if got := len(fl.sortedCalls()); got != 5 {
		t.Fatalf("calls = %d, want 5", got)
	}
}

func TestLoadAll_FailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	boom := errors.New("loader: b: fetch: status 404")
	fl := &fakeLoader{fail: map[string]error{"b": boom}}
	err := loadAll(context.Background(), fl, nil, runConfig{
		Schema:    "s",
		Resources: []string{"a", "b", "c"},
		Parallel:  1,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 3") {
		t.Fatalf("error = %q, want failure count", err)
	}
	if got := len(fl.sortedCalls()); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestLoadAll_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fl := &fakeLoader{}
	err := loadAll(ctx, fl, nil, runConfig{Schema: "s", Resources: []string{"a"}, Parallel: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(fl.sortedCalls()); got != 0 {
		t.Fatalf("loader called %d times after cancel", got)
	}
}

func TestLoadAll_Journal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := journal.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	fl := &fakeLoader{fail: map[string]error{"bad": errors.New("boom")}}
	_ = loadAll(ctx, fl, j, runConfig{
		Schema:        "dataset_onderwijs",
		DatasetPrefix: "onderwijs",
		Resources:     []string{"good", "bad"},
		Parallel:      2,
	})

	good, err := j.Recent(ctx, "good", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(good) != 1 {
		t.Fatalf("good runs = %d, want 1", len(good))
	}
	if good[0].Status != journal.StatusSucceeded || good[0].Rows != 2 || good[0].Checksum != 0xabc {
		t.Fatalf("good run = %+v", good[0])
	}
	if good[0].Table != "dataset_onderwijs.onderwijs_good_new" {
		t.Fatalf("Table = %q", good[0].Table)
	}

	bad, err := j.Recent(ctx, "bad", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(bad) != 1 || bad[0].Status != journal.StatusFailed || bad[0].Error != "boom" {
		t.Fatalf("bad runs = %+v", bad)
	}
}
