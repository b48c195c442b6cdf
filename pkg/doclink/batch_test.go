package doclink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// recordingSink captures progress events for assertions.
type recordingSink struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    []string
	counters  []BatchCounters
}

func (s *recordingSink) DocumentStarted(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, path)
}

func (s *recordingSink) Stage(path, stage string) {}

func (s *recordingSink) DocumentCompleted(path string, result *DocumentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, path)
}

func (s *recordingSink) DocumentFailed(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, path)
}

func (s *recordingSink) BatchProgress(c BatchCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = append(s.counters, c)
}

func TestBatchDriver_ProcessesAllDocuments(t *testing.T) {
	cfg := DefaultConfig()
	proc := newTestProcessor(cfg)

	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeDocxFile(t,
			hyperlinkParaXML("rId1", fmt.Sprintf("Doc %d", i)),
			[]testRel{{ID: "rId1", Target: fmt.Sprintf("https://host/x?docid=TSRC-D%d-10000%d", i, i)}}))
	}

	sink := &recordingSink{}
	driver := NewBatchDriver(proc, 3, sink)
	results := driver.Run(context.Background(), paths)

	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}
	for _, result := range results {
		if result.Status != StatusProcessed {
			t.Errorf("%s: %s (%v)", result.Path, result.Status, result.Err)
		}
	}
	if len(sink.started) != 5 || len(sink.completed) != 5 {
		t.Errorf("progress events: %d started, %d completed", len(sink.started), len(sink.completed))
	}

	final := sink.counters[len(sink.counters)-1]
	if final.Total != 5 || final.Processed != 5 || final.Failed != 0 {
		t.Errorf("final counters: %+v", final)
	}
}

func TestBatchDriver_DeduplicatesPaths(t *testing.T) {
	cfg := DefaultConfig()
	proc := newTestProcessor(cfg)
	path := writeDocxFile(t, paraXML("once"), nil)

	driver := NewBatchDriver(proc, 2, nil)
	results := driver.Run(context.Background(), []string{path, path, path + "/../" + "test.docx"})

	if len(results) != 1 {
		t.Fatalf("expected one result for duplicated path, got %d", len(results))
	}
}

func TestBatchDriver_MixedOutcomes(t *testing.T) {
	cfg := DefaultConfig()
	proc := newTestProcessor(cfg)

	good := writeDocxFile(t, paraXML("fine"), nil)
	bad := writeDocxFile(t, paraXML("x"), nil) + ".missing"

	sink := &recordingSink{}
	driver := NewBatchDriver(proc, 2, sink)
	results := driver.Run(context.Background(), []string{good, bad})

	statuses := map[DocumentStatus]int{}
	for _, result := range results {
		statuses[result.Status]++
	}
	if statuses[StatusProcessed] != 1 || statuses[StatusFailed] != 1 {
		t.Errorf("statuses: %+v", statuses)
	}
	if len(sink.failed) != 1 {
		t.Errorf("failed events: %d", len(sink.failed))
	}

	final := sink.counters[len(sink.counters)-1]
	if final.Processed != 1 || final.Failed != 1 {
		t.Errorf("final counters: %+v", final)
	}
}

func TestBatchDriver_CancellationStopsNewSessions(t *testing.T) {
	cfg := DefaultConfig()
	proc := newTestProcessor(cfg)

	var paths []string
	for i := 0; i < 4; i++ {
		paths = append(paths, writeDocxFile(t, paraXML("doc"), nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := NewBatchDriver(proc, 2, nil)
	results := driver.Run(ctx, paths)

	if len(results) != 4 {
		t.Fatalf("expected a result per path, got %d", len(results))
	}
	for _, result := range results {
		if result.Err == nil || !errors.Is(result.Err, context.Canceled) {
			t.Errorf("%s: expected cancellation, got %v", result.Path, result.Err)
		}
	}
}

// The concurrency bound is honored: at no point do more than `bound`
// sessions run at once.
func TestBatchDriver_BoundedConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	proc := newTestProcessor(cfg)

	var inFlight atomic.Int32
	var peak atomic.Int32
	sink := &gaugeSink{inFlight: &inFlight, peak: &peak}

	var paths []string
	for i := 0; i < 8; i++ {
		paths = append(paths, writeDocxFile(t, paraXML("doc"), nil))
	}

	driver := NewBatchDriver(proc, 2, sink)
	driver.Run(context.Background(), paths)

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency %d exceeds bound 2", got)
	}
}

type gaugeSink struct {
	NopSink
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (g *gaugeSink) DocumentStarted(path string) {
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
}

func (g *gaugeSink) DocumentCompleted(path string, result *DocumentResult) {
	g.inFlight.Add(-1)
}

func (g *gaugeSink) DocumentFailed(path string, err error) {
	g.inFlight.Add(-1)
}
