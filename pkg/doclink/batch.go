package doclink

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// BatchDriver fans a list of document paths out over a bounded pool of
// concurrent sessions. The driver does no document I/O itself; each worker
// runs one full session at a time through the shared processor.
type BatchDriver struct {
	proc  *Processor
	bound int
	sink  ProgressSink
}

// NewBatchDriver creates a driver with the given concurrency bound. A
// bound below one falls back to the processor configuration's effective
// concurrency; a nil sink discards progress.
func NewBatchDriver(proc *Processor, bound int, sink ProgressSink) *BatchDriver {
	if bound < 1 {
		bound = proc.cfg.EffectiveConcurrency()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &BatchDriver{proc: proc, bound: bound, sink: sink}
}

// Run processes every path and returns one result per unique path, in
// completion order. Duplicate paths are processed once: no two workers
// ever open the same file concurrently. Cancelling the context prevents
// new sessions from starting and propagates into in-flight ones;
// cancelled-before-start documents are reported Failed with the context
// error.
func (d *BatchDriver) Run(ctx context.Context, paths []string) []*DocumentResult {
	unique := dedupePaths(paths)

	var (
		mu        sync.Mutex
		results   []*DocumentResult
		processed atomic.Int64
		failed    atomic.Int64
	)
	total := len(unique)

	report := func(current string) {
		d.sink.BatchProgress(BatchCounters{
			Total:     total,
			Processed: int(processed.Load()),
			Failed:    int(failed.Load()),
			Current:   current,
		})
	}

	sem := make(chan struct{}, d.bound)
	var wg sync.WaitGroup

	for _, path := range unique {
		if ctx.Err() != nil {
			result := &DocumentResult{Path: path, Status: StatusFailed, Err: ctx.Err()}
			failed.Add(1)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			d.sink.DocumentStarted(path)
			report(path)

			result := d.proc.ProcessDocumentWithProgress(ctx, path, d.sink)

			if result.Status == StatusFailed {
				failed.Add(1)
				d.sink.DocumentFailed(path, result.Err)
			} else {
				processed.Add(1)
				d.sink.DocumentCompleted(path, result)
			}
			report("")

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(path)
	}

	wg.Wait()
	report("")
	return results
}

// dedupePaths removes duplicate paths after cleaning, preserving first
// occurrence order.
func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		clean := filepath.Clean(path)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}
