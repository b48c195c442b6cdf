package doclink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// BatchCounters are the batch-level progress counters.
type BatchCounters struct {
	Total     int
	Processed int
	Failed    int
	Current   string
}

// ProgressSink receives progress events from the batch driver and the
// session orchestrator. Implementations must tolerate concurrent
// invocation: the driver calls them from every worker.
type ProgressSink interface {
	DocumentStarted(path string)
	Stage(path, stage string)
	DocumentCompleted(path string, result *DocumentResult)
	DocumentFailed(path string, err error)
	BatchProgress(counters BatchCounters)
}

// NopSink discards every progress event.
type NopSink struct{}

func (NopSink) DocumentStarted(string)                    {}
func (NopSink) Stage(string, string)                      {}
func (NopSink) DocumentCompleted(string, *DocumentResult) {}
func (NopSink) DocumentFailed(string, error)              {}
func (NopSink) BatchProgress(BatchCounters)               {}

// minProgressItems is the minimum batch size before the reporter draws a
// progress line; for tiny batches progress adds noise without benefit.
const minProgressItems = 3

// ConsoleReporter writes progress to a terminal. On a TTY the batch line
// updates in place with carriage returns; otherwise no batch line is drawn
// and each document's start, completion, and failure is printed on its own
// line.
type ConsoleReporter struct {
	mu    sync.Mutex
	w     io.Writer
	isTTY bool
}

// NewConsoleReporter creates a reporter writing to stderr.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		w:     os.Stderr,
		isTTY: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// NewConsoleReporterWriter creates a reporter for an arbitrary writer (for
// testing). The writer is treated as a non-TTY.
func NewConsoleReporterWriter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) DocumentStarted(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isTTY {
		fmt.Fprintf(r.w, "processing %s\n", path)
	}
}

func (r *ConsoleReporter) Stage(path, stage string) {
	// Stage events are too chatty for the console; they exist for
	// structured sinks.
}

func (r *ConsoleReporter) DocumentCompleted(path string, result *DocumentResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintf(r.w, "%s: %s (%d changes)\n", path, result.Status, len(result.Changes))
}

func (r *ConsoleReporter) DocumentFailed(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLine()
	fmt.Fprintf(r.w, "%s: failed: %v\n", path, err)
}

func (r *ConsoleReporter) BatchProgress(c BatchCounters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isTTY || c.Total < minProgressItems {
		return
	}
	pct := 0
	if c.Total > 0 {
		pct = ((c.Processed + c.Failed) * 100) / c.Total
	}
	fmt.Fprintf(r.w, "\rdocuments %d/%d (%d%%), %d failed", c.Processed+c.Failed, c.Total, pct, c.Failed)
}

func (r *ConsoleReporter) clearLine() {
	if r.isTTY {
		fmt.Fprintf(r.w, "\r%s\r", "                                                  ")
	}
}
