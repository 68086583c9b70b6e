package qualitygate

import (
	"encoding/json"
	"os"
	"sync"
)

// Counters is the flushed/snapshotted shape of Telemetry's counts.
type Counters struct {
	Attempts              int `json:"attempts"`
	Stored                int `json:"stored"`
	RejectedNoise         int `json:"rejected_noise"`
	RejectedDuplicate     int `json:"rejected_duplicate"`
	RejectedNeedsWork     int `json:"rejected_needs_work"`
	RoastExceptions       int `json:"roast_exceptions"`
	StorageFailures       int `json:"storage_failures"`
	RejectedContradiction int `json:"rejected_contradiction"`
}

// Telemetry accumulates C6 write-path counters and flushes them to a
// file every FlushEvery writes, matching §4.6's "counters flushed every
// N writes to a telemetry file".
type Telemetry struct {
	mu         sync.Mutex
	path       string
	flushEvery int
	sinceFlush int
	counts     Counters
}

// NewTelemetry builds a Telemetry counter set that flushes to path
// every flushEvery writes (minimum 1).
func NewTelemetry(path string, flushEvery int) *Telemetry {
	if flushEvery < 1 {
		flushEvery = 1
	}
	return &Telemetry{path: path, flushEvery: flushEvery}
}

func (t *Telemetry) recordAttempt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Attempts++
	t.maybeFlushLocked()
}

func (t *Telemetry) recordOutcome(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch kind {
	case "stored":
		t.counts.Stored++
	case "noise":
		t.counts.RejectedNoise++
	case "duplicate":
		t.counts.RejectedDuplicate++
	case "needs_work":
		t.counts.RejectedNeedsWork++
	case "roast_exception":
		t.counts.RoastExceptions++
	case "storage_failure":
		t.counts.StorageFailures++
	case "contradiction_discarded":
		t.counts.RejectedContradiction++
	}
	t.maybeFlushLocked()
}

func (t *Telemetry) maybeFlushLocked() {
	t.sinceFlush++
	if t.sinceFlush < t.flushEvery {
		return
	}
	t.sinceFlush = 0
	if t.path == "" {
		return
	}
	data, err := json.MarshalIndent(t.counts, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(t.path, data, 0o644)
}

// Snapshot returns a copy of the current counters for inspection (e.g.
// by the `spark status` CLI command).
func (t *Telemetry) Snapshot() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}
