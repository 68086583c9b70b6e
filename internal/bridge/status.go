package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"unified-thinking/internal/pipeline"
)

// State is one layer's health verdict, per §7's "OK / WARN / FAIL
// (critical)" table.
type State string

const (
	StateOK   State = "OK"
	StateWarn State = "WARN"
	StateFail State = "FAIL"
)

// LayerStatus is one row of `spark status`'s table.
type LayerStatus struct {
	Layer  string `json:"layer"`
	State  State  `json:"state"`
	Detail string `json:"detail"`
}

// staleAfter is the heartbeat staleness threshold named in §6.
const staleAfter = 120 * time.Second

// Status runs the per-layer checks §7 names (Source / Queue / Bridge /
// Processing / Output / Mind) and reports each as OK/WARN/FAIL.
func (b *Bridge) Status() []LayerStatus {
	return []LayerStatus{
		b.sourceStatus(),
		b.queueStatus(),
		b.bridgeStatus(),
		b.processingStatus(),
		b.outputStatus(),
		b.mindStatus(),
	}
}

// Critical reports whether any layer in rows failed — the condition
// under which §7 says `spark status` must exit 1.
func Critical(rows []LayerStatus) bool {
	for _, r := range rows {
		if r.State == StateFail {
			return true
		}
	}
	return false
}

func (b *Bridge) sourceStatus() LayerStatus {
	events, err := b.Queue.Tail(1)
	if err != nil {
		return LayerStatus{"Source", StateFail, fmt.Sprintf("queue unreadable: %v", err)}
	}
	if len(events) == 0 {
		return LayerStatus{"Source", StateWarn, "no events captured yet"}
	}
	return LayerStatus{"Source", StateOK, fmt.Sprintf("last event at %s", events[len(events)-1].Timestamp.Format(time.RFC3339))}
}

func (b *Bridge) queueStatus() LayerStatus {
	depth, err := b.Queue.Depth()
	if err != nil {
		return LayerStatus{"Queue", StateFail, fmt.Sprintf("depth unreadable: %v", err)}
	}
	switch pipeline.ClassifyBackpressure(depth) {
	case pipeline.LevelHealthy, pipeline.LevelElevated:
		return LayerStatus{"Queue", StateOK, fmt.Sprintf("depth=%d", depth)}
	case pipeline.LevelCritical:
		return LayerStatus{"Queue", StateWarn, fmt.Sprintf("depth=%d, backpressure critical", depth)}
	default:
		return LayerStatus{"Queue", StateFail, fmt.Sprintf("depth=%d, backpressure emergency", depth)}
	}
}

func (b *Bridge) bridgeStatus() LayerStatus {
	data, err := os.ReadFile(b.heartbeatPath)
	if err != nil {
		return LayerStatus{"Bridge", StateFail, "no heartbeat file yet"}
	}
	var hb struct {
		Ts int64 `json:"ts"`
	}
	if err := json.Unmarshal(data, &hb); err != nil {
		return LayerStatus{"Bridge", StateFail, "heartbeat file unparseable"}
	}
	age := time.Since(time.Unix(hb.Ts, 0))
	if age > staleAfter {
		return LayerStatus{"Bridge", StateFail, fmt.Sprintf("heartbeat stale (%s old)", age.Round(time.Second))}
	}
	return LayerStatus{"Bridge", StateOK, fmt.Sprintf("heartbeat %s old", age.Round(time.Second))}
}

func (b *Bridge) processingStatus() LayerStatus {
	counts := b.Validator.Telemetry.Snapshot()
	if counts.Attempts == 0 {
		return LayerStatus{"Processing", StateWarn, "no validate-and-store attempts yet"}
	}
	rejectRate := float64(counts.RejectedNoise+counts.RejectedDuplicate+counts.RejectedNeedsWork+counts.RejectedContradiction) / float64(counts.Attempts)
	if counts.RoastExceptions > 0 || counts.StorageFailures > 0 {
		return LayerStatus{"Processing", StateFail, fmt.Sprintf("%d roast exceptions, %d storage failures", counts.RoastExceptions, counts.StorageFailures)}
	}
	if rejectRate > 0.95 {
		return LayerStatus{"Processing", StateWarn, fmt.Sprintf("reject rate %.0f%% across %d attempts", rejectRate*100, counts.Attempts)}
	}
	return LayerStatus{"Processing", StateOK, fmt.Sprintf("%d stored of %d attempts", counts.Stored, counts.Attempts)}
}

func (b *Bridge) outputStatus() LayerStatus {
	docs, err := b.PromotionSink.List(context.Background())
	if err != nil {
		return LayerStatus{"Output", StateFail, fmt.Sprintf("adapter sink unreadable: %v", err)}
	}
	return LayerStatus{"Output", StateOK, fmt.Sprintf("%d promoted insights", len(docs))}
}

func (b *Bridge) mindStatus() LayerStatus {
	n := b.Store.Len()
	if n == 0 {
		return LayerStatus{"Mind", StateWarn, "cognitive store is empty"}
	}
	detail := fmt.Sprintf("%d insights", n)
	if !b.Index.EmbeddingsAvailable() {
		detail += " [no embeddings]"
	}
	return LayerStatus{"Mind", StateOK, detail}
}
