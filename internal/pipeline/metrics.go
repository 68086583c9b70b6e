package pipeline

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"unified-thinking/internal/types"
	"unified-thinking/pkg/cache"
)

// maxMetricsEntries bounds the rolling ProcessingMetrics window (§4.7 step 7).
const maxMetricsEntries = 100

// ProcessingMetrics is one cycle's recorded summary.
type ProcessingMetrics struct {
	Timestamp        time.Time              `json:"timestamp"`
	Duration         time.Duration          `json:"duration_ns"`
	QueueDepthBefore int                    `json:"queue_depth_before"`
	EventsRead       int                    `json:"events_read"`
	EventsPerSecond  float64                `json:"events_per_second"`
	Level            BackpressureLevel      `json:"level"`
	PriorityCounts   map[types.Priority]int `json:"priority_counts"`
	InsightsRouted   int                    `json:"insights_routed"`
	InsightsStored   int                    `json:"insights_stored"`
}

// MetricsLog persists the last maxMetricsEntries ProcessingMetrics records
// to a single JSON file, rewritten atomically on every cycle. The rolling
// window itself is a pkg/cache.Ring; this type adds the disk mirror so the
// window survives process restarts.
type MetricsLog struct {
	mu   sync.Mutex
	path string
	ring *cache.Ring[ProcessingMetrics]
}

// NewMetricsLog opens (or creates) a rolling metrics log at path. A
// pre-existing file is loaded so the window survives process restarts.
func NewMetricsLog(path string) (*MetricsLog, error) {
	m := &MetricsLog{path: path, ring: cache.NewRing[ProcessingMetrics](maxMetricsEntries)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return m, nil
	}
	var entries []ProcessingMetrics
	if err := json.Unmarshal(data, &entries); err != nil {
		return m, nil // corrupt file: start fresh rather than fail the engine
	}
	for _, e := range entries {
		m.ring.Push(e)
	}
	return m, nil
}

// Record appends one entry, evicting the oldest once the window is full,
// and flushes to disk. Flush errors are swallowed; the metrics log is
// diagnostic, never load-bearing for correctness.
func (m *MetricsLog) Record(pm ProcessingMetrics) {
	m.ring.Push(pm)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return
	}
	data, err := json.Marshal(m.ring.Items())
	if err != nil {
		return
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, m.path)
}

// Recent returns the currently retained entries, oldest first.
func (m *MetricsLog) Recent() []ProcessingMetrics {
	return m.ring.Items()
}

// Trend reports the ratio of the most recent entry's yield
// (events_per_second) to the mean of all retained entries, >1 meaning the
// pipeline is currently outperforming its recent average.
func (m *MetricsLog) Trend() float64 {
	entries := m.ring.Items()
	if len(entries) == 0 {
		return 1
	}
	var sum float64
	for _, e := range entries {
		sum += e.EventsPerSecond
	}
	mean := sum / float64(len(entries))
	if mean == 0 {
		return 1
	}
	return entries[len(entries)-1].EventsPerSecond / mean
}

func (e *Engine) recordMetrics(result *CycleResult, breakdown map[types.Priority]int) {
	if e.metrics == nil {
		return
	}
	eventsPerSec := 0.0
	if result.Duration > 0 {
		eventsPerSec = float64(result.EventsRead) / result.Duration.Seconds()
	}
	e.metrics.Record(ProcessingMetrics{
		Timestamp:        time.Now(),
		Duration:         result.Duration,
		QueueDepthBefore: result.QueueDepthBefore,
		EventsRead:       result.EventsRead,
		EventsPerSecond:  eventsPerSec,
		Level:            result.Level,
		PriorityCounts:   breakdown,
		InsightsRouted:   result.InsightsRouted,
		InsightsStored:   result.InsightsStored,
	})
}
