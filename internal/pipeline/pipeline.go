// Package pipeline runs the recurring batch cycle that turns raw queued
// events into validated insights (§4.7). One Engine owns one cycle: read a
// batch from the event queue, feed an external pattern-detection
// aggregator, extract deep learnings from the batch itself, route derived
// text through the quality gate, and decide how long to sleep before the
// next cycle.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"unified-thinking/internal/qualitygate"
	"unified-thinking/internal/queue"
	"unified-thinking/internal/types"
)

// BackpressureLevel classifies how far behind the consumer the queue is.
type BackpressureLevel string

const (
	LevelHealthy   BackpressureLevel = "healthy"
	LevelElevated  BackpressureLevel = "elevated"
	LevelCritical  BackpressureLevel = "critical"
	LevelEmergency BackpressureLevel = "emergency"
)

// ClassifyBackpressure maps a queue depth to a level per §4.7's thresholds.
// Exported so callers outside the engine (the bridge's status check) can
// classify the same depth number the same way without duplicating
// the thresholds.
func ClassifyBackpressure(depth int) BackpressureLevel {
	switch {
	case depth < 200:
		return LevelHealthy
	case depth < 500:
		return LevelElevated
	case depth < 2000:
		return LevelCritical
	default:
		return LevelEmergency
	}
}

// EventQueue is the slice of C1 the engine reads and consumes from.
type EventQueue interface {
	Read(limit, offsetLines int) ([]*types.Event, error)
	Consume(n int) error
	Depth() (int, error)
}

// Config bounds batch sizing and cycle interval. BaseInterval is the
// healthy-level sleep; the other levels are fixed per §4.7.
type Config struct {
	DefaultBatch int
	MinBatch     int
	MaxBatch     int
	BaseInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.DefaultBatch <= 0 {
		c.DefaultBatch = 100
	}
	if c.MinBatch <= 0 {
		c.MinBatch = 50
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 1000
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = 30 * time.Second
	}
}

// Engine is C7, the pipeline driver. One RunCycle call is one cycle.
type Engine struct {
	cfg        Config
	queue      EventQueue
	aggregator PatternAggregator
	validator  *qualitygate.Validator
	metrics    *MetricsLog

	lastEventsPerSec float64
}

// NewEngine builds a pipeline Engine. aggregator may be nil, in which case
// pattern detection is treated as trivially successful (learnings are
// still extracted directly from the batch). metrics may be nil to disable
// the rolling ProcessingMetrics log.
func NewEngine(cfg Config, q EventQueue, aggregator PatternAggregator, validator *qualitygate.Validator, metrics *MetricsLog) *Engine {
	cfg.setDefaults()
	return &Engine{cfg: cfg, queue: q, aggregator: aggregator, validator: validator, metrics: metrics}
}

// CycleResult summarizes one RunCycle invocation for the caller (used by
// the bridge driver to log and by tests to assert behavior).
type CycleResult struct {
	QueueDepthBefore int
	BatchSize        int
	EventsRead       int
	Level            BackpressureLevel
	PatternsOK       bool
	InsightsRouted   int
	InsightsStored   int
	NextInterval     time.Duration
	Duration         time.Duration
}

// computeBatchSize implements §4.7 step 1: level-scaled default, a bonus
// for a fast previous cycle, clamped to [MinBatch, MaxBatch].
func (e *Engine) computeBatchSize(level BackpressureLevel) int {
	size := float64(e.cfg.DefaultBatch)
	switch level {
	case LevelElevated:
		size *= 2
	case LevelCritical:
		size *= 4
	case LevelEmergency:
		size = float64(e.cfg.MaxBatch)
	}
	if e.lastEventsPerSec > 500 {
		size *= 1.5
	}
	if size < float64(e.cfg.MinBatch) {
		size = float64(e.cfg.MinBatch)
	}
	if size > float64(e.cfg.MaxBatch) {
		size = float64(e.cfg.MaxBatch)
	}
	return int(size)
}

// nextInterval implements §4.7 step 8.
func (e *Engine) nextInterval(level BackpressureLevel, eventsRead int) time.Duration {
	switch level {
	case LevelEmergency:
		return 5 * time.Second
	case LevelCritical:
		return 10 * time.Second
	case LevelElevated:
		return 15 * time.Second
	}
	if eventsRead == 0 {
		doubled := 2 * e.cfg.BaseInterval
		if doubled > 120*time.Second {
			return 120 * time.Second
		}
		return doubled
	}
	return e.cfg.BaseInterval
}

// RunCycle executes one pipeline cycle end to end.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()

	depth, err := e.queue.Depth()
	if err != nil {
		return nil, fmt.Errorf("pipeline: queue depth: %w", err)
	}
	level := ClassifyBackpressure(depth)
	batchSize := e.computeBatchSize(level)

	events, err := e.queue.Read(batchSize, 0)
	if err != nil {
		return nil, fmt.Errorf("pipeline: queue read: %w", err)
	}
	// Deep-learning extraction needs original arrival order to detect
	// consecutive-event patterns (recovery, risky-edit); keep a copy
	// before priority sort reorders the working slice for processing.
	chronological := append([]*types.Event(nil), events...)
	queue.SortByPriority(events)

	result := &CycleResult{
		QueueDepthBefore: depth,
		BatchSize:        batchSize,
		EventsRead:       len(events),
		Level:            level,
	}

	if len(events) == 0 {
		result.PatternsOK = true
		result.NextInterval = e.nextInterval(level, 0)
		result.Duration = time.Since(start)
		e.recordMetrics(result, priorityBreakdown(events))
		return result, nil
	}

	patternsOK := true
	if e.aggregator != nil {
		for _, ev := range events {
			if err := e.aggregator.ProcessEvent(ctx, ev); err != nil {
				patternsOK = false
				break
			}
		}
		if patternsOK {
			if err := e.aggregator.TriggerLearning(ctx); err != nil {
				patternsOK = false
			}
		}
	}
	result.PatternsOK = patternsOK

	learnings := ExtractDeepLearnings(chronological)
	routed, stored := e.routeLearnings(ctx, learnings)
	result.InsightsRouted = routed
	result.InsightsStored = stored

	if patternsOK {
		if err := e.queue.Consume(len(events)); err != nil {
			return nil, fmt.Errorf("pipeline: queue consume: %w", err)
		}
	}

	elapsed := time.Since(start)
	if elapsed > 0 {
		e.lastEventsPerSec = float64(len(events)) / elapsed.Seconds()
	}

	result.NextInterval = e.nextInterval(level, len(events))
	result.Duration = elapsed
	e.recordMetrics(result, priorityBreakdown(events))
	return result, nil
}

func (e *Engine) routeLearnings(ctx context.Context, learnings []DerivedInsight) (routed, stored int) {
	if e.validator == nil {
		return 0, 0
	}
	for _, l := range learnings {
		routed++
		ok, err := e.validator.Validate(ctx, qualitygate.Candidate{
			Text:       l.Text,
			Source:     l.Source,
			Category:   l.Category,
			Confidence: l.Confidence,
		})
		if err == nil && ok {
			stored++
		}
	}
	return routed, stored
}

func priorityBreakdown(events []*types.Event) map[types.Priority]int {
	out := map[types.Priority]int{types.PriorityHigh: 0, types.PriorityMedium: 0, types.PriorityLow: 0}
	for _, ev := range events {
		out[queue.Classify(ev)]++
	}
	return out
}
