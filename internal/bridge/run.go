package bridge

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"unified-thinking/internal/evolution"
)

// Run starts every background loop and blocks until ctx is cancelled.
// Grounded on the teacher's cmd/server/main.go sequencing (construct,
// log each stage, run) but fanned out across goroutines since Spark has
// several independent cycles instead of one request-response server loop.
func (b *Bridge) Run(ctx context.Context) {
	var running int

	running++
	go b.bridgeWorkerLoop(ctx)

	running++
	go b.loop(ctx, b.cfg.ReloadInterval, "reload-watcher", func(ctx context.Context) error {
		_, err := b.Registry.Reload()
		return err
	})

	running++
	go b.loop(ctx, b.cfg.PredictionInterval, "prediction-worker", func(ctx context.Context) error {
		_, err := b.Predictions.RunCycle(ctx)
		return err
	})

	running++
	go b.loop(ctx, b.cfg.PromotionInterval, "promotion-worker", func(ctx context.Context) error {
		_, err := b.Promotion.RunCycle(ctx)
		return err
	})

	running++
	go b.loop(ctx, b.cfg.EvolutionInterval, "evolution-worker", func(ctx context.Context) error {
		return b.runEvolutionCycle()
	})

	log.Printf("bridge: %d loops started", running)
	<-ctx.Done()
	log.Println("bridge: shutdown requested")
}

// bridgeWorkerLoop drives C7 with the adaptive pacing §4.7 describes:
// each cycle reports the interval the *next* cycle should wait, rather
// than a fixed ticker, since backpressure level controls cadence.
func (b *Bridge) bridgeWorkerLoop(ctx context.Context) {
	interval := 30 * time.Second
	for {
		result, err := b.Pipeline.RunCycle(ctx)
		if err != nil {
			log.Printf("bridge: bridge-worker cycle failed: %v", err)
		} else {
			interval = result.NextInterval
			if err := b.writeHeartbeat(); err != nil {
				log.Printf("bridge: heartbeat write failed: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// loop runs fn immediately, then every interval, until ctx is cancelled.
// A returned error is logged but never stops the loop — per §7, no
// background cycle is allowed to take the process down.
func (b *Bridge) loop(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}

	run := func() {
		if err := fn(ctx); err != nil {
			log.Printf("bridge: %s cycle failed: %v", name, err)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// sessionsSince returns the distinct session IDs exposed since cutoff.
func sessionsSince(store evolution.ExposureSource, cutoff time.Time) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range store.Exposures(cutoff) {
		if e.SessionID == "" || seen[e.SessionID] {
			continue
		}
		seen[e.SessionID] = true
		out = append(out, e.SessionID)
	}
	return out
}

// runEvolutionCycle generates a report for every session with an
// exposure in the last four evolution intervals, appends it to history,
// and lets the strategist react to the rolling trend.
func (b *Bridge) runEvolutionCycle() error {
	since := time.Now().Add(-4 * b.cfg.EvolutionInterval)
	sessions := sessionsSince(b.Store, since)
	if len(sessions) == 0 {
		return nil
	}

	var lastQuality float64
	for _, sid := range sessions {
		report := b.Reporter.Generate(sid)
		if err := b.History.Append(report); err != nil {
			return err
		}
		lastQuality = report.QualityScore
	}

	history, err := b.History.Since(since.Add(-7 * 24 * time.Hour))
	if err != nil {
		return err
	}
	trend := evolution.ComputeTrend("quality_score", history, 7)
	b.Strategist.RunCycle(lastQuality, "quality_score", trend.Slope)
	return nil
}

// writeHeartbeat persists {ts} atomically so a status check never reads
// a half-written file mid-write.
func (b *Bridge) writeHeartbeat() error {
	tmp := b.heartbeatPath + ".tmp"
	data, err := json.Marshal(struct {
		Ts int64 `json:"ts"`
	}{Ts: time.Now().Unix()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.heartbeatPath)
}
