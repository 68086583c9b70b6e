// Package predictloop implements the Prediction & Outcome Loop (C8,
// §4.8): a build phase that turns insight exposures into falsifiable
// predictions, an outcome phase that extracts observed signals from new
// queue events, and a match phase that reconciles the two and feeds the
// result back into the cognitive store via apply_outcome.
package predictloop

import (
	"context"
	"time"

	"unified-thinking/internal/types"
)

// InsightSource is the slice of C3 the loop reads exposures from and
// writes outcomes back to.
type InsightSource interface {
	Get(key string) (*types.Insight, bool)
	ApplyOutcome(key string, good bool, evidence string) error
	Exposures(since time.Time) []*types.Exposure
}

// EventSource is the slice of C1 the outcome phase scans. The loop never
// calls Consume: its cursor is independent of the pipeline's (§4.8
// "scan new queue events, tracked by its own cursor").
type EventSource interface {
	Read(limit, offsetLines int) ([]*types.Event, error)
}

// AhaTracker is the external collaborator that receives surprise events
// when a high-reliability insight is contradicted (§4.8).
type AhaTracker interface {
	Surprise(ctx context.Context, insightKey, reason string) error
}

// Config bounds the loop's per-cycle behavior.
type Config struct {
	RetentionWindow  time.Duration // how far back to look for un-predicted exposures
	PerSourceBudget  int           // max new predictions per source per build call
	ScanBatchSize    int           // events read per outcome-phase call
	AutoLinkMinSim   float64       // similarity floor for auto-link
	SurpriseMinRel   float64       // reliability floor for a surprise event
	SurpriseMinValid int           // validation-count floor for a surprise event
}

func (c *Config) setDefaults() {
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = 24 * time.Hour
	}
	if c.PerSourceBudget <= 0 {
		c.PerSourceBudget = 20
	}
	if c.ScanBatchSize <= 0 {
		c.ScanBatchSize = 200
	}
	if c.AutoLinkMinSim <= 0 {
		c.AutoLinkMinSim = 0.5
	}
	if c.SurpriseMinRel <= 0 {
		c.SurpriseMinRel = 0.7
	}
	if c.SurpriseMinValid <= 0 {
		c.SurpriseMinValid = 2
	}
}

// Loop is C8's driver, owning the prediction/outcome state across cycles.
type Loop struct {
	cfg     Config
	store   InsightSource
	events  EventSource
	aha     AhaTracker
	similar Similarity

	predictions *PredictionSet
	seenTraces  *seenSet // identity-based outcome-phase cursor, see seen.go
}

// NewLoop builds a Loop. aha may be nil to disable surprise events;
// similar may be nil to default to Jaccard token overlap.
func NewLoop(cfg Config, store InsightSource, events EventSource, aha AhaTracker, similar Similarity, predictions *PredictionSet) *Loop {
	cfg.setDefaults()
	if similar == nil {
		similar = JaccardSimilarity{}
	}
	return &Loop{
		cfg:         cfg,
		store:       store,
		events:      events,
		aha:         aha,
		similar:     similar,
		predictions: predictions,
		seenTraces:  newSeenSet(4096),
	}
}

// CycleResult summarizes one full build+outcome+match pass.
type CycleResult struct {
	PredictionsBuilt  int
	OutcomesExtracted int
	Matched           int
	Surprises         int
}

// RunCycle runs the build, outcome, and match phases in sequence. Auto-link
// runs on its own interval via RunAutoLink, not as part of this cycle
// (§4.8: "on a separate interval").
func (l *Loop) RunCycle(ctx context.Context) (*CycleResult, error) {
	now := time.Now()
	result := &CycleResult{}

	exposures := l.store.Exposures(now.Add(-l.cfg.RetentionWindow))
	built := BuildPredictions(exposures, l.store, l.predictions.HasOpenPrediction, l.cfg.PerSourceBudget, now)
	for _, p := range built {
		l.predictions.AddPrediction(p)
	}
	result.PredictionsBuilt = len(built)

	events, err := l.events.Read(l.cfg.ScanBatchSize, 0)
	if err != nil {
		return nil, err
	}
	var fresh []*types.Event
	for _, e := range events {
		if l.seenTraces.seen(e.TraceID) {
			continue
		}
		fresh = append(fresh, e)
		l.seenTraces.mark(e.TraceID)
	}
	outcomes := ExtractOutcomes(fresh)
	for _, o := range outcomes {
		l.predictions.AddOutcome(o)
	}
	result.OutcomesExtracted = len(outcomes)

	matched, surprises := l.match(ctx, now)
	result.Matched = matched
	result.Surprises = surprises
	return result, nil
}

func (l *Loop) match(ctx context.Context, now time.Time) (matched, surprises int) {
	open := l.predictions.OpenPredictions()
	allOutcomes := l.predictions.RecentOutcomes(7 * 24 * time.Hour)

	for _, p := range open {
		outcome := l.bestMatch(p, allOutcomes, now)
		if outcome == nil {
			continue
		}

		l.predictions.ResolvePrediction(p.PredictionID, outcome.OutcomeID)
		matched++

		good := outcomeValidates(p, outcome)
		p.Validated = &good
		if err := l.store.ApplyOutcome(p.InsightKey, good, outcome.Text); err != nil {
			continue
		}

		if !good {
			if insight, ok := l.store.Get(p.InsightKey); ok {
				if insight.Reliability() >= l.cfg.SurpriseMinRel && insight.TimesValidated >= l.cfg.SurpriseMinValid && l.aha != nil {
					if err := l.aha.Surprise(ctx, p.InsightKey, "contradicted a high-reliability insight"); err == nil {
						surprises++
					}
				}
			}
		}
	}
	return matched, surprises
}

// bestMatch finds the highest-similarity outcome for p within its
// type-adaptive window, preferring a hard link via LinkedInsights over
// any similarity score.
func (l *Loop) bestMatch(p *types.Prediction, outcomes []*types.Outcome, now time.Time) *types.Outcome {
	window := matchWindow(p.Type)

	var best *types.Outcome
	var bestScore float64
	for _, o := range outcomes {
		if o.OutcomeID == "" {
			continue
		}
		if l.predictions.outcomeConsumed(o.OutcomeID) {
			continue
		}
		for _, linked := range o.LinkedInsights {
			if linked == p.InsightKey {
				return o // hard link, bypasses similarity and window entirely
			}
		}
		if now.Sub(o.CreatedAt) > window {
			continue
		}
		score := l.similar.Score(p.Text, o.Text)
		if score > bestScore {
			bestScore = score
			best = o
		}
	}
	if bestScore >= matchThreshold {
		return best
	}
	return nil
}

// matchThreshold is the similarity floor for a non-hard-linked match.
const matchThreshold = 0.35

// outcomeValidates reports whether outcome confirms p's expectation.
// failure_pattern predictions always validate on any matched outcome
// (§4.8: "failure_pattern always validates on any outcome").
func outcomeValidates(p *types.Prediction, o *types.Outcome) bool {
	if p.Type == types.PredictionFailurePattern {
		return true
	}
	return p.ExpectedPolarity == o.Polarity
}

// matchWindow implements the §4.8 type-adaptive window: principles get 7
// days, failure patterns 30 minutes, everything else a 1-day default.
func matchWindow(t types.PredictionType) time.Duration {
	switch t {
	case types.PredictionPrinciple:
		return 7 * 24 * time.Hour
	case types.PredictionFailurePattern:
		return 30 * time.Minute
	default:
		return 24 * time.Hour
	}
}

// RunAutoLink similarity-links recent outcomes to nearby exposures when no
// hard link already exists, bounded by AutoLinkMinSim (§4.8 auto-link).
func (l *Loop) RunAutoLink(since time.Time) int {
	exposures := l.store.Exposures(since)
	outcomes := l.predictions.RecentOutcomes(time.Since(since))

	linked := 0
	for _, o := range outcomes {
		if len(o.LinkedInsights) > 0 {
			continue
		}
		var bestKey string
		var bestScore float64
		for _, exp := range exposures {
			insight, ok := l.store.Get(exp.InsightKey)
			if !ok {
				continue
			}
			score := l.similar.Score(insight.Text, o.Text)
			if score > bestScore {
				bestScore = score
				bestKey = exp.InsightKey
			}
		}
		if bestScore >= l.cfg.AutoLinkMinSim && bestKey != "" {
			o.LinkedInsights = append(o.LinkedInsights, bestKey)
			linked++
		}
	}
	return linked
}
