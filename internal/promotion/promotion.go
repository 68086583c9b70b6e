// Package promotion implements the Promotion Policy (C10, §4.10): a
// background scan that selects insights meeting reliability, validation,
// confidence, and age thresholds, caps them to a per-adapter budget,
// writes survivors to an external collaborator's document, and later
// demotes entries whose backing insight has fallen below threshold.
package promotion

import (
	"context"
	"sort"
	"time"

	"unified-thinking/internal/cogstore"
	"unified-thinking/internal/types"
)

// Store is the slice of C3 the policy reads from and marks promotion
// state on. Promoted/PromotedTo already live on types.Insight and
// MarkPromoted/MarkDemoted already exist on cogstore.Store — C10 tracks
// no promotion state of its own.
type Store interface {
	All() []*types.Insight
	Get(key string) (*types.Insight, bool)
	MarkPromoted(key, promotedTo string) error
	MarkDemoted(key string) error
}

// Document is one promoted insight as written to the external collaborator.
type Document struct {
	ID          string         `json:"id"`
	InsightKey  string         `json:"insight_key"`
	Text        string         `json:"text"`
	Category    types.Category `json:"category"`
	Reliability float64        `json:"reliability"`
	PromotedAt  time.Time      `json:"promoted_at"`
}

// Sink is the external collaborator's doc (§1's scope carve-out: the
// actual external system is out of scope, only this interface is owned
// here).
type Sink interface {
	Write(ctx context.Context, doc Document) error
	List(ctx context.Context) ([]Document, error)
	Remove(ctx context.Context, id string) error
}

// Config bounds promotion eligibility and batch size.
type Config struct {
	ReliabilityMin float64
	ValidationsMin int
	ConfidenceMin  float64
	MinAge         time.Duration
	AdapterBudget  int
	GroupMinSim    float64 // similarity floor for "low-value variant" dedup
}

func (c *Config) setDefaults() {
	if c.ReliabilityMin <= 0 {
		c.ReliabilityMin = 0.7
	}
	if c.ValidationsMin <= 0 {
		c.ValidationsMin = 3
	}
	if c.ConfidenceMin <= 0 {
		c.ConfidenceMin = 0.9
	}
	if c.MinAge <= 0 {
		c.MinAge = 2 * time.Hour
	}
	if c.AdapterBudget <= 0 {
		c.AdapterBudget = 50
	}
	if c.GroupMinSim <= 0 {
		c.GroupMinSim = 0.6
	}
}

// Policy is C10's driver.
type Policy struct {
	cfg   Config
	store Store
	sink  Sink
}

// NewPolicy builds a Policy.
func NewPolicy(cfg Config, store Store, sink Sink) *Policy {
	cfg.setDefaults()
	return &Policy{cfg: cfg, store: store, sink: sink}
}

// CycleResult summarizes one promotion+demotion pass.
type CycleResult struct {
	Promoted int
	Demoted  int
	Skipped  int // eligible but dropped by the adapter budget or variant grouping
}

// meetsThresholds reports whether i currently satisfies every promotion
// gate, independent of whether it has already been promoted. Reliability
// is the decayed effective value (cogstore.EffectiveReliability), not the
// raw validated/contradicted ratio — a promoted insight whose evidence has
// aged out should fall back below threshold even with no new
// contradictions, which raw reliability alone would miss.
func (p *Policy) meetsThresholds(i *types.Insight, now time.Time) bool {
	return cogstore.EffectiveReliability(i, now) >= p.cfg.ReliabilityMin &&
		i.TimesValidated >= p.cfg.ValidationsMin &&
		i.Confidence >= p.cfg.ConfidenceMin &&
		now.Sub(i.CreatedAt) >= p.cfg.MinAge
}

// selectForPromotion runs §4.10's eligibility scan, variant dedup, and
// adapter-budget cap without writing anything, so both RunCycle and the
// `promote-dry-run` CLI preview see identical selection behavior.
func (p *Policy) selectForPromotion(now time.Time) (grouped []*types.Insight, skipped int) {
	var candidates []*types.Insight
	for _, i := range p.store.All() {
		if i.Promoted {
			continue
		}
		if p.meetsThresholds(i, now) {
			candidates = append(candidates, i)
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		return cogstore.EffectiveReliability(candidates[a], now) > cogstore.EffectiveReliability(candidates[b], now)
	})

	grouped = dedupeVariants(candidates, p.cfg.GroupMinSim)
	skipped = len(candidates) - len(grouped)

	if len(grouped) > p.cfg.AdapterBudget {
		skipped += len(grouped) - p.cfg.AdapterBudget
		grouped = grouped[:p.cfg.AdapterBudget]
	}
	return grouped, skipped
}

// Preview reports which insights RunCycle would promote right now,
// without writing to the sink or marking anything promoted in C3. Used
// by the `promote-dry-run` CLI command.
func (p *Policy) Preview() (grouped []*types.Insight, skipped int) {
	return p.selectForPromotion(time.Now())
}

// RunCycle selects, budgets, and writes newly-eligible insights, then
// scans the sink for demotions.
func (p *Policy) RunCycle(ctx context.Context) (*CycleResult, error) {
	now := time.Now()
	result := &CycleResult{}

	grouped, skipped := p.selectForPromotion(now)
	result.Skipped = skipped

	for _, i := range grouped {
		doc := Document{
			ID:          types.ContentHash(i.Key, now.Format(time.RFC3339Nano)),
			InsightKey:  i.Key,
			Text:        i.Text,
			Category:    i.Category,
			Reliability: cogstore.EffectiveReliability(i, now),
			PromotedAt:  now,
		}
		if err := p.sink.Write(ctx, doc); err != nil {
			continue
		}
		if err := p.store.MarkPromoted(i.Key, doc.ID); err != nil {
			continue
		}
		result.Promoted++
	}

	demoted, err := p.runDemotion(ctx, now)
	if err != nil {
		return result, err
	}
	result.Demoted = demoted
	return result, nil
}

// runDemotion removes sink entries whose backing insight no longer meets
// threshold, marking the insight unpromoted in C3.
func (p *Policy) runDemotion(ctx context.Context, now time.Time) (int, error) {
	docs, err := p.sink.List(ctx)
	if err != nil {
		return 0, err
	}

	demoted := 0
	for _, doc := range docs {
		insight, ok := p.store.Get(doc.InsightKey)
		if !ok || p.meetsThresholds(insight, now) {
			continue
		}
		if err := p.sink.Remove(ctx, doc.ID); err != nil {
			continue
		}
		if err := p.store.MarkDemoted(doc.InsightKey); err != nil {
			continue
		}
		demoted++
	}
	return demoted, nil
}
