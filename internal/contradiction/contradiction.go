// Package contradiction implements the Contradiction & Decay Manager (C9,
// §4.9): detecting when a new candidate text is in tension with an
// existing insight, classifying why, and deciding how to resolve it.
// Decay math lives in internal/cogstore since C3 exclusively owns the
// Insight record (§3); this package owns only detection and resolution.
package contradiction

import (
	"context"
	"time"

	"unified-thinking/internal/types"
)

// Store is the slice of C3 the checker reads candidates from and, for an
// "update" resolution, writes the contradiction evidence back through.
type Store interface {
	All() []*types.Insight
	ApplyOutcome(key string, good bool, evidence string) error
}

// Config bounds the checker's behavior.
type Config struct {
	MinSimilarity float64 // candidate floor before lexical opposition is even checked
}

func (c *Config) setDefaults() {
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.3
	}
}

// Checker is C9's driver.
type Checker struct {
	cfg     Config
	store   Store
	similar Similarity
	log     *RecordWriter
}

// NewChecker builds a Checker. log may be nil to disable persistence
// (detection still runs, just without a durable record).
func NewChecker(cfg Config, store Store, similar Similarity, log *RecordWriter) *Checker {
	cfg.setDefaults()
	if similar == nil {
		similar = JaccardSimilarity{}
	}
	return &Checker{cfg: cfg, store: store, similar: similar, log: log}
}

// Check runs check_contradiction(new_text) against every stored insight in
// the same category (§4.9's "topic-extracted text" narrowed to category,
// since C9 has no separate topic extractor of its own). It returns nil if
// no contradiction is found. newConfidence is the candidate's proposed
// confidence, used to arbitrate a Direct contradiction.
func (c *Checker) Check(ctx context.Context, newText string, category types.Category, newConfidence float64) (*types.Contradiction, error) {
	var bestOld *types.Insight
	var bestScore float64

	for _, old := range c.store.All() {
		if old.Category != category {
			continue
		}
		score := c.similar.Score(newText, old.Text)
		if score < c.cfg.MinSimilarity {
			continue
		}
		if !detectLexicalOpposition(newText, old.Text) {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestOld = old
		}
	}

	if bestOld == nil {
		return nil, nil
	}

	ctype := classify(newText, bestOld.Text)
	action := decideAction(ctype, bestOld.Reliability(), newConfidence)

	record := &types.Contradiction{
		ID:         types.ContentHash(bestOld.Key, newText, string(ctype)),
		OldKey:     bestOld.Key,
		NewText:    newText,
		Type:       ctype,
		Action:     action,
		DetectedAt: time.Now(),
	}

	if action == types.ActionUpdate {
		if err := c.store.ApplyOutcome(bestOld.Key, false, "contradicted by: "+newText); err != nil {
			return record, err
		}
	}

	if c.log != nil {
		if err := c.log.Write(record); err != nil {
			return record, err
		}
	}

	return record, nil
}
