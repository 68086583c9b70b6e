// Package cogstore implements the Cognitive Store (C3, spec §4.3): a
// keyed map of Insight records persisted as a single JSON document with
// an exclusive lock, temp-file replace, and best-effort merge against
// concurrent writers. It follows the teacher's MemoryStorage discipline
// (internal/storage/memory.go): RWMutex-guarded, every getter returns a
// deep copy so callers can never mutate live state.
package cogstore

import (
	"fmt"
	"log"
	"sync"
	"time"

	"unified-thinking/internal/lock"
	"unified-thinking/internal/types"
)

// NoiseFilter reports whether text should be rejected as noise. C3 takes
// this as an injectable dependency (rather than importing
// internal/qualitygate directly) to avoid a C3<->C5 import cycle, since
// C5's duplicate detector in turn consults C3.
type NoiseFilter func(text string) bool

func permissiveFilter(string) bool { return false }

// Store is the Cognitive Store: an in-memory map backed by an atomically
// rewritten JSON document on disk.
type Store struct {
	mu          sync.RWMutex
	path        string
	lockPath    string
	insights    map[string]*types.Insight
	exposures   []*types.Exposure
	noiseFilter NoiseFilter

	batching  bool
	batchDiff map[string]*types.Insight

	// diskKeys holds the keys of the document as this store last loaded
	// or saved it, so persistLocked can tell a concurrent writer's new
	// key from one this store has since deleted.
	diskKeys map[string]bool
}

// Option configures a Store.
type Option func(*Store)

// WithNoiseFilter injects C5's noise predicate.
func WithNoiseFilter(f NoiseFilter) Option {
	return func(s *Store) { s.noiseFilter = f }
}

// Open loads (or creates) the cognitive store document at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		lockPath:    path + ".lock",
		insights:    make(map[string]*types.Insight),
		noiseFilter: permissiveFilter,
	}
	for _, opt := range opts {
		opt(s)
	}
	doc, err := loadDocument(path)
	if err != nil {
		// Corrupt store: start empty and let the caller know via logging;
		// never fail the store open (§7 "C3 writes never raise past their
		// caller; corruption on load ... start with an empty store").
		log.Printf("[cogstore] %s unreadable, starting with an empty store: %v", path, err)
		doc = &document{Insights: map[string]*types.Insight{}}
	}
	s.insights = doc.Insights
	s.exposures = doc.Exposures
	s.diskKeys = make(map[string]bool, len(s.insights))
	for k := range s.insights {
		s.diskKeys[k] = true
	}
	return s, nil
}

// AddInsight inserts candidate, merging into an existing key when one is
// present (§4.3). Returns false if the noise filter rejects the text.
func (s *Store) AddInsight(candidate *types.Insight) (bool, error) {
	if s.noiseFilter(candidate.Text) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate.Key == "" {
		candidate.Key = types.InsightKey(candidate.Category, candidate.Text)
	}
	if candidate.ActionDomain == "" {
		candidate.ActionDomain = inferActionDomain(candidate.Text, candidate.Category)
	}

	existing, ok := s.insights[candidate.Key]
	if ok {
		mergeInsight(existing, candidate)
	} else {
		if candidate.CreatedAt.IsZero() {
			candidate.CreatedAt = time.Now()
		}
		s.insights[candidate.Key] = candidate
	}

	exposure := &types.Exposure{
		Timestamp:  time.Now(),
		Source:     candidate.Source,
		InsightKey: candidate.Key,
	}
	s.exposures = append(s.exposures, exposure)

	if s.batching {
		s.batchDiff[candidate.Key] = s.insights[candidate.Key]
		return true, nil
	}
	return true, s.persistLocked()
}

// mergeInsight folds candidate into existing: max-of-max confidence,
// accumulated validations, unioned evidence rings, refreshed emotion
// snapshot (§4.3).
func mergeInsight(existing, candidate *types.Insight) {
	if candidate.Confidence > existing.Confidence {
		existing.Confidence = candidate.Confidence
	}
	existing.TimesValidated += candidate.TimesValidated
	existing.TimesContradicted += candidate.TimesContradicted
	existing.Evidence = types.RingUnion(existing.Evidence, candidate.Evidence, types.MaxEvidenceRing)
	existing.CounterExamples = types.RingUnion(existing.CounterExamples, candidate.CounterExamples, types.MaxCounterExampleRing)
	if len(candidate.EmotionState) > 0 {
		existing.EmotionState = candidate.EmotionState
	}
	if candidate.Context != "" {
		existing.Context = candidate.Context
	}
}

// inferActionDomain is a small heuristic fallback used when a candidate
// arrives without one already set.
func inferActionDomain(text string, cat types.Category) types.ActionDomain {
	switch cat {
	case types.CategoryCommunication, types.CategoryUserUnderstanding:
		return types.DomainUserContext
	case types.CategoryReasoning, types.CategoryMetaLearning:
		return types.DomainSystem
	default:
		return types.DomainCode
	}
}

// ApplyOutcome updates validated/contradicted counters and adjusts
// confidence (§4.3): good -> c + (1-c)*0.25, bad -> max(0.1, 0.85*c).
func (s *Store) ApplyOutcome(key string, good bool, evidence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	insight, ok := s.insights[key]
	if !ok {
		return fmt.Errorf("cogstore: unknown insight key %q", key)
	}

	now := time.Now()
	insight.LastValidatedAt = &now
	if good {
		insight.TimesValidated++
		insight.Confidence = insight.Confidence + (1-insight.Confidence)*0.25
		if evidence != "" {
			insight.Evidence = types.RingAppend(insight.Evidence, evidence, types.MaxEvidenceRing)
		}
	} else {
		insight.TimesContradicted++
		insight.Confidence = max(0.1, 0.85*insight.Confidence)
		if evidence != "" {
			insight.CounterExamples = types.RingAppend(insight.CounterExamples, evidence, types.MaxCounterExampleRing)
		}
	}

	if s.batching {
		s.batchDiff[key] = insight
		return nil
	}
	return s.persistLocked()
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Get returns a deep copy of the insight at key, or ok=false.
func (s *Store) Get(key string) (*types.Insight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.insights[key]
	if !ok {
		return nil, false
	}
	return copyInsight(i), true
}

// All returns deep copies of every stored insight.
func (s *Store) All() []*types.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Insight, 0, len(s.insights))
	for _, i := range s.insights {
		out = append(out, copyInsight(i))
	}
	return out
}

// Exposures returns the exposures recorded since the given time, oldest
// first. Used by the prediction loop's build phase (§4.8) to find
// exposures still lacking a prediction.
func (s *Store) Exposures(since time.Time) []*types.Exposure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Exposure, 0, len(s.exposures))
	for _, e := range s.exposures {
		if !e.Timestamp.Before(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// Len returns the number of stored insights.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.insights)
}

// Delete removes the insight at key, used by promotion demotion and
// conflict resolution.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.insights, key)
	if s.batching {
		return nil
	}
	return s.persistLocked()
}

// MarkPromoted flags an insight as promoted to an external sink (C10).
func (s *Store) MarkPromoted(key, promotedTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.insights[key]
	if !ok {
		return fmt.Errorf("cogstore: unknown insight key %q", key)
	}
	i.Promoted = true
	i.PromotedTo = promotedTo
	if s.batching {
		s.batchDiff[key] = i
		return nil
	}
	return s.persistLocked()
}

// MarkDemoted clears the promoted flag.
func (s *Store) MarkDemoted(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.insights[key]
	if !ok {
		return fmt.Errorf("cogstore: unknown insight key %q", key)
	}
	i.Promoted = false
	i.PromotedTo = ""
	if s.batching {
		s.batchDiff[key] = i
		return nil
	}
	return s.persistLocked()
}

func copyInsight(i *types.Insight) *types.Insight {
	cp := *i
	cp.Evidence = append([]string{}, i.Evidence...)
	cp.CounterExamples = append([]string{}, i.CounterExamples...)
	if i.EmotionState != nil {
		cp.EmotionState = make(map[string]interface{}, len(i.EmotionState))
		for k, v := range i.EmotionState {
			cp.EmotionState[k] = v
		}
	}
	if i.LastValidatedAt != nil {
		t := *i.LastValidatedAt
		cp.LastValidatedAt = &t
	}
	if i.AdvisoryQuality != nil {
		q := *i.AdvisoryQuality
		cp.AdvisoryQuality = &q
	}
	return &cp
}

// persistLocked writes the document to disk under the store's lock file.
// Caller must already hold s.mu.
func (s *Store) persistLocked() error {
	g, err := lock.Acquire(s.lockPath, 200*time.Millisecond, 60*time.Second)
	if err != nil {
		return fmt.Errorf("cogstore: acquire lock: %w", err)
	}
	defer g.Release()

	// Best-effort merge: re-read disk state and fold in anything a
	// concurrent writer committed that we don't already have, before
	// writing our own view back (§4.3 "load disk -> merge with
	// in-memory -> write"). Keys this store deleted since its last load
	// or save are not brought back.
	onDisk, err := loadDocument(s.path)
	if err == nil {
		for k, v := range onDisk.Insights {
			if _, ours := s.insights[k]; !ours && !s.diskKeys[k] {
				s.insights[k] = v
			}
		}
	}

	doc := &document{Insights: s.insights, Exposures: s.exposures}
	if err := saveDocument(s.path, doc); err != nil {
		return err
	}
	s.diskKeys = make(map[string]bool, len(s.insights))
	for k := range s.insights {
		s.diskKeys[k] = true
	}
	return nil
}

// BeginBatch suppresses per-call fsync; writes accumulate until Flush or
// EndBatch (§4.3 "begin_batch / flush / end_batch").
func (s *Store) BeginBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batching = true
	s.batchDiff = map[string]*types.Insight{}
}

// Flush persists the accumulated batch without ending batching mode.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.batching {
		return nil
	}
	return s.persistLocked()
}

// EndBatch flushes any remaining writes and disables batching mode.
func (s *Store) EndBatch() error {
	s.mu.Lock()
	s.batching = false
	defer func() { s.batchDiff = nil }()
	defer s.mu.Unlock()
	return s.persistLocked()
}
