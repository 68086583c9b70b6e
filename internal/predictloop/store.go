package predictloop

import (
	"sync"
	"time"

	"unified-thinking/internal/types"
)

// PredictionSet is the in-memory state C8 reconciles each cycle:
// predictions awaiting an outcome and outcomes awaiting a match. It has no
// independent persistence of its own; the bridge driver snapshots it
// alongside the cognitive store's own save cadence, since predictions are
// disposable working state, not durable records (only the apply_outcome
// side effects on C3's insights need to survive a restart).
type PredictionSet struct {
	mu sync.Mutex

	predictions map[string]*types.Prediction // by PredictionID
	outcomes    map[string]*types.Outcome    // by OutcomeID
	consumed    map[string]bool              // outcome IDs already matched to a prediction
}

// NewPredictionSet returns an empty set.
func NewPredictionSet() *PredictionSet {
	return &PredictionSet{
		predictions: make(map[string]*types.Prediction),
		outcomes:    make(map[string]*types.Outcome),
		consumed:    make(map[string]bool),
	}
}

// AddPrediction registers a newly built prediction.
func (s *PredictionSet) AddPrediction(p *types.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions[p.PredictionID] = p
}

// AddOutcome registers a newly extracted outcome.
func (s *PredictionSet) AddOutcome(o *types.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[o.OutcomeID] = o
}

// HasOpenPrediction reports whether insightKey already has a prediction
// awaiting an outcome, used by the build phase to avoid duplicate
// predictions for the same exposure (§4.8 build phase).
func (s *PredictionSet) HasOpenPrediction(insightKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.predictions {
		if p.InsightKey == insightKey && p.OutcomeID == "" {
			return true
		}
	}
	return false
}

// OpenPredictions returns all predictions still awaiting an outcome.
func (s *PredictionSet) OpenPredictions() []*types.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Prediction, 0, len(s.predictions))
	for _, p := range s.predictions {
		if p.OutcomeID == "" {
			out = append(out, p)
		}
	}
	return out
}

// AllPredictions returns every tracked prediction, resolved or not, for
// callers computing linkage statistics across the whole working set (C11's
// outcome linkage ratio) rather than just what's still open.
func (s *PredictionSet) AllPredictions() []*types.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Prediction, 0, len(s.predictions))
	for _, p := range s.predictions {
		out = append(out, p)
	}
	return out
}

// RecentOutcomes returns outcomes created within the last window.
func (s *PredictionSet) RecentOutcomes(window time.Duration) []*types.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-window)
	out := make([]*types.Outcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		if o.CreatedAt.After(cutoff) {
			out = append(out, o)
		}
	}
	return out
}

// ResolvePrediction marks prediction as matched to outcomeID.
func (s *PredictionSet) ResolvePrediction(predictionID, outcomeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.predictions[predictionID]; ok {
		p.OutcomeID = outcomeID
	}
	s.consumed[outcomeID] = true
}

func (s *PredictionSet) outcomeConsumed(outcomeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed[outcomeID]
}

// Prune drops resolved predictions and outcomes older than maxAge, keeping
// the working set bounded across a long-running process.
func (s *PredictionSet) Prune(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	for id, p := range s.predictions {
		if p.OutcomeID != "" && p.CreatedAt.Before(cutoff) {
			delete(s.predictions, id)
		}
	}
	for id, o := range s.outcomes {
		if s.consumed[id] && o.CreatedAt.Before(cutoff) {
			delete(s.outcomes, id)
			delete(s.consumed, id)
		}
	}
}
