package cogstore

import (
	"strings"
	"time"

	"unified-thinking/internal/types"
)

// ResolveConflicts groups the given keys by topic (normalized first-6
// non-stopword tokens of their text) and, within each group with more
// than one member, keeps only the best-scoring insight — effective
// reliability + recency + validations — deleting the rest (§4.3).
// Returns the keys that were removed.
func (s *Store) ResolveConflicts(keys []string) ([]string, error) {
	now := time.Now()

	s.mu.Lock()
	groups := map[string][]string{}
	for _, k := range keys {
		insight, ok := s.insights[k]
		if !ok {
			continue
		}
		topic := topicKey(insight.Text)
		groups[topic] = append(groups[topic], k)
	}

	var removed []string
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		best := members[0]
		bestScore := conflictScore(s.insights[best], now)
		for _, k := range members[1:] {
			score := conflictScore(s.insights[k], now)
			if score > bestScore {
				best, bestScore = k, score
			}
		}
		for _, k := range members {
			if k != best {
				delete(s.insights, k)
				removed = append(removed, k)
			}
		}
	}

	var err error
	if len(removed) > 0 {
		err = s.persistLocked()
	}
	s.mu.Unlock()

	return removed, err
}

func conflictScore(i *types.Insight, now time.Time) float64 {
	recency := 1.0 / (1.0 + now.Sub(i.CreatedAt).Hours()/24)
	return EffectiveReliability(i, now) + 0.2*recency + 0.05*float64(i.TimesValidated)
}

// topicKey normalizes the first six non-stopword tokens of text, used to
// group near-duplicate insights discussing the same topic.
func topicKey(text string) string {
	tokens := meaningfulTokens(text)
	if len(tokens) > 6 {
		tokens = tokens[:6]
	}
	return strings.Join(tokens, "-")
}
