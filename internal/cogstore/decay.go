package cogstore

import (
	"math"
	"time"

	"unified-thinking/internal/types"
)

// EffectiveReliability applies exponential decay to an insight's raw
// reliability: reliability * 2^(-age_days/half_life(category)) (§4.3).
func EffectiveReliability(i *types.Insight, now time.Time) float64 {
	age := now.Sub(i.CreatedAt).Hours() / 24
	if age < 0 {
		age = 0
	}
	halfLife := i.Category.HalfLifeDays()
	if halfLife <= 0 {
		halfLife = 60
	}
	decay := math.Pow(2, -age/halfLife)
	return i.Reliability() * decay
}

// PruneStale removes insights older than maxAge whose effective
// reliability has fallen below minEff (§4.3). Returns the removed keys.
func (s *Store) PruneStale(maxAge time.Duration, minEff float64) ([]string, error) {
	now := time.Now()

	s.mu.Lock()
	var removed []string
	for key, insight := range s.insights {
		age := now.Sub(insight.CreatedAt)
		if age < maxAge {
			continue
		}
		if EffectiveReliability(insight, now) >= minEff {
			continue
		}
		delete(s.insights, key)
		removed = append(removed, key)
	}
	var err error
	if len(removed) > 0 {
		err = s.persistLocked()
	}
	s.mu.Unlock()

	return removed, err
}
