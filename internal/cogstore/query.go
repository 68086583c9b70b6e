package cogstore

import (
	"sort"
	"strings"
	"time"

	"unified-thinking/internal/types"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"that": true, "this": true, "it": true, "as": true, "at": true, "by": true,
	"from": true, "has": true, "have": true, "had": true, "not": true,
}

// scoredInsight pairs an insight with its ranking score for one query.
type scoredInsight struct {
	insight *types.Insight
	score   float64
}

// GetInsightsForContext ranks stored insights by lexical overlap against
// query, requiring at least two meaningful (stemmed, stop-worded) word
// overlaps unless the insight's effective reliability is >= 0.8 (§4.3).
func (s *Store) GetInsightsForContext(query string, limit int) []*types.Insight {
	queryTokens := meaningfulTokens(query)
	if len(queryTokens) == 0 {
		return nil
	}
	queryStems := stemAll(queryTokens)

	now := time.Now()
	s.mu.RLock()
	var scored []scoredInsight
	for _, insight := range s.insights {
		text := insight.Context + " " + insight.Text
		candidateStems := stemAll(meaningfulTokens(text))
		overlap := countOverlap(queryStems, candidateStems)

		eff := EffectiveReliability(insight, now)
		if overlap < 2 && eff < 0.8 {
			continue
		}
		score := float64(overlap) + eff
		scored = append(scored, scoredInsight{insight: copyInsight(insight), score: score})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]*types.Insight, len(scored))
	for i, si := range scored {
		out[i] = si.insight
	}
	return out
}

func meaningfulTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// stem is a minimal suffix-stripping stemmer, sufficient for overlap
// counting (not linguistically complete — no pack dependency offers a
// stemmer, and spec.md only requires "stemmed" matching for dedup
// purposes, not canonical stems).
func stem(word string) string {
	for _, suffix := range []string{"ing", "edly", "ed", "ly", "es", "s"} {
		if strings.HasSuffix(word, suffix) && len(word) > len(suffix)+2 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

func stemAll(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[stem(w)] = true
	}
	return out
}

func countOverlap(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}
