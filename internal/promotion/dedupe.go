package promotion

import (
	"strings"

	"unified-thinking/internal/types"
)

// dedupeVariants keeps only the first (highest-reliability, since
// candidates arrive pre-sorted) insight of each near-duplicate cluster,
// implementing §4.10's "grouped to avoid low-value variants": a worse
// phrasing of an already-selected insight shouldn't also consume budget.
func dedupeVariants(candidates []*types.Insight, minSim float64) []*types.Insight {
	var kept []*types.Insight
	var keptTokens []map[string]bool

	for _, c := range candidates {
		tokens := tokenSet(c.Text)
		isVariant := false
		for _, kt := range keptTokens {
			if jaccard(tokens, kt) >= minSim {
				isVariant = true
				break
			}
		}
		if isVariant {
			continue
		}
		kept = append(kept, c)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "it": true,
	"this": true, "that": true, "with": true, "as": true, "be": true, "at": true,
}

func tokenSet(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
