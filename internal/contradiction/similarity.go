package contradiction

import "strings"

// Similarity scores two free-text strings in [0,1]. A local interface
// rather than importing predictloop's: C8 and C9 are independently
// evolvable collaborators of C3, not layers of each other.
type Similarity interface {
	Score(a, b string) float64
}

// JaccardSimilarity is the stdlib fallback: stop-word-filtered token-set
// overlap (§4.9's "cosine/Jaccard" on topic-extracted text).
type JaccardSimilarity struct{}

func (JaccardSimilarity) Score(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for t := range ta {
		if tb[t] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
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
