package predictloop

import (
	"math"
	"strings"
)

// Similarity scores two free-text strings in [0,1]. The match phase
// prefers an embedding-backed implementation when one is available,
// falling back to JaccardSimilarity otherwise (§4.8 match phase).
type Similarity interface {
	Score(a, b string) float64
}

// JaccardSimilarity is the stdlib fallback: token-set overlap, lowercased
// and stop-word-free, mirroring cogstore's context-matching approach
// (internal/cogstore/query.go) without sharing its unexported tokenizer —
// C3 and C8 are independently evolvable (same reasoning as §4.4 vs §4.3
// in internal/semindex/retrieval.go).
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

// EmbeddingSimilarity scores via cosine over an embeddings.Embedder. Kept
// generic over a func rather than importing internal/embeddings directly,
// so predictloop has no hard dependency on that package's availability.
type EmbeddingSimilarity struct {
	Embed func(text string) ([]float32, error)
}

func (e EmbeddingSimilarity) Score(a, b string) float64 {
	va, errA := e.Embed(a)
	vb, errB := e.Embed(b)
	if errA != nil || errB != nil || len(va) == 0 || len(vb) == 0 || len(va) != len(vb) {
		return JaccardSimilarity{}.Score(a, b)
	}
	return cosine(va, vb)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
