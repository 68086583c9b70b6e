package contradiction

import (
	"strings"

	"unified-thinking/internal/types"
)

// opposedPairs are the paired vocabularies spec §4.9 names directly.
// Opposition is symmetric: either side may carry either member of a pair.
var opposedPairs = [][2]string{
	{"prefer", "avoid"},
	{"like", "hate"},
	{"always", "never"},
	{"should", "should not"},
	{"must", "must not"},
	{"safe", "unsafe"},
	{"recommended", "discouraged"},
}

// negationMarkers flag asymmetric negation: one side states a claim plainly,
// the other negates essentially the same claim. A second, independent copy
// from predictloop's list — the two packages evolve separately, same
// reasoning already applied between C3/C8 and C4's own fusion weighting.
var negationMarkers = []string{
	"never", "don't", "doesn't", "won't", "shouldn't", "not ", "no longer", "can't", "cannot",
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func isNegated(text string) bool {
	return containsAny(text, negationMarkers)
}

// detectLexicalOpposition reports whether a and b are in direct lexical
// tension: either an opposed-pair hit (one side carries each member) or
// one side is negated while the other is not, over text already known to
// be topically similar (§4.9).
func detectLexicalOpposition(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)

	for _, pair := range opposedPairs {
		aHasFirst, aHasSecond := strings.Contains(la, pair[0]), strings.Contains(la, pair[1])
		bHasFirst, bHasSecond := strings.Contains(lb, pair[0]), strings.Contains(lb, pair[1])
		if (aHasFirst && bHasSecond) || (aHasSecond && bHasFirst) {
			return true
		}
	}

	return isNegated(la) != isNegated(lb)
}

// classify assigns the §4.9 contradiction type from keyword rules checked
// against the new text (Temporal), either text (Contextual), or falls
// through to Direct/Uncertain based on how sharp the opposition is.
func classify(newText, oldText string) types.ContradictionType {
	lowerNew := strings.ToLower(newText)
	if containsAny(lowerNew, []string{"now", "currently", "recently", "changed", "updated"}) {
		return types.ContradictionTemporal
	}

	contextMarkers := []string{"when", "if", "during", "for ", "in case of", "sometimes"}
	if containsAny(lowerNew, contextMarkers) || containsAny(strings.ToLower(oldText), contextMarkers) {
		return types.ContradictionContextual
	}

	for _, pair := range opposedPairs {
		if strings.Contains(lowerNew, pair[0]) || strings.Contains(lowerNew, pair[1]) {
			return types.ContradictionDirect
		}
	}

	return types.ContradictionUncertain
}

// decideAction maps a classified contradiction to a resolution (§4.9).
// Temporal means the new text supersedes the old one outright. Contextual
// means both apply, just under different conditions. Direct arbitrates by
// which side is more reliable. Uncertain keeps both rather than guessing.
func decideAction(ctype types.ContradictionType, oldReliability, newConfidence float64) types.ContradictionAction {
	switch ctype {
	case types.ContradictionTemporal:
		return types.ActionUpdate
	case types.ContradictionContextual:
		return types.ActionContext
	case types.ContradictionDirect:
		if newConfidence > oldReliability {
			return types.ActionUpdate
		}
		return types.ActionDiscardNew
	default:
		return types.ActionKeepBoth
	}
}
