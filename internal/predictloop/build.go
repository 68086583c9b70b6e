package predictloop

import (
	"strings"
	"time"

	"unified-thinking/internal/types"
)

// negationMarkers flip a prediction's expected polarity to negative
// (§4.8 build phase).
var negationMarkers = []string{
	"never", "don't", "doesn't", "won't", "shouldn't", "avoid", "stop",
	"not ", "no longer", "can't", "cannot", "fails to",
}

func derivePolarity(text string) types.Polarity {
	lower := strings.ToLower(text)
	for _, m := range negationMarkers {
		if strings.Contains(lower, m) {
			return types.PolarityNegative
		}
	}
	return types.PolarityPositive
}

func derivePredictionType(category types.Category, text string) types.PredictionType {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "struggle", "fails", "error", "failure"):
		return types.PredictionFailurePattern
	case containsAny(lower, "sequence", "pattern", "workflow"):
		return types.PredictionWorkflow
	case category == types.CategoryCommunication || category == types.CategoryUserUnderstanding:
		return types.PredictionPreference
	case category == types.CategoryWisdom:
		return types.PredictionPrinciple
	default:
		return types.PredictionGeneral
	}
}

func containsAny(text string, substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// BuildPredictions derives one prediction per exposure that lacks an open
// prediction for its insight, subject to a per-source budget (§4.8 build
// phase). Exposures are processed in order so the budget favors earlier
// (older) exposures within the retention window.
func BuildPredictions(exposures []*types.Exposure, store InsightSource, hasOpen func(insightKey string) bool, perSourceBudget int, now time.Time) []*types.Prediction {
	used := map[string]int{}
	var out []*types.Prediction
	for _, exp := range exposures {
		if hasOpen(exp.InsightKey) {
			continue
		}
		if used[exp.Source] >= perSourceBudget {
			continue
		}
		insight, ok := store.Get(exp.InsightKey)
		if !ok {
			continue
		}

		predType := derivePredictionType(insight.Category, insight.Text)
		p := &types.Prediction{
			PredictionID:     types.ContentHash(exp.InsightKey, exp.Source, exp.Timestamp.Format(time.RFC3339Nano)),
			InsightKey:       exp.InsightKey,
			Text:             insight.Text,
			ExpectedPolarity: derivePolarity(insight.Text),
			Type:             predType,
			CreatedAt:        now,
			ExpiresAt:        now.Add(matchWindow(predType)),
			Source:           exp.Source,
			Namespace:        types.NamespaceProd,
		}
		out = append(out, p)
		used[exp.Source]++
	}
	return out
}
