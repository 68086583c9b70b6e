package predictloop

import (
	"fmt"
	"strings"

	"unified-thinking/internal/types"
)

// positiveVocab and negativeVocab are the fixed vocabularies used to
// classify UserPrompt polarity (§4.8 outcome phase).
var (
	positiveVocab = []string{"ship it", "perfect", "looks good", "lgtm", "great", "nice work", "exactly", "thanks", "works now"}
	negativeVocab = []string{"wrong", "fix", "broken", "doesn't work", "revert", "bug", "incorrect", "bad", "still failing"}
)

// promptTextKeys are the payload keys checked, in order, for a UserPrompt
// event's text content. No prior convention exists in this codebase for
// this key, so "prompt" is the primary key with "content"/"text" as
// fallbacks for producers that use a more generic payload shape.
var promptTextKeys = []string{"prompt", "content", "text"}

func promptText(e *types.Event) string {
	for _, k := range promptTextKeys {
		if v, ok := e.Payload[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func classifyPromptPolarity(text string) types.Polarity {
	lower := strings.ToLower(text)
	for _, v := range negativeVocab {
		if strings.Contains(lower, v) {
			return types.PolarityNegative
		}
	}
	for _, v := range positiveVocab {
		if strings.Contains(lower, v) {
			return types.PolarityPositive
		}
	}
	return types.PolarityNeutral
}

// linkedInsightsFromPayload reads an optional "linked_insights" payload
// key so outcomes can hard-link to specific predictions regardless of
// similarity (§4.8 match phase).
func linkedInsightsFromPayload(e *types.Event) []string {
	v, ok := e.Payload["linked_insights"]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ExtractOutcomes derives observed signals from a batch of events: polarity
// from UserPrompt text via fixed vocabularies, and an always-negative
// "tool error" outcome from PostToolFailure (§4.8 outcome phase). Neutral
// (unclassifiable) prompts produce no outcome — there is nothing for the
// match phase to reconcile against.
func ExtractOutcomes(events []*types.Event) []*types.Outcome {
	var out []*types.Outcome
	for _, e := range events {
		switch e.Kind {
		case types.EventUserPrompt:
			text := promptText(e)
			polarity := classifyPromptPolarity(text)
			if polarity == types.PolarityNeutral {
				continue
			}
			out = append(out, &types.Outcome{
				OutcomeID:      types.ContentHash(e.TraceID, string(e.Kind), text),
				EventType:      e.Kind,
				Text:           text,
				Polarity:       polarity,
				CreatedAt:      e.Timestamp,
				TraceID:        e.TraceID,
				LinkedInsights: linkedInsightsFromPayload(e),
			})
		case types.EventPostToolFailure:
			text := fmt.Sprintf("tool error: %s", e.Error)
			out = append(out, &types.Outcome{
				OutcomeID:      types.ContentHash(e.TraceID, string(e.Kind), text),
				EventType:      e.Kind,
				Tool:           e.ToolName,
				Text:           text,
				Polarity:       types.PolarityNegative,
				CreatedAt:      e.Timestamp,
				TraceID:        e.TraceID,
				LinkedInsights: linkedInsightsFromPayload(e),
			})
		}
	}
	return out
}
