package predictloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/types"
)

type fakeStore struct {
	insights  map[string]*types.Insight
	exposures []*types.Exposure
	outcomes  []struct {
		key      string
		good     bool
		evidence string
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{insights: map[string]*types.Insight{}}
}

func (f *fakeStore) Get(key string) (*types.Insight, bool) {
	i, ok := f.insights[key]
	return i, ok
}

func (f *fakeStore) ApplyOutcome(key string, good bool, evidence string) error {
	f.outcomes = append(f.outcomes, struct {
		key      string
		good     bool
		evidence string
	}{key, good, evidence})
	if i, ok := f.insights[key]; ok {
		if good {
			i.TimesValidated++
		} else {
			i.TimesContradicted++
		}
	}
	return nil
}

func (f *fakeStore) Exposures(since time.Time) []*types.Exposure {
	var out []*types.Exposure
	for _, e := range f.exposures {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

type fakeEvents struct {
	events []*types.Event
}

func (f *fakeEvents) Read(limit, offset int) ([]*types.Event, error) {
	if offset >= len(f.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return f.events[offset:end], nil
}

type fakeAha struct {
	calls []string
}

func (f *fakeAha) Surprise(ctx context.Context, insightKey, reason string) error {
	f.calls = append(f.calls, insightKey)
	return nil
}

func TestDerivePolarityDetectsNegation(t *testing.T) {
	assert.Equal(t, types.PolarityNegative, derivePolarity("never use eval on user input"))
	assert.Equal(t, types.PolarityPositive, derivePolarity("always validate user input"))
}

func TestDerivePredictionTypeClassifiesFailurePattern(t *testing.T) {
	got := derivePredictionType(types.CategoryReasoning, "the agent struggles with large diffs")
	assert.Equal(t, types.PredictionFailurePattern, got)
}

func TestDerivePredictionTypeClassifiesPreferenceByCategory(t *testing.T) {
	got := derivePredictionType(types.CategoryCommunication, "prefers concise responses")
	assert.Equal(t, types.PredictionPreference, got)
}

func TestBuildPredictionsRespectsPerSourceBudget(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	for i := 0; i < 5; i++ {
		key := "k" + string(rune('a'+i))
		store.insights[key] = &types.Insight{Key: key, Text: "always validate user input before using it", Category: types.CategoryWisdom}
		store.exposures = append(store.exposures, &types.Exposure{Timestamp: now, Source: "same-source", InsightKey: key})
	}
	built := BuildPredictions(store.exposures, store, func(string) bool { return false }, 2, now)
	assert.Len(t, built, 2, "expected budget-capped predictions")
}

func TestBuildPredictionsSkipsInsightsWithOpenPrediction(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.insights["k1"] = &types.Insight{Key: "k1", Text: "always validate input", Category: types.CategoryWisdom}
	store.exposures = []*types.Exposure{{Timestamp: now, Source: "s", InsightKey: "k1"}}
	built := BuildPredictions(store.exposures, store, func(string) bool { return true }, 10, now)
	assert.Len(t, built, 0, "expected no predictions when an open prediction already exists")
}

func TestExtractOutcomesClassifiesUserPromptPolarity(t *testing.T) {
	events := []*types.Event{
		{Kind: types.EventUserPrompt, TraceID: "t1", Payload: map[string]interface{}{"prompt": "ship it, looks good"}},
		{Kind: types.EventUserPrompt, TraceID: "t2", Payload: map[string]interface{}{"prompt": "this is broken, please fix"}},
		{Kind: types.EventUserPrompt, TraceID: "t3", Payload: map[string]interface{}{"prompt": "what time is it"}},
	}
	out := ExtractOutcomes(events)
	require.Len(t, out, 2, "neutral prompt excluded")
	assert.Equal(t, types.PolarityPositive, out[0].Polarity)
	assert.Equal(t, types.PolarityNegative, out[1].Polarity)
}

func TestExtractOutcomesEmitsNegativeForToolFailure(t *testing.T) {
	events := []*types.Event{
		{Kind: types.EventPostToolFailure, TraceID: "t1", ToolName: "Bash", Error: "permission denied"},
	}
	out := ExtractOutcomes(events)
	require.Len(t, out, 1)
	assert.Equal(t, types.PolarityNegative, out[0].Polarity)
	assert.Equal(t, "tool error: permission denied", out[0].Text)
}

func TestJaccardSimilarityScoresOverlap(t *testing.T) {
	s := JaccardSimilarity{}
	score := s.Score("always validate user input before use", "validate user input before using it")
	assert.Greater(t, score, 0.0, "expected nonzero overlap score")
	assert.LessOrEqual(t, s.Score("completely unrelated sentence here", "another distinct topic entirely"), 0.2, "expected low score for unrelated text")
}

func TestMatchWindowIsTypeAdaptive(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, matchWindow(types.PredictionPrinciple), "principle window should be 7 days")
	assert.Equal(t, 30*time.Minute, matchWindow(types.PredictionFailurePattern), "failure_pattern window should be 30 minutes")
}

func TestRunCycleMatchesPredictionToConfirmingOutcome(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.insights["k1"] = &types.Insight{Key: "k1", Text: "always validate user input before using it", Category: types.CategoryWisdom, TimesValidated: 5, TimesContradicted: 0}
	store.exposures = []*types.Exposure{{Timestamp: now, Source: "s", InsightKey: "k1"}}

	events := &fakeEvents{events: []*types.Event{
		{Kind: types.EventUserPrompt, TraceID: "t1", Timestamp: now, Payload: map[string]interface{}{"prompt": "ship it, always validate user input before using it, perfect"}},
	}}

	predictions := NewPredictionSet()
	loop := NewLoop(Config{}, store, events, nil, nil, predictions)

	result, err := loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PredictionsBuilt)
	assert.Equal(t, 1, result.OutcomesExtracted)
	assert.Equal(t, 1, result.Matched)
	if assert.Len(t, store.outcomes, 1) {
		assert.True(t, store.outcomes[0].good)
	}
}

func TestRunCycleEmitsSurpriseOnContradictedHighReliabilityInsight(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.insights["k1"] = &types.Insight{Key: "k1", Text: "always use eval for dynamic config", Category: types.CategoryWisdom, TimesValidated: 8, TimesContradicted: 0}
	store.exposures = []*types.Exposure{{Timestamp: now, Source: "s", InsightKey: "k1"}}

	events := &fakeEvents{events: []*types.Event{
		{Kind: types.EventUserPrompt, TraceID: "t1", Timestamp: now, Payload: map[string]interface{}{
			"prompt":          "that's wrong, this is broken, please fix the eval usage",
			"linked_insights": []string{"k1"},
		}},
	}}

	aha := &fakeAha{}
	predictions := NewPredictionSet()
	loop := NewLoop(Config{}, store, events, aha, nil, predictions)

	result, err := loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Len(t, aha.calls, 1)
}

func TestHardLinkBypassesSimilarityAndWindow(t *testing.T) {
	predictions := NewPredictionSet()
	now := time.Now()
	p := &types.Prediction{PredictionID: "p1", InsightKey: "k1", Text: "completely unrelated text", ExpectedPolarity: types.PolarityPositive, Type: types.PredictionFailurePattern, CreatedAt: now}
	predictions.AddPrediction(p)
	o := &types.Outcome{OutcomeID: "o1", Text: "nothing in common lexically", Polarity: types.PolarityPositive, CreatedAt: now.Add(-time.Hour), LinkedInsights: []string{"k1"}}
	predictions.AddOutcome(o)

	store := newFakeStore()
	store.insights["k1"] = &types.Insight{Key: "k1", Text: "completely unrelated text"}
	loop := NewLoop(Config{}, store, &fakeEvents{}, nil, nil, predictions)

	matched, _ := loop.match(context.Background(), now)
	assert.Equal(t, 1, matched, "expected match via hard link despite low similarity and stale timestamp")
}
