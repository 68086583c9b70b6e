package qualitygate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/types"
)

type fakeAdvisory struct {
	result *AdvisoryResult
	err    error
}

func (f *fakeAdvisory) Assess(ctx context.Context, text, source string) (*AdvisoryResult, error) {
	return f.result, f.err
}

func TestRoastRejectsNoiseBeforeAdvisory(t *testing.T) {
	advisory := &fakeAdvisory{result: &AdvisoryResult{UnifiedScore: 0.9}}
	gate := NewGate(advisory, nil)

	verdict, err := gate.Roast(context.Background(), "## markdown noise", "test")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictPrimitive, verdict.Kind)
}

func TestRoastRejectsSuppressedAdvisory(t *testing.T) {
	advisory := &fakeAdvisory{result: &AdvisoryResult{Suppressed: true}}
	gate := NewGate(advisory, nil)

	verdict, err := gate.Roast(context.Background(), "always validate user input before using it anywhere", "test")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictPrimitive, verdict.Kind, "suppressed advisory should verdict Primitive")
}

func TestRoastReturnsQualityForCleanText(t *testing.T) {
	gate := NewGate(nil, nil)
	verdict, err := gate.Roast(context.Background(), "always validate user input before using it anywhere", "test")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictQuality, verdict.Kind)
	assert.True(t, verdict.IsPassable(), "Quality verdict should be passable")
}

func TestRoastWrapsAdvisoryErrorAsRoastException(t *testing.T) {
	advisory := &fakeAdvisory{err: errors.New("upstream timeout")}
	gate := NewGate(advisory, nil)

	_, err := gate.Roast(context.Background(), "always validate user input before using it anywhere", "test")
	require.Error(t, err, "Roast should surface the advisory error as a RoastException")
	var re *RoastException
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "advisory", re.Stage)
}

func TestRoastRejectsToolSequenceTelemetry(t *testing.T) {
	gate := NewGate(nil, nil)
	verdict, err := gate.Roast(context.Background(), "Read -> Edit -> Bash sequence worked well", "test")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictPrimitive, verdict.Kind, "tool-sequence telemetry should verdict Primitive")
}

func TestRoastDetectsDuplicateViaDetector(t *testing.T) {
	lister := &fakeInsightLister{insights: []*types.Insight{
		{Text: "always validate user input before using it anywhere"},
	}}
	detector := NewDuplicateDetector(lister, nil)
	gate := NewGate(nil, detector)

	verdict, err := gate.Roast(context.Background(), "always validate user input before using it anywhere please", "test")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictDuplicate, verdict.Kind)
}
