package qualitygate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoiseRejectsShortText(t *testing.T) {
	noisy, reason := IsNoise("too short")
	assert.True(t, noisy)
	assert.Equal(t, "too-short", reason)
}

func TestIsNoiseRejectsMarkdownHeader(t *testing.T) {
	noisy, reason := IsNoise("## This is a markdown header line")
	assert.True(t, noisy)
	assert.Equal(t, "markdown-header", reason)
}

func TestIsNoiseRejectsJSONBlob(t *testing.T) {
	noisy, _ := IsNoise(`{"tool": "Edit", "status": "ok", "duration_ms": 120}`)
	assert.True(t, noisy, "IsNoise should reject a JSON blob")
}

func TestIsNoiseRejectsToolTelemetry(t *testing.T) {
	noisy, reason := IsNoise("stdout: build succeeded with zero warnings reported")
	assert.True(t, noisy)
	assert.Equal(t, "tool-telemetry", reason)
}

func TestIsNoiseRejectsHTTPErrorCode(t *testing.T) {
	noisy, reason := IsNoise("request failed with status 503 after three retries")
	assert.True(t, noisy)
	assert.Equal(t, "http-error-code", reason)
}

func TestIsNoiseRejectsToolSequence(t *testing.T) {
	noisy, reason := IsNoise("Read -> Edit -> Bash sequence worked well")
	assert.True(t, noisy)
	assert.Equal(t, "tool-sequence", reason)
}

func TestIsNoisePassesCleanInsightText(t *testing.T) {
	noisy, reason := IsNoise("always validate user input before using it in a query")
	assert.False(t, noisy, "unexpected noise reason %q", reason)
}

func TestRefineStripsTranscriptPrefix(t *testing.T) {
	refined, changed := refine("Assistant: prefer composition over inheritance")
	assert.True(t, changed, "refine should report a change when a transcript prefix is present")
	assert.Equal(t, "prefer composition over inheritance", refined)
}

func TestRefineNormalizesRecoveredPercent(t *testing.T) {
	refined, changed := refine("the operation recovered 87.5% of throughput after retry")
	assert.True(t, changed, "refine should normalize a recovered-X%% variant")
	assert.Equal(t, "the operation recovered partially of throughput after retry", refined)
}
