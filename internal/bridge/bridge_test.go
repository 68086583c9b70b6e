package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresEveryComponent(t *testing.T) {
	b, err := New(Config{HomeDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Registry)
	assert.NotNil(t, b.Queue)
	assert.NotNil(t, b.Store)
	assert.NotNil(t, b.Index)
	assert.NotNil(t, b.Validator)
	assert.NotNil(t, b.Pipeline)
	assert.NotNil(t, b.Predictions)
	assert.NotNil(t, b.Contradiction)
	assert.NotNil(t, b.Promotion)
	assert.NotNil(t, b.PromotionSink)
	assert.NotNil(t, b.Reporter)
	assert.NotNil(t, b.History)
	assert.NotNil(t, b.Strategist)
	assert.NotEmpty(t, b.heartbeatPath)
}

func TestNewDefaultsToMockEmbedderWithoutAPIKey(t *testing.T) {
	b, err := New(Config{HomeDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, b.Index.EmbeddingsAvailable(), "expected MockEmbedder to leave embeddings available")
}

func TestStatusReportsSixLayers(t *testing.T) {
	b, err := New(Config{HomeDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer b.Close()

	rows := b.Status()
	require.Len(t, rows, 6)
	want := []string{"Source", "Queue", "Bridge", "Processing", "Output", "Mind"}
	for i, layer := range want {
		assert.Equal(t, layer, rows[i].Layer, "row %d", i)
	}
	// A fresh bridge has never run a bridge-worker cycle, so the Bridge
	// layer reports FAIL (no heartbeat file yet) until one does.
	assert.True(t, Critical(rows), "a bridge with no heartbeat file yet should report critical")
}

func TestWriteHeartbeatMakesBridgeLayerOK(t *testing.T) {
	b, err := New(Config{HomeDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.writeHeartbeat())

	rows := b.Status()
	for _, r := range rows {
		if r.Layer == "Bridge" {
			assert.Equal(t, StateOK, r.State, "Bridge layer after fresh heartbeat (%s)", r.Detail)
		}
	}
}
