package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	got, err := ParseAnalysis(`{"count": 104, "confidence": 91.5, "plastic": 80, "aluminum": 20, "glass": 4, "notes": "clear photo"}`)
	require.NoError(t, err)
	assert.Equal(t, 104, got.Count)
	assert.InDelta(t, 91.5, got.Confidence, 1e-9)
	assert.Equal(t, 80, got.Materials.Plastic)
	assert.Equal(t, 20, got.Materials.Aluminum)
	assert.Equal(t, 4, got.Materials.Glass)
	assert.Equal(t, "clear photo", got.Notes)
}

func TestParseAnalysisStripsFence(t *testing.T) {
	raw := "```json\n{\"count\": 12, \"confidence\": 60}\n```"
	got, err := ParseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Count)
	assert.InDelta(t, 60.0, got.Confidence, 1e-9)
}

func TestParseAnalysisRejectsGarbage(t *testing.T) {
	_, err := ParseAnalysis("I see some bottles!")
	assert.Error(t, err)

	_, err = ParseAnalysis(`{"count": -3, "confidence": 50}`)
	assert.Error(t, err)

	_, err = ParseAnalysis(`{"count": 10, "confidence": 140}`)
	assert.Error(t, err)
}
