package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetectDeclinesOnProse verifies conversational text with no numeric
// series is not charted.
func TestDetectDeclinesOnProse(t *testing.T) {
	assert.Nil(t, Detect("hello"))
	assert.Nil(t, Detect("Hi! How can I help you today?"))
	assert.Nil(t, Detect(""))
	assert.Nil(t, Detect("I have 2 cats."))
}

// TestDetectLabelledPairs verifies line-based label: value extraction.
func TestDetectLabelledPairs(t *testing.T) {
	text := "Here are the quarterly sales figures:\n" +
		"Q1: 64\n" +
		"Q2: 71\n" +
		"Q3: 58\n" +
		"Q4: 80\n"

	s := Detect(text)
	require.NotNil(t, s)
	assert.Equal(t, []string{"Q1", "Q2", "Q3", "Q4"}, s.Labels)
	assert.Equal(t, []float64{64, 71, 58, 80}, s.Values)
}

// TestDetectBulletedPairsWithUnits handles list markers, currency, and
// thousands separators.
func TestDetectBulletedPairsWithUnits(t *testing.T) {
	text := "Revenue by region:\n" +
		"- North America: $1,204.5\n" +
		"- Europe: $987\n" +
		"* APAC: 1,430\n"

	s := Detect(text)
	require.NotNil(t, s)
	require.Len(t, s.Values, 3)
	assert.Equal(t, "North America", s.Labels[0])
	assert.InDelta(t, 1204.5, s.Values[0], 0.001)
	assert.InDelta(t, 1430, s.Values[2], 0.001)
}

// TestDetectSinglePairDeclines verifies one labelled value is below the
// charting threshold.
func TestDetectSinglePairDeclines(t *testing.T) {
	assert.Nil(t, Detect("Total: 42\n"))
}

// TestDetectBareNumbersFallback verifies three or more bare numbers form an
// unlabelled series.
func TestDetectBareNumbersFallback(t *testing.T) {
	s := Detect("The readings were 12.5, 14.1 and 13.8 over the three runs.")
	require.NotNil(t, s)
	assert.Equal(t, []string{"#1", "#2", "#3"}, s.Labels)
	assert.Equal(t, []float64{12.5, 14.1, 13.8}, s.Values)
}
