package grader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarityIdenticalAnswers(t *testing.T) {
	require.InDelta(t, 1.0, Similarity("binary search", "binary search"), 1e-9)
}

func TestSimilarityIgnoresCaseAndPadding(t *testing.T) {
	require.InDelta(t, 1.0, Similarity("  Binary Search  ", "binary search"), 1e-9)
}

func TestSimilarityNearMiss(t *testing.T) {
	score := Similarity("binry search", "binary search")
	require.Greater(t, score, 0.8)
	require.Less(t, score, 1.0)
}

func TestSimilarityUnrelatedAnswersScoreLow(t *testing.T) {
	require.Less(t, Similarity("bubble sort", "dynamic programming"), 0.4)
}

func TestSimilarityEmptyCandidate(t *testing.T) {
	require.InDelta(t, 0.0, Similarity("", "binary search"), 1e-9)
}

func TestSimilarityBothEmpty(t *testing.T) {
	require.InDelta(t, 1.0, Similarity("   ", ""), 1e-9)
}

func TestSimilarityStaysInRange(t *testing.T) {
	cases := [][2]string{
		{"a", "zzzzzzzzzz"},
		{"answer", "ответ"},
		{"very long candidate text with many words", "short"},
	}
	for _, pair := range cases {
		score := Similarity(pair[0], pair[1])
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)
	}
}
