// Package grader scores quiz answers against their reference answers using a
// normalized edit-distance similarity. This is a purely lexical heuristic: a
// semantically correct answer phrased differently from the reference will
// score low. Semantic grading is out of scope.
package grader

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Similarity returns a score in [0,1] for how closely the candidate answer
// matches the reference. Both strings are lower-cased and trimmed before the
// character-level edit distance is taken; the distance is normalized by the
// longer of the two lengths. Identical non-empty strings score 1, an empty
// candidate against a non-empty reference scores near 0.
func Similarity(candidate, reference string) float64 {
	a := strings.ToLower(strings.TrimSpace(candidate))
	b := strings.ToLower(strings.TrimSpace(reference))

	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(a, b)
	score := 1 - float64(distance)/float64(longest)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
