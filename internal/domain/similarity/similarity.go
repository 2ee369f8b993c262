// Package similarity scores free-text fields by normalized edit distance.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio returns 1 - distance(a, b) / max(len(a), len(b)) over runes.
// Equal strings score 1 and a pair with exactly one empty side scores 0.
// Cost is O(len(a)*len(b)) per call.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(Distance(a, b))/float64(longest)
}

// Distance is the unit-cost Levenshtein distance between a and b.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}
