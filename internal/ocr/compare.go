package ocr

import (
	"strings"
	"unicode"
)

// CompareText scores how well two OCR readings agree, from 0 (nothing in
// common) to 1 (identical after normalisation). It averages word overlap
// with a character-level longest common subsequence ratio, so a single
// misread character costs less than a missing word. Two empty readings agree.
func CompareText(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	ra, rb := []rune(strings.Join(ta, "")), []rune(strings.Join(tb, ""))
	lcsScore := float64(longestCommonSubsequence(ra, rb)) / float64(max(len(ra), len(rb)))

	return 0.5*tokenOverlap(ta, tb) + 0.5*lcsScore
}

// tokens upper-cases s and splits it into words of letters and digits.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokenOverlap is the Dice coefficient of two word multisets.
func tokenOverlap(a, b []string) float64 {
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	common := 0
	for _, t := range b {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

// longestCommonSubsequence works on runes; scores divide it by rune counts.
func longestCommonSubsequence(ra, rb []rune) int {
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Two rows are enough.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
