// Package align implements token normalization, longest-common-subsequence
// alignment and edit-distance matching shared by every scoring component.
package align

import (
	"github.com/antzucaro/matchr"
	"github.com/okian/speakeval/internal/domain/model"
)

// Close-match acceptance limits.
const (
	maxCloseDistance   = 2
	closeDistanceRatio = 0.5
)

// Normalize lowercases text, strips everything except letters, digits,
// apostrophes and hyphens, and splits it into tokens.
func Normalize(text string) []string {
	return model.Tokenize(text)
}

// LCSLength returns the length of the longest common subsequence of a and b.
// Memory is proportional to the shorter sequence.
func LCSLength(a, b []string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Alignment describes how an expected sequence lines up with a recognized one.
type Alignment struct {
	Length     int
	Omissions  int
	Insertions int
	MatchedA   map[int]struct{}
	MatchedB   map[int]struct{}
}

// UnmatchedA returns tokens of a that are not part of the LCS, in order.
func (al Alignment) UnmatchedA(a []string) []string {
	return unmatched(a, al.MatchedA)
}

// UnmatchedB returns tokens of b that are not part of the LCS, in order.
func (al Alignment) UnmatchedB(b []string) []string {
	return unmatched(b, al.MatchedB)
}

func unmatched(seq []string, matched map[int]struct{}) []string {
	out := make([]string, 0, len(seq)-len(matched))
	for i, tok := range seq {
		if _, ok := matched[i]; !ok {
			out = append(out, tok)
		}
	}
	return out
}

// Align computes the full LCS table for a (expected) and b (recognized) and
// backtracks to recover the matched positions in both sequences.
func Align(a, b []string) Alignment {
	al := Alignment{
		MatchedA: make(map[int]struct{}),
		MatchedB: make(map[int]struct{}),
	}
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		al.Omissions = n
		al.Insertions = m
		return al
	}

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	for i, j := n, m; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			al.MatchedA[i-1] = struct{}{}
			al.MatchedB[j-1] = struct{}{}
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}

	al.Length = dp[n][m]
	al.Omissions = n - al.Length
	al.Insertions = m - al.Length
	return al
}

// EditDistance returns the Levenshtein distance between a and b.
func EditDistance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Pair is an accepted close match between an expected and a recognized token.
type Pair struct {
	Expected   string
	Recognized string
	Distance   int
}

// CloseMatches greedily pairs each unmatched expected token with the nearest
// unused unmatched recognized token. A pair is kept only when the distance is
// at most 2 and below half the longer token's length. Each recognized token
// is consumed at most once.
func CloseMatches(expected, recognized []string) []Pair {
	used := make([]bool, len(recognized))
	var pairs []Pair
	for _, e := range expected {
		best, bestDist := -1, 0
		for j, r := range recognized {
			if used[j] {
				continue
			}
			d := EditDistance(e, r)
			if best < 0 || d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			continue
		}
		longest := max(len([]rune(e)), len([]rune(recognized[best])))
		if bestDist <= maxCloseDistance && float64(bestDist) < closeDistanceRatio*float64(longest) {
			used[best] = true
			pairs = append(pairs, Pair{Expected: e, Recognized: recognized[best], Distance: bestDist})
		}
	}
	return pairs
}

// SoundsAlike reports whether two words share a Double Metaphone code.
func SoundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}
