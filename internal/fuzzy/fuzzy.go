// Package fuzzy implements the classic sequence-matcher similarity ratio
// used for near-duplicate title detection.
package fuzzy

import "strings"

// Ratio returns a similarity measure in [0,1]: twice the number of matched
// characters over the total length of both strings, with matches found by
// recursively locating the longest common block.
func Ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchedLength([]byte(a), []byte(b))
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// NormalizeTitle lowercases and strips everything but letters and digits,
// the canonical form for title comparison.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TitlesSimilar reports whether two raw titles normalize to forms with a
// ratio at or above the threshold.
func TitlesSimilar(a, b string, threshold float64) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return true
	}
	return Ratio(na, nb) >= threshold
}

// matchedLength sums the longest matching blocks, recursing on the regions
// to each side of every block.
func matchedLength(a, b []byte) int {
	i, j, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size + matchedLength(a[:i], b[:j]) + matchedLength(a[i+size:], b[j+size:])
}

// longestMatch finds the longest common contiguous block between a and b.
func longestMatch(a, b []byte) (bestI, bestJ, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	b2j := make(map[byte][]int, len(b))
	for j, c := range b {
		b2j[c] = append(b2j[c], j)
	}

	// lengths[j] is the length of the match ending at a[i-1], b[j-1] from the
	// previous row.
	lengths := make(map[int]int)
	for i, c := range a {
		newLengths := make(map[int]int)
		for _, j := range b2j[c] {
			k := lengths[j-1] + 1
			newLengths[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths = newLengths
	}
	return bestI, bestJ, bestSize
}
