package ui

import (
	"sort"
	"strings"
)

const (
	// maxSuggestionDistance bounds how far a typo may be from a known
	// constraint type before we stop suggesting it. The type names are
	// short, so anything beyond three edits is noise.
	maxSuggestionDistance = 3
	maxSuggestions        = 3
)

// FindSimilar returns up to three candidates within edit distance
// three of target, closest first. Matching is case-insensitive since
// constraint type names are lowercase on the wire but users type them
// freely. Ties break alphabetically so suggestions are stable.
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	lower := strings.ToLower(target)
	var matches []match
	for _, candidate := range candidates {
		dist := LevenshteinDistance(lower, strings.ToLower(candidate))
		if dist <= maxSuggestionDistance {
			matches = append(matches, match{value: candidate, distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// LevenshteinDistance is the minimum number of single-character edits
// (insertions, deletions, substitutions) turning s1 into s2. Two
// rolling rows are enough; the full matrix is never needed.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
