// Package fuzzy scores typo-tolerant matches of a search query against
// short customer fields such as names and email addresses.
package fuzzy

import (
	"strings"
)

// Distance is the Levenshtein edit distance between two normalised strings.
func Distance(a, b string) int {
	r1 := []rune(normalize(a))
	r2 := []rune(normalize(b))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	cur := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		cur[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(r2)]
}

// Threshold is the edit budget allowed for a query of this length.
func Threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Match reports whether query matches text as a substring or a word within
// the edit threshold.
func Match(query, text string) bool {
	q := normalize(query)
	t := normalize(text)
	if q == "" {
		return false
	}
	if strings.Contains(t, q) {
		return true
	}
	limit := Threshold(q)
	for _, word := range strings.Fields(t) {
		if Distance(q, word) <= limit {
			return true
		}
	}
	return false
}

// Field is one searchable value and its weight.
type Field struct {
	Value  string
	Weight float64
}

// Score ranks how well query matches the fields. Zero means no match.
// Substrings score the full weight and whole words add half again. Words
// within the edit threshold score less the further they are from the query.
func Score(query string, fields ...Field) float64 {
	q := normalize(query)
	if q == "" {
		return 0
	}
	limit := Threshold(q)

	score := 0.0
	for _, f := range fields {
		text := normalize(f.Value)
		if text == "" {
			continue
		}
		if strings.Contains(text, q) {
			score += f.Weight
			if containsWord(text, q) {
				score += f.Weight / 2
			}
			continue
		}
		for _, word := range strings.Fields(text) {
			if d := Distance(q, word); d <= limit {
				score += f.Weight * 0.5 * float64(limit+1-d) / float64(limit+1)
			}
		}
	}
	return score
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsWord(text, word string) bool {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '@' || r == '.' || r == '-' || r == '_'
	}) {
		if w == word {
			return true
		}
	}
	return false
}
