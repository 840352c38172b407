// Package ranker selects the most frequent words of a frequency map and
// orders the selection alphabetically for display.
package ranker

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// Entry is a word with its number of occurrences.
type Entry struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Top returns up to n entries ordered by count descending. Equal counts are
// ordered by word descending, so the lexicographically later word wins a tie
// at the cut-off.
func Top(freq map[string]int, n int) []Entry {
	result := make([]Entry, 0, len(freq))
	for word, count := range freq {
		result = append(result, Entry{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word > result[j].Word
	})
	if n >= 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// Rank selects the n most frequent words and returns them ordered by word
// ascending. When n is at least the number of words every entry is returned.
// freq is not modified.
func Rank(freq map[string]int, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, apperrors.Invalidf("rank size must be positive, got %d", n)
	}
	if len(freq) == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}
	selected := Top(freq, n)
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Word != selected[j].Word {
			return selected[i].Word < selected[j].Word
		}
		return selected[i].Count < selected[j].Count
	})
	return selected, nil
}
