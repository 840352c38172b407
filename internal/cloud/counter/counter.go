// Package counter builds case-insensitive word frequency maps from text
// read line by line.
package counter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// FrequencyMap maps a lowercased word to its number of occurrences. Every
// present key has a count of at least one.
type FrequencyMap map[string]int

// AddLine tokenizes a single line and counts each word in it. It returns
// the number of words seen.
func (m FrequencyMap) AddLine(line string) int {
	n := 0
	for word := range tokenizer.Words(line) {
		m[strings.ToLower(word)]++
		n++
	}
	return n
}

// Total returns the sum of all counts.
func (m FrequencyMap) Total() int {
	total := 0
	for _, c := range m {
		total += c
	}
	return total
}

// Words returns the keys in ascending order.
func (m FrequencyMap) Words() []string {
	words := make([]string, 0, len(m))
	for w := range m {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Count reads r to the end and counts the words of every line. Lines are
// tokenized independently, so no word spans a line break. Read failures are
// returned wrapped in ErrInputFault.
func Count(r io.Reader) (FrequencyMap, error) {
	freq := make(FrequencyMap)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			freq.AddLine(line)
		}
		if errors.Is(err, io.EOF) {
			return freq, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInputFault, err)
		}
	}
}

// CountLines counts the words of every line yielded by lines.
func CountLines(lines iter.Seq[string]) FrequencyMap {
	freq := make(FrequencyMap)
	for line := range lines {
		freq.AddLine(line)
	}
	return freq
}
