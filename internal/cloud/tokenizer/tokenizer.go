// Package tokenizer splits text into maximal runs of word and separator
// characters. The separator set is fixed; everything outside it, digits and
// non-Latin letters included, is a word character.
package tokenizer

import (
	"iter"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// Separators lists every character that delimits words.
const Separators = " \t\n\r,'-.!?|[]{}*&@#$%^_\";:/()`~"

// Every separator is ASCII and UTF-8 never encodes part of a multi-byte
// rune with an ASCII byte, so classifying bytes classifies runes.
var separatorTable = func() (t [256]bool) {
	for i := 0; i < len(Separators); i++ {
		t[Separators[i]] = true
	}
	return t
}()

// Kind tags a run as a word or a separator string.
type Kind int

const (
	Word Kind = iota
	Separator
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Separator:
		return "separator"
	default:
		return "unknown"
	}
}

// Token is one maximal run of same-class characters. Offset is the byte
// position of the run in the scanned text.
type Token struct {
	Text   string
	Kind   Kind
	Offset int
}

// IsSeparator reports whether r belongs to the separator set.
func IsSeparator(r rune) bool {
	return r >= 0 && r < 128 && separatorTable[r]
}

func kindOf(b byte) Kind {
	if separatorTable[b] {
		return Separator
	}
	return Word
}

// NextRun returns the longest run starting at pos whose characters share the
// class of text[pos]. The caller advances pos by len(token.Text).
func NextRun(text string, pos int) (Token, error) {
	if len(text) == 0 {
		return Token{}, apperrors.Invalidf("text must not be empty")
	}
	if pos < 0 || pos >= len(text) {
		return Token{}, apperrors.Invalidf("position %d outside [0, %d)", pos, len(text))
	}
	return nextRun(text, pos), nil
}

func nextRun(text string, pos int) Token {
	kind := kindOf(text[pos])
	end := pos + 1
	for end < len(text) && kindOf(text[end]) == kind {
		end++
	}
	return Token{Text: text[pos:end], Kind: kind, Offset: pos}
}

// Runs yields every run of text in order. The sequence covers text exactly
// once and can be ranged over repeatedly.
func Runs(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for pos := 0; pos < len(text); {
			tok := nextRun(text, pos)
			if !yield(tok) {
				return
			}
			pos += len(tok.Text)
		}
	}
}

// Words yields only the word runs of text, unmodified.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for tok := range Runs(text) {
			if tok.Kind != Word {
				continue
			}
			if !yield(tok.Text) {
				return
			}
		}
	}
}
