package ranker

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

func TestRankTieBreak(t *testing.T) {
	freq := map[string]int{"a": 3, "b": 3, "c": 1}

	top := Top(freq, 2)
	wantTop := []Entry{{"b", 3}, {"a", 3}}
	if !slices.Equal(top, wantTop) {
		t.Fatalf("Top = %v, want %v", top, wantTop)
	}

	got, err := Rank(freq, 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	want := []Entry{{"a", 3}, {"b", 3}}
	if !slices.Equal(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func TestRankCutoffPrefersLaterWord(t *testing.T) {
	freq := map[string]int{"the": 3, "cat": 2, "sat": 1, "on": 1, "mat": 1, "ran": 1}
	got, err := Rank(freq, 3)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	want := []Entry{{"cat", 2}, {"sat", 1}, {"the", 3}}
	if !slices.Equal(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func TestRankReturnsAllWhenNExceedsSize(t *testing.T) {
	freq := map[string]int{"zeta": 1, "alpha": 5, "mu": 2}
	for _, n := range []int{3, 4, 100} {
		got, err := Rank(freq, n)
		if err != nil {
			t.Fatalf("Rank(n=%d): %v", n, err)
		}
		want := []Entry{{"alpha", 5}, {"mu", 2}, {"zeta", 1}}
		if !slices.Equal(got, want) {
			t.Fatalf("Rank(n=%d) = %v, want %v", n, got, want)
		}
	}
}

func TestRankOutputStrictlyAscending(t *testing.T) {
	freq := make(map[string]int)
	for i := 0; i < 200; i++ {
		freq[fmt.Sprintf("w%03d", i)] = i%7 + 1
	}
	got, err := Rank(freq, 50)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Word >= got[i].Word {
			t.Fatalf("entries %v and %v out of order", got[i-1], got[i])
		}
	}
	for _, e := range got {
		if freq[e.Word] != e.Count {
			t.Fatalf("count for %q changed: %d != %d", e.Word, e.Count, freq[e.Word])
		}
		if e.Count < 6 {
			t.Fatalf("selected %v although higher counts were left out", e)
		}
	}
}

func TestRankDoesNotModifyInput(t *testing.T) {
	freq := map[string]int{"x": 1, "y": 2}
	if _, err := Rank(freq, 1); err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(freq) != 2 {
		t.Fatalf("input map modified: %v", freq)
	}
}

func TestRankRejectsBadInput(t *testing.T) {
	if _, err := Rank(map[string]int{"a": 1}, 0); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("n=0 error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Rank(map[string]int{"a": 1}, -3); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("n<0 error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Rank(map[string]int{}, 5); !errors.Is(err, apperrors.ErrEmptyCorpus) {
		t.Fatalf("empty map error = %v, want ErrEmptyCorpus", err)
	}
}

func BenchmarkRank(b *testing.B) {
	freq := make(map[string]int, 10000)
	for i := 0; i < 10000; i++ {
		freq[fmt.Sprintf("term%05d", i)] = (i * 7919) % 113
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Rank(freq, 100); err != nil {
			b.Fatal(err)
		}
	}
}
