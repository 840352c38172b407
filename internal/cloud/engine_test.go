package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/tracing"
)

func TestGenerateScenario(t *testing.T) {
	input := "the cat sat\non the mat\nthe cat ran\n"
	c, err := NewEngine().Generate(context.Background(), strings.NewReader(input), Options{
		Words:   3,
		Weights: scale.Range{Min: 11, Max: 48},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []struct {
		word          string
		count, weight int
	}{
		{"cat", 2, 30},
		{"sat", 1, 11},
		{"the", 3, 48},
	}
	if len(c.Entries) != len(want) {
		t.Fatalf("entries = %v, want %d entries", c.Entries, len(want))
	}
	for i, w := range want {
		got := c.Entries[i]
		if got.Word != w.word || got.Count != w.count || got.Weight != w.weight {
			t.Fatalf("entry %d = %+v, want %+v", i, got, w)
		}
	}
	if c.UniqueWords != 6 || c.TotalWords != 9 {
		t.Fatalf("unique=%d total=%d, want 6 and 9", c.UniqueWords, c.TotalWords)
	}
	if c.MinCount != 1 || c.MaxCount != 3 || c.Clamped || c.Size != 3 {
		t.Fatalf("unexpected summary %+v", c)
	}
}

func TestGenerateClampsToUniqueWords(t *testing.T) {
	c, err := NewEngine().Generate(context.Background(), strings.NewReader("b a b"), Options{
		Words:   50,
		Weights: scale.DefaultRange,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !c.Clamped || c.Size != 2 || c.Requested != 50 {
		t.Fatalf("expected clamp to 2, got %+v", c)
	}
	if c.Entries[0].Word != "a" || c.Entries[0].Weight != 11 || c.Entries[1].Weight != 48 {
		t.Fatalf("unexpected entries %+v", c.Entries)
	}
}

func TestGenerateEmptyCorpus(t *testing.T) {
	for _, input := range []string{"", "\n\n", "... --- !!!"} {
		_, err := NewEngine().Generate(context.Background(), strings.NewReader(input), Options{
			Words:   10,
			Weights: scale.DefaultRange,
		})
		if !errors.Is(err, apperrors.ErrEmptyCorpus) {
			t.Fatalf("Generate(%q) error = %v, want ErrEmptyCorpus", input, err)
		}
	}
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	cases := []Options{
		{Words: 0, Weights: scale.DefaultRange},
		{Words: -1, Weights: scale.DefaultRange},
		{Words: 10, Weights: scale.Range{Min: 48, Max: 11}},
	}
	for _, opts := range cases {
		_, err := NewEngine().Generate(context.Background(), strings.NewReader("words"), opts)
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("Generate(%+v) error = %v, want ErrInvalidArgument", opts, err)
		}
	}
}

func TestGenerateAllTied(t *testing.T) {
	c, err := NewEngine().Generate(context.Background(), strings.NewReader("x y z\nz y x"), Options{
		Words:   3,
		Weights: scale.DefaultRange,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, e := range c.Entries {
		if e.Weight != scale.DefaultRange.Min {
			t.Fatalf("weight(%s) = %d, want min", e.Word, e.Weight)
		}
	}
}

func TestGenerateRecordsSpans(t *testing.T) {
	ctx, root := tracing.StartSpan(context.Background(), "request", "trace-42")
	if _, err := NewEngine().Generate(ctx, strings.NewReader("one two two"), Options{
		Words:   5,
		Weights: scale.DefaultRange,
	}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	root.End()
	names := make([]string, 0, len(root.Children))
	for _, child := range root.Children {
		names = append(names, child.Name)
	}
	if strings.Join(names, ",") != "count,rank,scale" {
		t.Fatalf("child spans = %v, want count,rank,scale", names)
	}
}

func BenchmarkGenerate(b *testing.B) {
	sizes := []int{1000, 10000, 100000}
	base := "Distributed search engines process queries across multiple shards to achieve " +
		"horizontal scalability; each shard maintains its own inverted index.\n"
	engine := NewEngine()
	for _, size := range sizes {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := engine.Generate(context.Background(), strings.NewReader(text), Options{
					Words:   25,
					Weights: scale.DefaultRange,
				}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
