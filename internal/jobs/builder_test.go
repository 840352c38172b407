package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *mapBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (b *mapBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *mapBackend) FlushByPattern(context.Context, string) (int64, error) { return 0, nil }

func (b *mapBackend) CountByPattern(context.Context, string) (int64, error) { return 0, nil }

func TestBuilderUsesCache(t *testing.T) {
	c := cache.New(&mapBackend{data: make(map[string][]byte)}, cache.Config{TTL: time.Minute})
	b := NewBuilder(cloud.NewEngine(), c, time.Second)
	req := request("the cat the dog the cat", 3)

	first, hit, err := b.Build(context.Background(), req)
	if err != nil || hit {
		t.Fatalf("first build hit=%v err=%v", hit, err)
	}
	second, hit, err := b.Build(context.Background(), req)
	if err != nil || !hit {
		t.Fatalf("second build hit=%v err=%v", hit, err)
	}
	if second.Size != first.Size || second.Entries[0] != first.Entries[0] {
		t.Fatalf("cached cloud differs: %+v vs %+v", second, first)
	}

	req.Options.Words = 2
	if _, hit, _ := b.Build(context.Background(), req); hit {
		t.Fatal("different word count served from cache")
	}
}

func TestBuilderDecodesHTML(t *testing.T) {
	b := NewBuilder(cloud.NewEngine(), nil, 0)
	req := request(`<p>Rabbit <style>.x{}</style>hole</p>`, 10)
	req.Input = source.Options{Format: source.FormatHTML}

	result, _, err := b.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var words []string
	for _, e := range result.Entries {
		words = append(words, e.Word)
	}
	if strings.Join(words, ",") != "hole,rabbit" {
		t.Fatalf("words = %v", words)
	}
}

func TestBuilderEmptyCorpus(t *testing.T) {
	b := NewBuilder(cloud.NewEngine(), nil, time.Second)
	_, _, err := b.Build(context.Background(), request("... ---", 5))
	if !errors.Is(err, apperrors.ErrEmptyCorpus) {
		t.Fatalf("err = %v, want ErrEmptyCorpus", err)
	}
}
