package jobs

import (
	"bytes"
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
)

// Builder decodes a document and generates its cloud through the cache,
// bounded by Timeout. The API builds synchronous requests with it and the
// Worker builds queued jobs.
type Builder struct {
	engine  *cloud.Engine
	cache   *cache.CloudCache
	timeout time.Duration
}

// NewBuilder returns a Builder. A nil cache computes every request and a
// zero timeout leaves the context deadline as the only bound.
func NewBuilder(engine *cloud.Engine, c *cache.CloudCache, timeout time.Duration) *Builder {
	if c == nil {
		c = cache.New(nil, cache.Config{})
	}
	return &Builder{engine: engine, cache: c, timeout: timeout}
}

type built struct {
	cloud *cloud.Cloud
	hit   bool
}

// Build returns the cloud of req and whether it came from the cache.
func (b *Builder) Build(ctx context.Context, req Request) (*cloud.Cloud, bool, error) {
	key := cache.NewKey(req.Document, req.Options, req.Input)
	out, err := resilience.Call(ctx, b.timeout, "generate cloud", func(ctx context.Context) (built, error) {
		c, hit, err := b.cache.GetOrCompute(ctx, key, func() (*cloud.Cloud, error) {
			r, err := source.Open(bytes.NewReader(req.Document), req.Input)
			if err != nil {
				return nil, err
			}
			return b.engine.Generate(ctx, r, req.Options)
		})
		return built{cloud: c, hit: hit}, err
	})
	if err != nil {
		return nil, false, err
	}
	return out.cloud, out.hit, nil
}
