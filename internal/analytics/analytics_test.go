package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
)

func generated(source string, latency int64, cacheHit bool) CloudEvent {
	return CloudEvent{
		Type:       EventCloudGenerated,
		Source:     source,
		Mode:       ModeSync,
		Size:       10,
		TotalWords: 100,
		CacheHit:   cacheHit,
		LatencyMs:  latency,
		Timestamp:  time.Now(),
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }

	for i := int64(1); i <= 100; i++ {
		agg.Record(generated("alice.txt", i, false))
	}
	agg.Record(generated("bob.txt", 5, true))
	agg.Record(generated("bob.txt", 5, true))
	job := generated("carol.txt", 7, false)
	job.Mode = ModeJob
	job.Clamped = true
	agg.Record(job)
	agg.Record(CloudEvent{Type: EventCloudFailed, Source: "empty.txt", Error: "no words in document"})

	stats := agg.Stats()
	if stats.TotalClouds != 103 || stats.Failures != 1 {
		t.Fatalf("totals = %d clouds, %d failures", stats.TotalClouds, stats.Failures)
	}
	if stats.SyncClouds != 102 || stats.JobClouds != 1 || stats.ClampedClouds != 1 {
		t.Fatalf("modes = sync %d job %d clamped %d", stats.SyncClouds, stats.JobClouds, stats.ClampedClouds)
	}
	if stats.CacheHits != 2 || stats.CacheMisses != 101 {
		t.Fatalf("cache = %d hits, %d misses", stats.CacheHits, stats.CacheMisses)
	}
	if stats.WordsProcessed != 101*100 {
		t.Fatalf("words processed = %d", stats.WordsProcessed)
	}
	if stats.P99LatencyMs < stats.P95LatencyMs || stats.P95LatencyMs < stats.P50LatencyMs {
		t.Fatalf("percentiles out of order: %+v", stats)
	}
	if stats.CloudsPerMinute != 51.5 {
		t.Fatalf("clouds per minute = %v, want 51.5", stats.CloudsPerMinute)
	}

	want := []SourceCount{{"alice.txt", 100}, {"bob.txt", 2}, {"carol.txt", 1}}
	if len(stats.TopSources) != len(want) {
		t.Fatalf("top sources = %+v", stats.TopSources)
	}
	for i := range want {
		if stats.TopSources[i] != want[i] {
			t.Fatalf("top sources = %+v, want %+v", stats.TopSources, want)
		}
	}
}

func TestAggregatorBoundsLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		agg.Record(generated("x", 1, false))
	}
	agg.mu.RLock()
	n := len(agg.latencies)
	agg.mu.RUnlock()
	if n > maxLatencySamples {
		t.Fatalf("latency window = %d, want <= %d", n, maxLatencySamples)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	value, _ := json.Marshal(generated("alice.txt", 3, false))
	if err := handle(context.Background(), nil, value); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handle(context.Background(), nil, []byte("not json")); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("malformed event error = %v, want ErrSkip", err)
	}
	if agg.Stats().TotalClouds != 1 {
		t.Fatalf("total clouds = %d", agg.Stats().TotalClouds)
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(generated("alice.txt", 1, false))
	c.Track(generated("bob.txt", 1, false))
	cancel()
	c.Close()

	if pub.count() != 2 {
		t.Fatalf("published %d events, want 2", pub.count())
	}
	if key := pub.batches[0][0].Key; key != "alice.txt" {
		t.Fatalf("event key = %q, want source", key)
	}
}

func TestCollectorFlushesFullBatch(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.Close()
	}()
	c.Start(ctx)

	for i := 0; i < 3; i++ {
		c.Track(generated("alice.txt", 1, false))
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() != 3 {
		t.Fatalf("published %d events, want 3", pub.count())
	}
}

func TestCollectorBoundsBufferOnFailure(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	c := NewCollector(pub, 2, time.Hour)
	for i := 0; i < 10; i++ {
		c.Track(generated("alice.txt", int64(i), false))
	}
	c.flush(context.Background())
	if n := c.BufferLen(); n != 6 {
		t.Fatalf("buffer = %d events, want 6", n)
	}
}

type fakeSnapshots struct {
	snaps []Snapshot
}

func (f fakeSnapshots) ListSnapshots(_ context.Context, limit int) ([]Snapshot, error) {
	if limit < len(f.snaps) {
		return f.snaps[:limit], nil
	}
	return f.snaps, nil
}

func TestHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(generated("alice.txt", 4, false))
	snaps := fakeSnapshots{snaps: []Snapshot{{CapturedAt: time.Now()}, {CapturedAt: time.Now()}}}
	h := NewHandler(agg, snaps)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if rec.Code != http.StatusOK || stats.TotalClouds != 1 {
		t.Fatalf("stats response = %d %+v", rec.Code, stats)
	}

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=1", nil))
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if rec.Code != http.StatusOK || body.Count != 1 {
		t.Fatalf("history response = %d count %d", rec.Code, body.Count)
	}

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHandler(agg, nil).History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("history without store status = %d", rec.Code)
	}
}
