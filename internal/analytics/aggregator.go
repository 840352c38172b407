package analytics

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/ranker"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalClouds     int64         `json:"total_clouds"`
	Failures        int64         `json:"failures"`
	SyncClouds      int64         `json:"sync_clouds"`
	JobClouds       int64         `json:"job_clouds"`
	ClampedClouds   int64         `json:"clamped_clouds"`
	CacheHits       int64         `json:"cache_hits"`
	CacheMisses     int64         `json:"cache_misses"`
	WordsProcessed  int64         `json:"words_processed"`
	AvgLatencyMs    float64       `json:"avg_latency_ms"`
	P50LatencyMs    int64         `json:"p50_latency_ms"`
	P95LatencyMs    int64         `json:"p95_latency_ms"`
	P99LatencyMs    int64         `json:"p99_latency_ms"`
	TopSources      []SourceCount `json:"top_sources"`
	CloudsPerMinute float64       `json:"clouds_per_minute"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Aggregator folds CloudEvents into running totals. It is safe for
// concurrent use.
type Aggregator struct {
	mu             sync.RWMutex
	totalClouds    atomic.Int64
	failures       atomic.Int64
	syncClouds     atomic.Int64
	jobClouds      atomic.Int64
	clampedClouds  atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	wordsProcessed atomic.Int64
	latencies      []int64
	sourceCounts   map[string]int
	startTime      time.Time
	now            func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:    make([]int64, 0, 1024),
		sourceCounts: make(map[string]int),
		startTime:    time.Now(),
		now:          time.Now,
		logger:       slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts agg to a Kafka consumer.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[CloudEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return err
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event CloudEvent) {
	if event.Type == EventCloudFailed {
		a.failures.Add(1)
		return
	}
	a.totalClouds.Add(1)
	switch event.Mode {
	case ModeJob:
		a.jobClouds.Add(1)
	default:
		a.syncClouds.Add(1)
	}
	if event.Clamped {
		a.clampedClouds.Add(1)
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
		a.wordsProcessed.Add(int64(event.TotalWords))
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[maxLatencySamples/2:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	if event.Source != "" {
		a.sourceCounts[event.Source]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalClouds:    a.totalClouds.Load(),
		Failures:       a.failures.Load(),
		SyncClouds:     a.syncClouds.Load(),
		JobClouds:      a.jobClouds.Load(),
		ClampedClouds:  a.clampedClouds.Load(),
		CacheHits:      a.cacheHits.Load(),
		CacheMisses:    a.cacheMisses.Load(),
		WordsProcessed: a.wordsProcessed.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	top := ranker.Top(a.sourceCounts, 10)
	stats.TopSources = make([]SourceCount, len(top))
	for i, e := range top {
		stats.TopSources[i] = SourceCount{Source: e.Word, Count: e.Count}
	}

	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.CloudsPerMinute = float64(stats.TotalClouds) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
