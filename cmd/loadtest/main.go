// Command loadtest drives a running cloudapi with a rotating set of
// documents and reports throughput, latency percentiles, cache hit rate and
// status codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-mode sync|job] [-concurrency 10] [-duration 30s]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type options struct {
	baseURL     string
	path        string
	concurrency int
	duration    time.Duration
	words       int
	documents   []string
}

// sample is the outcome of one request. status is zero when the request
// never got a response.
type sample struct {
	latency time.Duration
	status  int
	hit     bool
}

// recorder collects samples from all workers.
type recorder struct {
	mu      sync.Mutex
	samples []sample
	failed  int
}

func (r *recorder) add(s sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.status == 0 {
		r.failed++
		return
	}
	r.samples = append(r.samples, s)
}

type summary struct {
	total, ok, errors, hits int
	latencies               []time.Duration // sorted
	statuses                map[int]int
}

func (r *recorder) summarize() summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := summary{
		total:    len(r.samples) + r.failed,
		errors:   r.failed,
		statuses: make(map[int]int),
	}
	s.latencies = make([]time.Duration, 0, len(r.samples))
	for _, smp := range r.samples {
		s.statuses[smp.status]++
		s.latencies = append(s.latencies, smp.latency)
		if smp.status >= 200 && smp.status < 300 {
			s.ok++
			if smp.hit {
				s.hits++
			}
		} else {
			s.errors++
		}
	}
	slices.Sort(s.latencies)
	return s
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the cloud api")
	mode := flag.String("mode", "sync", "sync posts to /api/v1/clouds, job posts to /api/v1/jobs")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	words := flag.Int("words", 50, "words per cloud")
	repeat := flag.Int("repeat", 200, "times each sample paragraph is repeated per document")
	flag.Parse()

	path, err := endpoint(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opts := options{
		baseURL:     strings.TrimRight(*baseURL, "/"),
		path:        path,
		concurrency: *concurrency,
		duration:    *duration,
		words:       *words,
		documents:   sampleDocuments(*repeat),
	}

	fmt.Printf("Load testing %s%s with %d workers for %s (%d documents)\n",
		opts.baseURL, opts.path, opts.concurrency, opts.duration, len(opts.documents))

	s := run(opts)
	report(os.Stdout, s, opts.duration)
	if s.total == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is cloudapi running?")
		os.Exit(1)
	}
}

func endpoint(mode string) (string, error) {
	switch mode {
	case "sync":
		return "/api/v1/clouds", nil
	case "job":
		return "/api/v1/jobs", nil
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}

var paragraphs = []string{
	"Alice was beginning to get very tired of sitting by her sister on the bank, and of having nothing to do.",
	"It was the best of times, it was the worst of times, it was the age of wisdom, it was the age of foolishness.",
	"Call me Ishmael. Some years ago, never mind how long precisely, having little or no money in my purse.",
	"It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.",
	"Happy families are all alike; every unhappy family is unhappy in its own way.",
}

// sampleDocuments builds one document per paragraph plus one mixing all of
// them. The set is small so that repeated requests hit the cache.
func sampleDocuments(repeat int) []string {
	docs := make([]string, 0, len(paragraphs)+1)
	for _, p := range paragraphs {
		docs = append(docs, strings.Repeat(p+"\n", repeat))
	}
	return append(docs, strings.Repeat(strings.Join(paragraphs, "\n")+"\n", repeat))
}

func encodeBodies(opts options) ([][]byte, error) {
	bodies := make([][]byte, len(opts.documents))
	for i, doc := range opts.documents {
		body, err := json.Marshal(map[string]any{
			"source": fmt.Sprintf("loadtest-%d", i),
			"text":   doc,
			"words":  opts.words,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding document %d: %w", i, err)
		}
		bodies[i] = body
	}
	return bodies, nil
}

func run(opts options) summary {
	bodies, err := encodeBodies(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	var (
		rec recorder
		wg  sync.WaitGroup
	)
	for w := range opts.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				s, ok := post(ctx, client, opts.baseURL+opts.path, bodies[i%len(bodies)])
				if ok {
					rec.add(s)
				}
			}
		}()
	}
	wg.Wait()
	return rec.summarize()
}

// post sends one request. ok is false when the run ended mid-request.
func post(ctx context.Context, client *http.Client, url string, body []byte) (sample, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return sample{latency: elapsed}, ctx.Err() == nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return sample{latency: elapsed, status: resp.StatusCode, hit: resp.Header.Get("X-Cache") == "HIT"}, true
}

func report(out io.Writer, s summary, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Results")
	t.AppendRow(table.Row{"Requests", s.total})
	t.AppendRow(table.Row{"Successful", s.ok})
	t.AppendRow(table.Row{"Errors", s.errors})
	if s.total > 0 {
		t.AppendRow(table.Row{"Error rate", fmt.Sprintf("%.2f%%", ratio(s.errors, s.total))})
		t.AppendRow(table.Row{"Requests/sec", fmt.Sprintf("%.2f", float64(s.total)/elapsed.Seconds())})
	}
	if s.ok > 0 {
		t.AppendRow(table.Row{"Cache hit rate", fmt.Sprintf("%.2f%%", ratio(s.hits, s.ok))})
	}
	if n := len(s.latencies); n > 0 {
		var sum time.Duration
		for _, l := range s.latencies {
			sum += l
		}
		t.AppendSeparator()
		t.AppendRow(table.Row{"Min", s.latencies[0]})
		t.AppendRow(table.Row{"Avg", sum / time.Duration(n)})
		for _, p := range []float64{50, 90, 95, 99} {
			t.AppendRow(table.Row{fmt.Sprintf("P%.0f", p), percentile(s.latencies, p)})
		}
		t.AppendRow(table.Row{"Max", s.latencies[n-1]})
	}
	if len(s.statuses) > 0 {
		t.AppendSeparator()
		for _, code := range slices.Sorted(maps.Keys(s.statuses)) {
			t.AppendRow(table.Row{fmt.Sprintf("HTTP %d", code), s.statuses[code]})
		}
	}
	t.Render()
}

func ratio(n, of int) float64 {
	return float64(n) / float64(of) * 100
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
