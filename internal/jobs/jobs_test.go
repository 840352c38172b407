package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeTracker struct {
	mu     sync.Mutex
	events []analytics.CloudEvent
}

func (f *fakeTracker) Track(e analytics.CloudEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func request(doc string, words int) Request {
	return Request{
		Source:   "alice.txt",
		Document: []byte(doc),
		Input:    source.Options{Format: source.FormatText},
		Options:  cloud.Options{Words: words, Weights: scale.DefaultRange},
	}
}

// encode marshals the published job the way the kafka producer does.
func encode(t *testing.T, e kafka.Event) []byte {
	t.Helper()
	data, err := json.Marshal(e.Value)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return data
}

func TestSubmitAndProcess(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	pub := &fakePublisher{}
	tracker := &fakeTracker{}
	m := metrics.New(prometheus.NewRegistry())

	rec, err := NewSubmitter(st, pub).Submit(ctx, request("The cat sat. The cat? THE!", 3))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Status != store.StatusPending || len(pub.events) != 1 || pub.events[0].Key != rec.ID {
		t.Fatalf("submit left record %+v, events %+v", rec, pub.events)
	}

	w := NewWorker(WorkerConfig{
		Engine:  cloud.NewEngine(),
		Store:   st,
		Events:  tracker,
		Metrics: m,
		Timeout: 5 * time.Second,
	})
	if err := w.Handle(ctx, []byte(rec.ID), encode(t, pub.events[0])); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	got, err := st.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.StatusComplete || got.Size != 3 || got.TotalWords != 6 {
		t.Fatalf("record = %+v", got)
	}
	want := map[string]int{"cat": 30, "sat": 11, "the": 48}
	for _, e := range got.Entries {
		if want[e.Word] != e.Weight {
			t.Fatalf("entry %+v, want weight %d", e, want[e.Word])
		}
	}
	if len(tracker.events) != 1 || tracker.events[0].Type != analytics.EventCloudGenerated || tracker.events[0].Mode != analytics.ModeJob {
		t.Fatalf("analytics events = %+v", tracker.events)
	}
	if n := testutil.ToFloat64(m.JobsProcessed.WithLabelValues("complete")); n != 1 {
		t.Fatalf("jobs complete = %v", n)
	}

	// A redelivered job is acknowledged without rework.
	if err := w.Handle(ctx, []byte(rec.ID), encode(t, pub.events[0])); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(tracker.events) != 1 {
		t.Fatalf("redelivery produced %d events", len(tracker.events))
	}
}

func TestWorkerRecordsFailure(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	pub := &fakePublisher{}
	tracker := &fakeTracker{}
	m := metrics.New(prometheus.NewRegistry())

	rec, err := NewSubmitter(st, pub).Submit(ctx, request(" -- ?! ", 3))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	w := NewWorker(WorkerConfig{Engine: cloud.NewEngine(), Store: st, Events: tracker, Metrics: m})
	if err := w.Handle(ctx, nil, encode(t, pub.events[0])); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	got, err := st.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.StatusFailed || !strings.Contains(got.Error, apperrors.ErrEmptyCorpus.Error()) {
		t.Fatalf("record = %+v", got)
	}
	if len(tracker.events) != 1 || tracker.events[0].Type != analytics.EventCloudFailed {
		t.Fatalf("analytics events = %+v", tracker.events)
	}
	if n := testutil.ToFloat64(m.CloudFailures.WithLabelValues("empty_corpus")); n != 1 {
		t.Fatalf("empty corpus failures = %v", n)
	}
}

func TestWorkerRebuildsMissingRecord(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	job := newJobEvent("3f1c9a52-6a0e-4f59-9b8e-2d7f0c1e4a11", request("one two two", 5), time.Now().UTC())
	data, _ := json.Marshal(job)

	w := NewWorker(WorkerConfig{Engine: cloud.NewEngine(), Store: st})
	if err := w.Handle(ctx, nil, data); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != store.StatusComplete || !got.Clamped || got.Size != 2 {
		t.Fatalf("record = %+v", got)
	}
}

func TestWorkerSkipsMalformedJob(t *testing.T) {
	w := NewWorker(WorkerConfig{Engine: cloud.NewEngine(), Store: openStore(t)})
	if err := w.Handle(context.Background(), nil, []byte("{")); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("err = %v, want ErrSkip", err)
	}
}

func TestSubmitRejectsLargeDocument(t *testing.T) {
	pub := &fakePublisher{}
	_, err := NewSubmitter(openStore(t), pub).Submit(context.Background(),
		request(strings.Repeat("a ", MaxDocumentBytes), 3))
	if !errors.Is(err, apperrors.ErrDocumentTooLarge) {
		t.Fatalf("err = %v, want ErrDocumentTooLarge", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("oversized job was published")
	}
}

func TestSubmitRejectsInvalidOptions(t *testing.T) {
	_, err := NewSubmitter(openStore(t), &fakePublisher{}).Submit(context.Background(), request("a", 0))
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSubmitQueueUnavailable(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	s := NewSubmitter(st, &fakePublisher{err: errors.New("no brokers")})
	s.retry.InitialDelay = time.Millisecond

	_, err := s.Submit(ctx, request("a b c", 2))
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	recs, err := st.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != store.StatusFailed {
		t.Fatalf("records = %+v", recs)
	}
}
