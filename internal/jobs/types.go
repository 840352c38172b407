// Package jobs runs cloud generation asynchronously. The Submitter records a
// pending cloud and queues a JobEvent on Kafka; the Worker consumes the
// queue, builds the cloud and stores the outcome under the same id.
package jobs

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
)

// MaxDocumentBytes keeps a job below the default Kafka message size limit.
const MaxDocumentBytes = 900 << 10

// Request is a validated generation request.
type Request struct {
	Source   string
	Document []byte
	Input    source.Options
	Options  cloud.Options
}

// JobEvent is the Kafka payload of a queued job. Document is carried as raw
// bytes so that non-UTF-8 input survives until it is decoded.
type JobEvent struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Document    []byte    `json:"document"`
	Format      string    `json:"format"`
	Charset     string    `json:"charset,omitempty"`
	Normalize   bool      `json:"normalize,omitempty"`
	Words       int       `json:"words"`
	MinWeight   int       `json:"min_weight"`
	MaxWeight   int       `json:"max_weight"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func newJobEvent(id string, req Request, submitted time.Time) JobEvent {
	return JobEvent{
		ID:          id,
		Source:      req.Source,
		Document:    req.Document,
		Format:      string(req.Input.Format),
		Charset:     req.Input.Charset,
		Normalize:   req.Input.Normalize,
		Words:       req.Options.Words,
		MinWeight:   req.Options.Weights.Min,
		MaxWeight:   req.Options.Weights.Max,
		SubmittedAt: submitted,
	}
}

func (e JobEvent) input() source.Options {
	return source.Options{
		Format:    source.Format(e.Format),
		Charset:   e.Charset,
		Normalize: e.Normalize,
	}
}

func (e JobEvent) options() cloud.Options {
	return cloud.Options{
		Words:   e.Words,
		Weights: scale.Range{Min: e.MinWeight, Max: e.MaxWeight},
	}
}

func (e JobEvent) request() Request {
	return Request{
		Source:   e.Source,
		Document: e.Document,
		Input:    e.input(),
		Options:  e.options(),
	}
}

// record rebuilds the pending record of e for a worker that cannot find it.
func (e JobEvent) record() *store.Record {
	rec := store.NewRecord(e.Source, e.options())
	rec.ID = e.ID
	rec.CreatedAt = e.SubmittedAt.UTC()
	return rec
}
