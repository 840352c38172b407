// Package cloud turns a document into a weighted tag cloud: it counts words
// case-insensitively, keeps the most frequent ones in alphabetical order and
// assigns each a weight inside a configured range.
package cloud

import (
	"context"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/counter"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/ranker"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/tracing"
)

// Options are the caller-supplied parameters of one generation.
type Options struct {
	Words   int
	Weights scale.Range
}

// Validate rejects a non-positive word count or an empty weight range.
func (o Options) Validate() error {
	if o.Words <= 0 {
		return apperrors.Invalidf("words must be positive, got %d", o.Words)
	}
	return o.Weights.Validate()
}

// Cloud is the result of one generation. Entries are sorted by word.
type Cloud struct {
	Entries     []scale.Weighted `json:"entries"`
	Requested   int              `json:"requested"`
	Size        int              `json:"size"`
	Clamped     bool             `json:"clamped"`
	UniqueWords int              `json:"unique_words"`
	TotalWords  int              `json:"total_words"`
	MinCount    int              `json:"min_count"`
	MaxCount    int              `json:"max_count"`
	Weights     scale.Range      `json:"weights"`
}

// Engine runs the count, rank and scale stages. It holds no per-document
// state and is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

func NewEngine() *Engine {
	return &Engine{
		logger: logger.WithComponent("cloud-engine"),
	}
}

// Generate reads the whole document from r and builds its cloud. An empty
// document yields ErrEmptyCorpus; a request for more words than the
// document contains is clamped and reported through Cloud.Clamped.
func (e *Engine) Generate(ctx context.Context, r io.Reader, opts Options) (*Cloud, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := logger.Scoped(ctx, e.logger)

	_, span := tracing.StartChildSpan(ctx, "count")
	freq, err := counter.Count(r)
	if err != nil {
		span.End()
		return nil, err
	}
	total := freq.Total()
	span.SetAttr("unique_words", len(freq))
	span.SetAttr("total_words", total)
	span.End()

	if len(freq) == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}

	size := opts.Words
	clamped := false
	if size > len(freq) {
		log.Info("requested size exceeds unique words, clamping",
			"requested", opts.Words,
			"unique_words", len(freq),
		)
		size = len(freq)
		clamped = true
	}

	_, span = tracing.StartChildSpan(ctx, "rank")
	ranked, err := ranker.Rank(freq, size)
	span.SetAttr("size", len(ranked))
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = tracing.StartChildSpan(ctx, "scale")
	weighted, err := scale.Apply(ranked, opts.Weights)
	span.End()
	if err != nil {
		return nil, err
	}

	minCount, maxCount := scale.Extremes(ranked)
	log.Debug("cloud generated",
		"size", len(weighted),
		"unique_words", len(freq),
		"total_words", total,
		"min_count", minCount,
		"max_count", maxCount,
	)
	return &Cloud{
		Entries:     weighted,
		Requested:   opts.Words,
		Size:        len(weighted),
		Clamped:     clamped,
		UniqueWords: len(freq),
		TotalWords:  total,
		MinCount:    minCount,
		MaxCount:    maxCount,
		Weights:     opts.Weights,
	}, nil
}
