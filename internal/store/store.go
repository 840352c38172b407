// Package store persists generated clouds. PostgreSQL backs the services;
// SQLite backs the command line history and single-node deployments.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/postgres"
)

// Status is the lifecycle state of a stored cloud.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Record is one generation request and, once complete, its result.
type Record struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Requested   int              `json:"requested"`
	Size        int              `json:"size"`
	Clamped     bool             `json:"clamped"`
	UniqueWords int              `json:"unique_words"`
	TotalWords  int              `json:"total_words"`
	MinWeight   int              `json:"min_weight"`
	MaxWeight   int              `json:"max_weight"`
	Entries     []scale.Weighted `json:"entries"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewRecord returns a pending record with a fresh id.
func NewRecord(source string, opts cloud.Options) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    StatusPending,
		Requested: opts.Words,
		MinWeight: opts.Weights.Min,
		MaxWeight: opts.Weights.Max,
		Entries:   []scale.Weighted{},
		CreatedAt: time.Now().UTC(),
	}
}

// Complete copies the generated cloud into r.
func (r *Record) Complete(c *cloud.Cloud) {
	now := time.Now().UTC()
	r.Status = StatusComplete
	r.Error = ""
	r.Size = c.Size
	r.Clamped = c.Clamped
	r.UniqueWords = c.UniqueWords
	r.TotalWords = c.TotalWords
	r.Entries = c.Entries
	r.CompletedAt = &now
}

// Fail marks r as failed with the cause.
func (r *Record) Fail(err error) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.Error = err.Error()
	r.CompletedAt = &now
}

// Weights returns the weight range the record was generated with.
func (r *Record) Weights() scale.Range {
	return scale.Range{Min: r.MinWeight, Max: r.MaxWeight}
}

// Store is implemented by every backend. Get returns an error wrapping
// errors.ErrCloudNotFound for unknown ids. List returns the newest records
// first.
type Store interface {
	Put(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.Store.Driver and brings its
// schema up to date.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgres(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return s, nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
