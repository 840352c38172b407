package analytics

import "time"

type EventType string

const (
	EventCloudGenerated EventType = "cloud_generated"
	EventCloudFailed    EventType = "cloud_failed"
)

// Mode tells whether a cloud was built inside a request or by a worker.
type Mode string

const (
	ModeSync Mode = "sync"
	ModeJob  Mode = "job"
)

// CloudEvent describes one finished generation.
type CloudEvent struct {
	Type        EventType `json:"type"`
	CloudID     string    `json:"cloud_id"`
	Source      string    `json:"source"`
	Mode        Mode      `json:"mode"`
	Requested   int       `json:"requested"`
	Size        int       `json:"size"`
	UniqueWords int       `json:"unique_words"`
	TotalWords  int       `json:"total_words"`
	Clamped     bool      `json:"clamped"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyMs   int64     `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}
