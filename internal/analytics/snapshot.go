package analytics

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Snapshot is the aggregated stats at one point in time.
type Snapshot struct {
	Stats      AggregatedStats `json:"stats"`
	CapturedAt time.Time       `json:"captured_at"`
}

// SnapshotStore persists periodic stats snapshots in PostgreSQL.
type SnapshotStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewSnapshotStore migrates the analytics_snapshots table.
func NewSnapshotStore(ctx context.Context, db *postgres.Client) (*SnapshotStore, error) {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading analytics migrations: %w", err)
	}
	if err := db.Migrate(ctx, sub); err != nil {
		return nil, err
	}
	return &SnapshotStore{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_clouds", stats.TotalClouds,
		"failures", stats.Failures,
	)
	return nil
}

// ListSnapshots returns the last limit snapshots, newest first. Rows that no
// longer decode are skipped.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			data []byte
			snap Snapshot
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots agg every interval and once more when ctx ends.
func (s *SnapshotStore) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
