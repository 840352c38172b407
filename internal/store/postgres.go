package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/postgres"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Postgres keeps clouds in PostgreSQL with entries as JSONB.
type Postgres struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgres migrates the schema and returns a store over client.
func NewPostgres(ctx context.Context, client *postgres.Client) (*Postgres, error) {
	sub, err := fs.Sub(postgresMigrations, "migrations/postgres")
	if err != nil {
		return nil, fmt.Errorf("loading postgres migrations: %w", err)
	}
	if err := client.Migrate(ctx, sub); err != nil {
		return nil, err
	}
	return &Postgres{
		db:     client,
		logger: slog.Default().With("component", "cloud-store", "driver", "postgres"),
	}, nil
}

const postgresColumns = `id, source, status, error, requested, size, clamped, unique_words,
	total_words, min_weight, max_weight, entries, created_at, completed_at`

func (s *Postgres) Put(ctx context.Context, r *Record) error {
	entries, err := json.Marshal(r.Entries)
	if err != nil {
		return fmt.Errorf("marshaling entries: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO clouds (`+postgresColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			size = EXCLUDED.size,
			clamped = EXCLUDED.clamped,
			unique_words = EXCLUDED.unique_words,
			total_words = EXCLUDED.total_words,
			entries = EXCLUDED.entries,
			completed_at = EXCLUDED.completed_at`,
		r.ID, r.Source, string(r.Status), r.Error, r.Requested, r.Size, r.Clamped,
		r.UniqueWords, r.TotalWords, r.MinWeight, r.MaxWeight, string(entries),
		r.CreatedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saving cloud %s: %w", r.ID, err)
	}
	s.logger.Debug("cloud saved", "id", r.ID, "status", r.Status)
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT `+postgresColumns+` FROM clouds WHERE id = $1`, id)
	r, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCloudNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading cloud %s: %w", id, err)
	}
	return r, nil
}

func (s *Postgres) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+postgresColumns+` FROM clouds ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing clouds: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning cloud: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPostgres(row scanner) (*Record, error) {
	var (
		r         Record
		status    string
		entries   []byte
		completed sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Source, &status, &r.Error, &r.Requested, &r.Size, &r.Clamped,
		&r.UniqueWords, &r.TotalWords, &r.MinWeight, &r.MaxWeight, &entries,
		&r.CreatedAt, &completed); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if err := json.Unmarshal(entries, &r.Entries); err != nil {
		return nil, fmt.Errorf("unmarshaling entries of %s: %w", r.ID, err)
	}
	if completed.Valid {
		t := completed.Time.UTC()
		r.CompletedAt = &t
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
