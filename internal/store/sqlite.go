package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// timeLayout has a fixed width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite keeps clouds in a local database file with entries as JSON text.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLite{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "cloud-store", "driver", "sqlite"),
	}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) applyMigrations(ctx context.Context) error {
	entries, err := sqliteMigrations.ReadDir("migrations/sqlite")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		body, err := sqliteMigrations.ReadFile("migrations/sqlite/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

const sqliteColumns = `id, source, status, error, requested, size, clamped, unique_words,
	total_words, min_weight, max_weight, entries, created_at, completed_at`

func (s *SQLite) Put(ctx context.Context, r *Record) error {
	entries, err := json.Marshal(r.Entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	var completed any
	if r.CompletedAt != nil {
		completed = r.CompletedAt.UTC().Format(timeLayout)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clouds (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			size = excluded.size,
			clamped = excluded.clamped,
			unique_words = excluded.unique_words,
			total_words = excluded.total_words,
			entries = excluded.entries,
			completed_at = excluded.completed_at`,
		r.ID, r.Source, string(r.Status), r.Error, r.Requested, r.Size, r.Clamped,
		r.UniqueWords, r.TotalWords, r.MinWeight, r.MaxWeight, string(entries),
		r.CreatedAt.UTC().Format(timeLayout), completed,
	)
	if err != nil {
		return fmt.Errorf("save cloud %s: %w", r.ID, err)
	}
	s.logger.Debug("cloud saved", "id", r.ID, "status", r.Status)
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM clouds WHERE id = ?`, id)
	r, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCloudNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load cloud %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM clouds ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list clouds: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cloud: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanSQLite(row scanner) (*Record, error) {
	var (
		r         Record
		status    string
		entries   string
		created   string
		completed sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Source, &status, &r.Error, &r.Requested, &r.Size, &r.Clamped,
		&r.UniqueWords, &r.TotalWords, &r.MinWeight, &r.MaxWeight, &entries,
		&created, &completed); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(entries), &r.Entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries of %s: %w", r.ID, err)
	}
	var err error
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", r.ID, err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at of %s: %w", r.ID, err)
		}
		r.CompletedAt = &t
	}
	return &r, nil
}
