// Package persistence keeps the sync-history journal in sqlite.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultHistoryLimit = 100

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed paths always use forward slashes
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Record appends rec to the journal and returns its id. A zero CreatedAt
// is stamped with the current time.
func (s *SQLiteStore) Record(ctx context.Context, rec SyncRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.Trigger == "" {
		rec.Trigger = TriggerPoller
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_history (channel, source_url, trigger_kind, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Channel,
		rec.SourceURL,
		string(rec.Trigger),
		string(rec.Outcome),
		rec.Error,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert sync record: %w", err)
	}
	return res.LastInsertId()
}

// List returns journal entries newest first.
func (s *SQLiteStore) List(ctx context.Context, filter HistoryFilter) ([]SyncRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `SELECT id, channel, source_url, trigger_kind, outcome, error, duration_ms, created_at FROM sync_history`
	args := make([]any, 0, 2)
	if filter.Channel != "" {
		query += ` WHERE channel = ?`
		args = append(args, filter.Channel)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]SyncRecord, 0)
	for rows.Next() {
		var (
			rec        SyncRecord
			trigger    string
			outcome    string
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.SourceURL, &trigger, &outcome, &rec.Error, &durationMS, &createdMS); err != nil {
			return nil, err
		}
		rec.Trigger = Trigger(trigger)
		rec.Outcome = Outcome(outcome)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt = time.UnixMilli(createdMS).UTC()
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) Totals(ctx context.Context) (Totals, error) {
	totals := Totals{
		ByChannel:  make(map[string]int),
		LastUpdate: make(map[string]time.Time),
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT channel, outcome, COUNT(*), MAX(created_at) FROM sync_history GROUP BY channel, outcome`,
	)
	if err != nil {
		return totals, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			channel string
			outcome string
			count   int
			lastMS  int64
		)
		if err := rows.Scan(&channel, &outcome, &count, &lastMS); err != nil {
			return totals, err
		}
		switch Outcome(outcome) {
		case OutcomeUpdated:
			totals.Updated += count
			totals.ByChannel[channel] += count
			totals.LastUpdate[channel] = time.UnixMilli(lastMS).UTC()
		case OutcomeFailed:
			totals.Failed += count
		}
	}
	return totals, rows.Err()
}

// Prune drops entries older than before and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_history WHERE created_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune sync history: %w", err)
	}
	return res.RowsAffected()
}
