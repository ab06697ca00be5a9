// Package store is the translation memory shared across books: finished
// segment translations keyed by source hash, target language and prompt
// style, plus a log of translation runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/chaptran/internal"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Concurrent jobs share one store; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_hash TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		style TEXT NOT NULL,
		translated TEXT NOT NULL,
		model TEXT,
		usage_count INTEGER DEFAULT 0,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_hash, target_lang, style)
	);

	-- runs records every book translation for the cache listing
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		style TEXT NOT NULL,
		backend TEXT NOT NULL,
		models TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		segments INTEGER DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_hash, target_lang, style);
	`

	_, err := s.db.Exec(schema)
	return err
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          string
	SourceHash  string
	TargetLang  string
	Style       string
	Translated  string
	Model       string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	Runs           int
}

// Lookup returns the remembered translation of the segment with sourceHash.
// Invalidated entries are reported as missing.
func (s *Store) Lookup(ctx context.Context, sourceHash, targetLang, style string) (*MemoryEntry, bool, error) {
	e := MemoryEntry{SourceHash: sourceHash, TargetLang: normalizeKey(targetLang), Style: normalizeKey(style)}
	var model sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, translated, model, usage_count, invalidated FROM translation_memory WHERE source_hash = ? AND target_lang = ? AND style = ?`,
		e.SourceHash, e.TargetLang, e.Style).Scan(&e.ID, &e.Translated, &model, &e.UsageCount, &e.Invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.Invalidated {
		return nil, false, nil
	}
	e.Model = model.String

	e.LastUsed = time.Now()
	e.UsageCount++
	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
		e.LastUsed, e.ID)

	return &e, true, err
}

// Remember stores or replaces the translation of a segment.
func (s *Store) Remember(ctx context.Context, sourceHash, targetLang, style, translated, model string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_memory (id, source_hash, target_lang, style, translated, model, usage_count, invalidated, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, FALSE, ?, ?)
		 ON CONFLICT(source_hash, target_lang, style) DO UPDATE SET
			translated = excluded.translated,
			model = excluded.model,
			invalidated = FALSE,
			last_used = excluded.last_used`,
		uuid.NewString(), sourceHash, normalizeKey(targetLang), normalizeKey(style), translated, model, now, now)
	return err
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteMemory permanently removes a translation memory entry by ID. It
// reports whether a row was removed.
func (s *Store) DeleteMemory(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all translation memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_hash, target_lang, style, translated, COALESCE(model, ''), usage_count, invalidated, last_used
		 FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceHash, &e.TargetLang, &e.Style, &e.Translated, &e.Model, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the translation memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0),
			(SELECT COUNT(*) FROM runs)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
		&stats.Runs,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Run is a row from the runs table.
type Run struct {
	internal.Job
	Status     string
	Segments   int
	Error      string
	FinishedAt *time.Time
}

// StartRun records job as running.
func (s *Store) StartRun(ctx context.Context, job internal.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_file, output_file, target_lang, style, backend, models, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.InputFile, job.OutputFile, normalizeKey(job.TargetLang), normalizeKey(job.Style), job.Backend,
		strings.Join(job.Models, ","), RunRunning, job.StartedAt)
	return err
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id string, segments int, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, segments = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, segments, msg, time.Now(), id)
	return err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, input_file, output_file, target_lang, style, backend, models, status, segments, COALESCE(error, ''), started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var models string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.InputFile, &r.OutputFile, &r.TargetLang, &r.Style, &r.Backend, &models,
			&r.Status, &r.Segments, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, err
		}
		if models != "" {
			r.Models = strings.Split(models, ",")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeKey trims, lower-cases and NFC-normalizes a language or style key
// so "FR", "fr " and "fr" share entries.
func normalizeKey(key string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(key)))
}
