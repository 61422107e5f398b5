// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package journal keeps a SQLite record of the frames a run saved.
//
// Each Journal session is a run with its own id. Every saved capture is
// appended with its frame number, path, size and payload checksum, so that
// two scripted runs can be compared without reopening the images.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/gpu"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal: closed")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,  -- UnixNano
    device     TEXT NOT NULL,
    extent     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS captures (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL REFERENCES runs(id),
    frame    INTEGER NOT NULL,
    path     TEXT NOT NULL,
    width    INTEGER NOT NULL,
    height   INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    saved_at INTEGER NOT NULL     -- UnixNano
);

CREATE INDEX IF NOT EXISTS idx_captures_run ON captures(run_id, frame);
`

// Entry is one recorded capture.
type Entry struct {
	Run     string
	Saved   capture.Saved
	SavedAt time.Time
}

// Journal records captures for one run.
type Journal struct {
	db  *sql.DB
	run string
	now func() time.Time
}

// Open opens or creates the journal database at path and starts a run.
func Open(ctx context.Context, path, device string, extent gpu.Extent) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	j := &Journal{db: db, run: uuid.NewString(), now: time.Now}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, device, extent) VALUES (?, ?, ?, ?)",
		j.run, j.now().UnixNano(), device, extent.String()); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: start run: %w", err)
	}
	return j, nil
}

// Run returns the id of the current run.
func (j *Journal) Run() string { return j.run }

// Record appends a saved capture to the current run.
func (j *Journal) Record(ctx context.Context, s capture.Saved) error {
	if j.db == nil {
		return ErrClosed
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO captures (run_id, frame, path, width, height, checksum, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.run, int64(s.Frame), s.Path, s.Extent.Width, s.Extent.Height, s.Checksum, j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("journal: record frame %d: %w", s.Frame, err)
	}
	return nil
}

// Entries returns the captures of run in frame order. An empty run means
// the current one.
func (j *Journal) Entries(ctx context.Context, run string) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if run == "" {
		run = j.run
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT frame, path, width, height, checksum, saved_at
		 FROM captures WHERE run_id = ? ORDER BY frame, id`, run)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			frame   int64
			savedAt int64
			e       = Entry{Run: run}
		)
		if err := rows.Scan(&frame, &e.Saved.Path, &e.Saved.Extent.Width, &e.Saved.Extent.Height,
			&e.Saved.Checksum, &savedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Saved.Frame = uint64(frame)
		e.SavedAt = time.Unix(0, savedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

// Runs returns all run ids, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx, "SELECT id FROM runs ORDER BY started_at, id")
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database. It is safe to call more than once.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
