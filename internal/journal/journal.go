// Package journal keeps an audit trail of capture attempts in a local SQLite
// database. The durable dataset only receives successful readings; the
// journal records every press-release cycle, including the ones that failed
// mid-pipeline, so the operator can see what the station actually heard and
// where an attempt broke down.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status classifies the outcome of one capture attempt.
type Status string

const (
	// StatusLogged means the full pipeline succeeded and a row was
	// appended to the dataset.
	StatusLogged Status = "logged"

	// StatusNoAudio means the session flushed without any buffered audio.
	StatusNoAudio Status = "no_audio"

	// StatusTranscribeFailed means the speech model returned an error.
	StatusTranscribeFailed Status = "transcribe_failed"

	// StatusExtractFailed means no valid structured record could be
	// derived from the transcript.
	StatusExtractFailed Status = "extract_failed"

	// StatusAppendFailed means the record was valid but the dataset write
	// failed.
	StatusAppendFailed Status = "append_failed"
)

// Entry is one journaled capture attempt. Category, Value and Unit are only
// meaningful when the attempt reached extraction; Error is empty on success.
type Entry struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	ClipPath   string    `json:"clipPath,omitempty"`
	Simulated  bool      `json:"simulated"`
	Transcript string    `json:"transcript,omitempty"`
	Confidence float64   `json:"confidence"`
	Category   string    `json:"category,omitempty"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Journal is an open capture journal. Safe for concurrent use.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	clip_path TEXT NOT NULL DEFAULT '',
	simulated INTEGER NOT NULL DEFAULT 0,
	transcript TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	value REAL NOT NULL DEFAULT 0,
	unit TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_captures_started_at ON captures(started_at);
`

// Open opens (creating if necessary) the journal database at path. Use
// ":memory:" for an ephemeral journal in tests.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping verifies the database is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	if err := j.db.PingContext(ctx); err != nil {
		return fmt.Errorf("journal: ping database: %w", err)
	}
	return nil
}

// Record stores one capture attempt. A missing ID is assigned; a missing
// FinishedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Status == "" {
		return errors.New("journal: entry status must not be empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = e.FinishedAt
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO captures (id, started_at, finished_at, clip_path, simulated,
			transcript, confidence, category, value, unit, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.ClipPath, boolToInt(e.Simulated),
		e.Transcript, e.Confidence, e.Category, e.Value, e.Unit, string(e.Status), e.Error)
	if err != nil {
		return fmt.Errorf("journal: insert capture: %w", err)
	}
	return nil
}

// Recent returns the most recent capture attempts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, clip_path, simulated,
			transcript, confidence, category, value, unit, status, error
		FROM captures
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query captures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                    Entry
			startedAt, finished  int64
			simulated            int
			status               string
		)
		if err := rows.Scan(&e.ID, &startedAt, &finished, &e.ClipPath, &simulated,
			&e.Transcript, &e.Confidence, &e.Category, &e.Value, &e.Unit, &status, &e.Error); err != nil {
			return nil, fmt.Errorf("journal: scan capture: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedAt)
		e.FinishedAt = time.UnixMilli(finished)
		e.Simulated = simulated != 0
		e.Status = Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate captures: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
