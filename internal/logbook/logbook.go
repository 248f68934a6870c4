// Package logbook owns the durable dataset: an append-only delimited file
// with one `date,category,value` row per data point. It is the single source
// of truth shared between the capture station (writer) and the dashboard
// (reader) — there is no other coordination between the two processes.
//
// Append semantics are crash-safe for that arrangement: each row is
// serialised into one buffer and written with a single Write call on an
// O_APPEND descriptor followed by fsync, so a crash can truncate at most the
// final row and can never interleave two rows. The reader tolerates the torn
// remainder by skipping any row that fails to parse.
package logbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used in the dataset.
const DateLayout = "2006-01-02"

// header is the column row written when a new dataset file is created.
var header = []string{"date", "category", "value"}

// DataPoint is one immutable row of the durable dataset. Rows are never
// updated or deleted once written.
type DataPoint struct {
	// Date is the calendar date of the reading (time component zero, UTC).
	Date time.Time

	// Category is the reading's category label.
	Category string

	// Value is the numeric reading.
	Value float64
}

// Log reads and appends the dataset file at a fixed path.
type Log struct {
	path string
}

// New creates a Log for the dataset file at path. The file is created lazily
// on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the dataset file path.
func (l *Log) Path() string { return l.path }

// Append writes one data point as a single row. The header is included in
// the same write when the file is new or empty, so even the first append is
// a single atomic-enough write.
func (l *Log) Append(p DataPoint) error {
	if p.Category == "" {
		return errors.New("logbook: category must not be empty")
	}
	if p.Date.IsZero() {
		return errors.New("logbook: date must not be zero")
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logbook: create dataset dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open dataset: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("logbook: stat dataset: %w", err)
	}
	switch {
	case info.Size() == 0:
		if err := w.Write(header); err != nil {
			return fmt.Errorf("logbook: encode header: %w", err)
		}
	default:
		// A crash during a previous append may have left a torn row
		// without its trailing newline. Start a fresh line so this row
		// cannot be glued onto the remnant; the reader skips the torn
		// line on its own.
		var last [1]byte
		if _, err := f.ReadAt(last[:], info.Size()-1); err != nil {
			return fmt.Errorf("logbook: inspect dataset tail: %w", err)
		}
		if last[0] != '\n' {
			buf.WriteByte('\n')
		}
	}
	row := []string{
		p.Date.Format(DateLayout),
		p.Category,
		strconv.FormatFloat(p.Value, 'f', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("logbook: encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("logbook: encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("logbook: append row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("logbook: sync dataset: %w", err)
	}
	return nil
}

// Load reads the full dataset. A missing file is not an error — the station
// simply has not logged anything yet — and yields an empty slice. Rows that
// fail to parse (including a torn final row from a concurrent append) are
// skipped. Additional columns beyond the first three are ignored.
func (l *Log) Load() ([]DataPoint, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logbook: open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var points []DataPoint
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Malformed row; move on to the next one.
				continue
			}
			return nil, fmt.Errorf("logbook: read dataset: %w", err)
		}
		p, ok := parseRow(row)
		if !ok {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// parseRow converts one CSV row into a DataPoint. Returns ok=false for the
// header row and any row with too few columns or unparseable fields.
func parseRow(row []string) (DataPoint, bool) {
	if len(row) < 3 {
		return DataPoint{}, false
	}
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(row[0]), time.UTC)
	if err != nil {
		return DataPoint{}, false
	}
	category := strings.TrimSpace(row[1])
	if category == "" {
		return DataPoint{}, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return DataPoint{}, false
	}
	return DataPoint{Date: date, Category: category, Value: value}, true
}
