package logbook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fitness.csv")
	log := New(path)

	err := log.Append(DataPoint{Date: day(t, "2026-03-01"), Category: "Bodyweight", Value: 85.2})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	want := "date,category,value\n2026-03-01,Bodyweight,85.2\n"
	if string(raw) != want {
		t.Errorf("dataset = %q, want %q", raw, want)
	}
}

func TestAppendDoesNotRepeatHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fitness.csv")
	log := New(path)

	points := []DataPoint{
		{Date: day(t, "2026-03-01"), Category: "Bodyweight", Value: 85.2},
		{Date: day(t, "2026-03-02"), Category: "Bench Press", Value: 60},
	}
	for _, p := range points {
		if err := log.Append(p); err != nil {
			t.Fatalf("Append(%v) error = %v", p, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	if got := strings.Count(string(raw), "date,category,value"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
}

func TestAppendCreatesMissingDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "fitness.csv")
	log := New(path)

	err := log.Append(DataPoint{Date: day(t, "2026-03-01"), Category: "Squat", Value: 70})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("dataset file not created: %v", err)
	}
}

func TestAppendRejectsInvalidPoints(t *testing.T) {
	t.Parallel()
	log := New(filepath.Join(t.TempDir(), "fitness.csv"))

	if err := log.Append(DataPoint{Date: day(t, "2026-03-01"), Value: 1}); err == nil {
		t.Error("Append() with empty category: expected error")
	}
	if err := log.Append(DataPoint{Category: "Squat", Value: 1}); err == nil {
		t.Error("Append() with zero date: expected error")
	}
	if _, err := os.Stat(log.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("invalid append must not create the file, stat err = %v", err)
	}
}

func TestLoadMissingFileYieldsEmpty(t *testing.T) {
	t.Parallel()
	log := New(filepath.Join(t.TempDir(), "does-not-exist.csv"))

	points, err := log.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Load() = %v, want empty", points)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()
	log := New(filepath.Join(t.TempDir(), "fitness.csv"))

	want := []DataPoint{
		{Date: day(t, "2026-03-01"), Category: "Bodyweight", Value: 85.2},
		{Date: day(t, "2026-03-01"), Category: "Deadlift", Value: 100},
		{Date: day(t, "2026-03-03"), Category: "Bench Press", Value: 62.5},
	}
	for _, p := range want {
		if err := log.Append(p); err != nil {
			t.Fatalf("Append(%v) error = %v", p, err)
		}
	}

	got, err := log.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() returned %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Date.Equal(want[i].Date) || got[i].Category != want[i].Category || got[i].Value != want[i].Value {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fitness.csv")
	content := strings.Join([]string{
		"date,category,value",
		"2026-03-01,Bodyweight,85.2",
		"not-a-date,Bodyweight,85.2",
		"2026-03-02,,70",
		"2026-03-02,Squat,not-a-number",
		"2026-03-03,Squat",
		"2026-03-04,Deadlift,100,extra,columns",
		"2026-03-05,Bench", // torn final row
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	got, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []DataPoint{
		{Date: day(t, "2026-03-01"), Category: "Bodyweight", Value: 85.2},
		{Date: day(t, "2026-03-04"), Category: "Deadlift", Value: 100},
	}
	if len(got) != len(want) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
	for i := range want {
		if !got[i].Date.Equal(want[i].Date) || got[i].Category != want[i].Category || got[i].Value != want[i].Value {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAppendAfterManualTruncation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fitness.csv")
	log := New(path)

	if err := log.Append(DataPoint{Date: day(t, "2026-03-01"), Category: "Squat", Value: 70}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Simulate a crash that tore the last row mid-write.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	torn := raw[:len(raw)-4]
	if err := os.WriteFile(path, torn, 0o644); err != nil {
		t.Fatalf("truncate dataset: %v", err)
	}

	if err := log.Append(DataPoint{Date: day(t, "2026-03-02"), Category: "Squat", Value: 75}); err != nil {
		t.Fatalf("Append() after truncation error = %v", err)
	}

	got, err := log.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// The torn row is gone but the new row survives intact.
	if len(got) != 1 {
		t.Fatalf("Load() = %+v, want exactly the fresh row", got)
	}
	if got[0].Category != "Squat" || got[0].Value != 75 {
		t.Errorf("surviving row = %+v, want Squat 75", got[0])
	}
}

func TestLoadFailsOnUnreadablePath(t *testing.T) {
	log := New(t.TempDir())

	if _, err := log.Load(); err == nil {
		t.Fatal("Load() on a directory should fail, not spin or return data")
	}
}
