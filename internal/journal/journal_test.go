package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{StartedAt: base, FinishedAt: base.Add(3 * time.Second), Transcript: "Körpergewicht 85,2 Kilo",
			Confidence: -0.21, Category: "Bodyweight", Value: 85.2, Unit: "kg", Status: StatusLogged},
		{StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + 2*time.Second),
			Transcript: "mumble", Status: StatusExtractFailed, Error: "response violates record schema"},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record(%+v) error = %v", e, err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Status != StatusExtractFailed || got[1].Status != StatusLogged {
		t.Errorf("Recent() order = [%s, %s], want newest first", got[0].Status, got[1].Status)
	}
	if got[1].Category != "Bodyweight" || got[1].Value != 85.2 || got[1].Unit != "kg" {
		t.Errorf("logged entry = %+v, want Bodyweight 85.2 kg", got[1])
	}
	if got[0].Error == "" {
		t.Error("failed entry must carry its error text")
	}
}

func TestRecordAssignsID(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := j.Record(ctx, Entry{Status: StatusNoAudio}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(got))
	}
	if got[0].ID == "" || got[1].ID == "" || got[0].ID == got[1].ID {
		t.Errorf("entries must get distinct generated IDs, got %q and %q", got[0].ID, got[1].ID)
	}
}

func TestRecordRejectsMissingStatus(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)

	if err := j.Record(context.Background(), Entry{Transcript: "text"}); err == nil {
		t.Error("Record() without status: expected error")
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := Entry{StartedAt: base.Add(time.Duration(i) * time.Minute), Status: StatusLogged}
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	got, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Recent(3) returned %d entries, want 3", len(got))
	}
}

func TestSimulatedFlagRoundTrip(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	e := Entry{Simulated: true, Transcript: "Bodyweight eighty five point two kilos.", Status: StatusLogged}
	if err := j.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	got, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || !got[0].Simulated {
		t.Errorf("Recent() = %+v, want one simulated entry", got)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	if err := j.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
