package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/mwirth/ironlog/pkg/provider/llm"
	llmmock "github.com/mwirth/ironlog/pkg/provider/llm/mock"
)

func TestExtract_ValidResponse(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResult: &llm.CompletionResponse{
			Content: `{"category": "Bodyweight", "value": 85.2, "unit": "kg"}`,
		},
	}
	e := New(p)

	rec, err := e.Extract(context.Background(), "Körpergewicht fünfundachtzig Komma zwei Kilo")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := Record{Category: "Bodyweight", Value: 85.2, Unit: "kg"}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
	if p.CallCountComplete != 1 {
		t.Errorf("Complete called %d times, want 1", p.CallCountComplete)
	}
	req := p.RecordedRequests[0]
	if !req.JSONOnly {
		t.Error("request did not set JSONOnly")
	}
	if req.Temperature != 0 {
		t.Errorf("request temperature = %v, want 0", req.Temperature)
	}
}

func TestExtract_UnitOptional(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResult: &llm.CompletionResponse{
			Content: `{"category": "Squat", "value": 100}`,
		},
	}
	rec, err := New(p).Extract(context.Background(), "Kniebeugen hundert")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Unit != "" {
		t.Errorf("unit = %q, want empty", rec.Unit)
	}
	if rec.Value != 100 {
		t.Errorf("value = %v, want 100", rec.Value)
	}
}

func TestExtract_SchemaViolations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"null fields", `{"category": null, "value": null}`},
		{"missing value", `{"category": "Squat"}`},
		{"missing category", `{"value": 80}`},
		{"empty category", `{"category": "  ", "value": 80}`},
		{"value not a number", `{"category": "Squat", "value": "heavy"}`},
		{"not json", `I could not find a data point, sorry!`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &llmmock.Provider{
				CompleteResult: &llm.CompletionResponse{Content: tt.content},
			}
			_, err := New(p).Extract(context.Background(), "irgendwas")
			if !errors.Is(err, ErrSchemaViolation) {
				t.Errorf("err = %v, want ErrSchemaViolation", err)
			}
		})
	}
}

func TestExtract_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("service unavailable")
	p := &llmmock.Provider{CompleteError: boom}

	_, err := New(p).Extract(context.Background(), "Kreuzheben 110")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
	if errors.Is(err, ErrSchemaViolation) {
		t.Error("provider error must not be classified as a schema violation")
	}
}

func TestExtract_StripsCodeFence(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResult: &llm.CompletionResponse{
			Content: "```json\n{\"category\": \"Deadlift\", \"value\": 110}\n```",
		},
	}
	rec, err := New(p).Extract(context.Background(), "Kreuzheben hundertzehn")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Category != "Deadlift" || rec.Value != 110 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCanonicalizeCategory(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Bodyweight", "Bodyweight"},
		{"bodyweight", "Bodyweight"},
		{"bench press", "Bench Press"},
		{"Bench-Press", "Bench Press"},
		{"Benchpress", "Bench Press"},
		{"deadlifts", "Deadlift"},
		{"Squats", "Squat"},
		{"squt", "Squat"},
		{"Running", "Running"},       // free category preserved
		{" Pull Ups ", "Pull Ups"},   // trimmed, not snapped
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalizeCategory(tt.in); got != tt.want {
				t.Errorf("CanonicalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
