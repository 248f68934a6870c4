// Package extract turns free-form transcribed speech into validated
// structured records by delegating to an LLM provider with a fixed
// instruction prompt and a JSON response constraint.
//
// The contract is all-or-nothing: a call either returns a fully populated
// [Record] (category and value present, unit optional) or fails with a typed
// error. There is no partial-record return, no retry, and no local caching;
// each call is one outbound request.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mwirth/ironlog/pkg/provider/llm"
)

// Canonical category labels. Free categories outside this set are accepted
// by the extractor but ignored by the dashboard aggregation.
const (
	CategoryBodyweight = "Bodyweight"
	CategoryBenchPress = "Bench Press"
	CategorySquat      = "Squat"
	CategoryDeadlift   = "Deadlift"
)

// CanonicalCategories lists the fixed label set in display order.
var CanonicalCategories = []string{
	CategoryBodyweight,
	CategoryBenchPress,
	CategorySquat,
	CategoryDeadlift,
}

// ErrSchemaViolation indicates the extraction service responded, but the
// response did not satisfy the category/value schema. The response is never
// passed through best-effort; the violation surfaces to the operator.
var ErrSchemaViolation = errors.New("extract: response violates record schema")

// Record is a validated structured data point derived from free text.
type Record struct {
	// Category is the normalised category label.
	Category string `json:"category"`

	// Value is the numeric reading (e.g., kilograms).
	Value float64 `json:"value"`

	// Unit is the optional unit string reported by the model (e.g., "kg").
	Unit string `json:"unit,omitempty"`
}

// systemPrompt is the fixed instruction sent with every extraction request.
// The station's users speak German, so the prompt normalises the German gym
// vocabulary onto the canonical category set.
const systemPrompt = `You extract exactly one fitness data point from a transcribed voice note.

Respond with a single JSON object and nothing else:
  {"category": "<string>", "value": <number>, "unit": "<string, optional>"}

Rules:
- "category" must be one of: Bodyweight, Bench Press, Squat, Deadlift — or a
  short free-form label if none applies.
- Map German terms: Körpergewicht/Gewicht -> Bodyweight,
  Bankdrücken -> Bench Press, Kniebeugen -> Squat, Kreuzheben -> Deadlift.
- "value" is the numeric reading. Convert spelled-out numbers
  ("fünfundachtzig Komma zwei" -> 85.2).
- "unit" is the spoken unit if any ("Kilo" -> "kg"). Omit when unclear.
- If the note contains no extractable data point, respond with
  {"category": null, "value": null}.`

// Extractor produces Records from free text via an LLM provider.
type Extractor struct {
	provider llm.Provider
}

// New creates an Extractor backed by provider.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract sends text to the extraction service and returns the validated
// record. Returns an error wrapping [ErrSchemaViolation] when the response
// parses but misses category or value; transport and model errors are
// returned as-is from the provider.
func (e *Extractor) Extract(ctx context.Context, text string) (Record, error) {
	if strings.TrimSpace(text) == "" {
		return Record{}, fmt.Errorf("%w: empty input text", ErrSchemaViolation)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: text},
		},
		Temperature: 0,
		MaxTokens:   256,
		JSONOnly:    true,
	})
	if err != nil {
		return Record{}, fmt.Errorf("extract: completion: %w", err)
	}

	return parseResponse(resp.Content)
}

// payload mirrors the response-shape constraint. Pointer fields distinguish
// "absent" from zero values during validation.
type payload struct {
	Category *string  `json:"category"`
	Value    *float64 `json:"value"`
	Unit     string   `json:"unit"`
}

// parseResponse validates the raw model output against the record schema.
func parseResponse(content string) (Record, error) {
	raw := stripCodeFence(content)

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Record{}, fmt.Errorf("%w: invalid JSON: %v", ErrSchemaViolation, err)
	}
	if p.Category == nil || strings.TrimSpace(*p.Category) == "" {
		return Record{}, fmt.Errorf("%w: category missing", ErrSchemaViolation)
	}
	if p.Value == nil {
		return Record{}, fmt.Errorf("%w: value missing", ErrSchemaViolation)
	}
	if math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0) {
		return Record{}, fmt.Errorf("%w: value is not finite", ErrSchemaViolation)
	}

	return Record{
		Category: CanonicalizeCategory(*p.Category),
		Value:    *p.Value,
		Unit:     strings.TrimSpace(p.Unit),
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence, which smaller
// models emit even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
