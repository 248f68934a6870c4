package extract

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// maxCategoryDistance is the Damerau-Levenshtein distance (on the lowercased
// strings) within which a model-reported category snaps to a canonical label.
// Two edits covers the drift actually observed from small local models
// ("bench-press", "Benchpress", "Deadlifts") without capturing free labels.
const maxCategoryDistance = 2

// CanonicalizeCategory maps a model-reported category string onto the
// canonical label set. Exact matches (case- and separator-insensitive) win;
// otherwise the nearest canonical label within [maxCategoryDistance] edits is
// chosen. Strings matching nothing are returned trimmed as free categories.
func CanonicalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	normalized := normalizeLabel(trimmed)

	best := ""
	bestDist := maxCategoryDistance + 1
	for _, canonical := range CanonicalCategories {
		cn := normalizeLabel(canonical)
		if normalized == cn {
			return canonical
		}
		if d := matchr.DamerauLevenshtein(normalized, cn); d < bestDist {
			best = canonical
			bestDist = d
		}
	}
	if best != "" {
		return best
	}
	return trimmed
}

// normalizeLabel lowercases a label and drops separators so that
// "bench-press", "Benchpress", and "Bench Press" compare equal.
func normalizeLabel(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}
