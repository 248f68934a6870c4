// Package aggregate turns the durable dataset into per-category time series
// for charting. The whole computation is pure and in-memory: it is recomputed
// from the full dataset on every dashboard poll cycle and never persisted.
package aggregate

import (
	"sort"
	"time"

	"github.com/mwirth/ironlog/internal/extract"
	"github.com/mwirth/ironlog/internal/logbook"
)

// Granularity is the time-bucket size chosen for a build.
type Granularity string

const (
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

const (
	// windowDays is the trailing window: 52 weeks relative to the latest
	// recorded date. A point dated exactly 52 weeks before the latest is
	// still inside the window.
	windowDays = 52 * 7

	// weeklyThresholdDays switches bucketing from daily to weekly once the
	// retained data spans at least this many days.
	weeklyThresholdDays = 30
)

// Point is one bucketed statistic.
type Point struct {
	Bucket time.Time `json:"bucket"`
	Value  float64   `json:"value"`
}

// Series is the chart-ready reduction of one category.
type Series struct {
	Category string  `json:"category"`
	Points   []Point `json:"points"`
}

// Result is one complete aggregation pass over the dataset.
type Result struct {
	// Empty reports that the dataset held no points at all; the consumer
	// renders a waiting state instead of charts.
	Empty bool `json:"empty"`

	// Granularity is the bucket size shared by all series.
	Granularity Granularity `json:"granularity"`

	// AxisFormat is a rendering hint for bucket labels on the time axis.
	AxisFormat string `json:"axisFormat"`

	// Latest is the most recent date present in the dataset, the anchor of
	// the trailing window.
	Latest time.Time `json:"latest"`

	// Series holds one entry per fixed category that has at least one point
	// inside the window, in canonical category order. A fixed category with
	// no entry here must be shown as "no data", not as an empty chart.
	Series []Series `json:"series"`
}

// SeriesFor returns the series for a category, or ok=false when the category
// has no points inside the window.
func (r Result) SeriesFor(category string) (Series, bool) {
	for _, s := range r.Series {
		if s.Category == category {
			return s, true
		}
	}
	return Series{}, false
}

// Build aggregates the full dataset:
//
//  1. Anchor a 52-week trailing window on the latest date present and drop
//     everything older.
//  2. Bucket daily when the retained points span fewer than 30 days,
//     otherwise by ISO week (Monday start).
//  3. Reduce each (bucket, category) group to one statistic: mean for
//     Bodyweight, max for the lift categories. Categories outside the fixed
//     set are not plotted.
//
// The computation is deterministic: the same input always yields the same
// result.
func Build(points []logbook.DataPoint) Result {
	if len(points) == 0 {
		return Result{Empty: true}
	}

	latest := dateOnly(points[0].Date)
	for _, p := range points[1:] {
		if d := dateOnly(p.Date); d.After(latest) {
			latest = d
		}
	}
	windowStart := latest.AddDate(0, 0, -windowDays)

	var retained []logbook.DataPoint
	earliest := latest
	for _, p := range points {
		d := dateOnly(p.Date)
		if d.Before(windowStart) {
			continue
		}
		retained = append(retained, logbook.DataPoint{Date: d, Category: p.Category, Value: p.Value})
		if d.Before(earliest) {
			earliest = d
		}
	}
	if len(retained) == 0 {
		return Result{Empty: true}
	}

	granularity := GranularityDaily
	axisFormat := "Jan 02"
	if spanDays(earliest, latest) >= weeklyThresholdDays {
		granularity = GranularityWeekly
		axisFormat = "Jan 02 (wk)"
	}

	// bucket → values, per category.
	grouped := make(map[string]map[time.Time][]float64)
	for _, p := range retained {
		if !isFixedCategory(p.Category) {
			continue
		}
		bucket := p.Date
		if granularity == GranularityWeekly {
			bucket = weekStart(p.Date)
		}
		byBucket := grouped[p.Category]
		if byBucket == nil {
			byBucket = make(map[time.Time][]float64)
			grouped[p.Category] = byBucket
		}
		byBucket[bucket] = append(byBucket[bucket], p.Value)
	}

	result := Result{
		Granularity: granularity,
		AxisFormat:  axisFormat,
		Latest:      latest,
	}
	for _, category := range extract.CanonicalCategories {
		byBucket := grouped[category]
		if len(byBucket) == 0 {
			continue
		}
		series := Series{Category: category, Points: make([]Point, 0, len(byBucket))}
		for bucket, values := range byBucket {
			series.Points = append(series.Points, Point{Bucket: bucket, Value: reduce(category, values)})
		}
		sort.Slice(series.Points, func(i, j int) bool {
			return series.Points[i].Bucket.Before(series.Points[j].Bucket)
		})
		result.Series = append(result.Series, series)
	}
	return result
}

// reduce collapses one bucket's values into its statistic: Bodyweight is a
// trend reading (mean), the lifts are best-effort records (max).
func reduce(category string, values []float64) float64 {
	if category == extract.CategoryBodyweight {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func isFixedCategory(category string) bool {
	for _, c := range extract.CanonicalCategories {
		if category == c {
			return true
		}
	}
	return false
}

// dateOnly strips any time-of-day component, pinning the point to a UTC
// calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// spanDays is the whole number of days between two calendar dates.
func spanDays(earliest, latest time.Time) int {
	return int(latest.Sub(earliest) / (24 * time.Hour))
}

// weekStart returns the Monday of the ISO week containing d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
