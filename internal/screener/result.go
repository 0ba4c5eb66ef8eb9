package screener

import (
	"github.com/Alias1177/TrendScreener/internal/analyze"
	"github.com/Alias1177/TrendScreener/models"
)

// UniverseRow is the latest annotated bar of one symbol
type UniverseRow struct {
	analyze.AnnotatedBar
	PreviousLabel analyze.Label
	Crossing      analyze.Crossing

	// Bucket is meaningful only when InBucket is set
	Bucket   analyze.Bucket
	InBucket bool
}

func newRow(tail analyze.Tail) UniverseRow {
	return UniverseRow{
		AnnotatedBar:  tail.Last,
		PreviousLabel: tail.PreviousLabel(),
		Crossing:      tail.Crossing(),
	}
}

// Failure accounts for a symbol that produced no row
type Failure struct {
	Symbol string
	Type   models.SecurityType
	Reason string
	Err    error
}

// Result is the aggregate of one run. Rows and Failures follow the input
// symbol order.
type Result struct {
	Rows         []UniverseRow
	Failures     []Failure
	Buckets      [analyze.BucketCount][]UniverseRow
	Indicators   []string
	ReferenceKey string
	Band         analyze.Band
}

// Partition fills Buckets from the rows' assignments
func (r *Result) Partition() {
	r.Buckets = [analyze.BucketCount][]UniverseRow{}
	for _, row := range r.Rows {
		if row.InBucket {
			r.Buckets[row.Bucket] = append(r.Buckets[row.Bucket], row)
		}
	}
}

// Symbols lists the symbols of a bucket in row order
func (r *Result) Symbols(b analyze.Bucket) []string {
	out := make([]string, 0, len(r.Buckets[b]))
	for _, row := range r.Buckets[b] {
		out = append(out, row.Symbol)
	}
	return out
}
