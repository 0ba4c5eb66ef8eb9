package series

import (
	"fmt"
	"math"
	"sort"

	"github.com/Alias1177/TrendScreener/models"
)

// DuplicatePolicy decides what happens to bars sharing a timestamp
type DuplicatePolicy string

const (
	// KeepLast drops every duplicate except the one the source sent last
	KeepLast DuplicatePolicy = "last"
	// Reject fails the symbol with models.ErrDuplicateTimestamp
	Reject DuplicatePolicy = "reject"
	// PassThrough keeps duplicates as separate bars
	PassThrough DuplicatePolicy = "keep"
)

// ParsePolicy validates a configured policy name
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case KeepLast, Reject, PassThrough:
		return p, nil
	default:
		return "", models.InvalidParameter("DUPLICATE_POLICY", "unknown policy %q", s)
	}
}

// Normalize sorts bars ascending by timestamp, keeping the source order of
// equal timestamps, then applies the duplicate policy. The input is not modified.
func Normalize(bars []models.Bar, policy DuplicatePolicy) ([]models.Bar, error) {
	sorted := make([]models.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	if policy == PassThrough {
		return sorted, nil
	}

	out := make([]models.Bar, 0, len(sorted))
	for i, b := range sorted {
		if i > 0 && b.Timestamp.Equal(sorted[i-1].Timestamp) {
			if policy == Reject {
				return nil, fmt.Errorf("%w at %s", models.ErrDuplicateTimestamp, b.Timestamp.Format("2006-01-02 15:04:05"))
			}
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Closes extracts close prices. A non-positive close is missing data and
// becomes NaN, which the indicator engine reads as undefined.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if b.Close > 0 {
			out[i] = b.Close
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
