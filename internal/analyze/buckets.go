package analyze

import "github.com/Alias1177/TrendScreener/models"

// Bucket is one of the four report partitions
type Bucket int

const (
	AboveNoCross Bucket = iota
	BelowNoCross
	AboveCrossed
	BelowCrossed

	BucketCount = 4
)

// Buckets lists the partitions in report order
var Buckets = [BucketCount]Bucket{AboveNoCross, BelowNoCross, AboveCrossed, BelowCrossed}

func (b Bucket) String() string {
	switch b {
	case AboveNoCross:
		return "AboveNoCross"
	case BelowNoCross:
		return "BelowNoCross"
	case AboveCrossed:
		return "AboveCrossed"
	case BelowCrossed:
		return "BelowCrossed"
	default:
		return "None"
	}
}

// Band is the distance from the reference, in percent, a close may sit and
// still be reported
type Band struct {
	LowPercent  float64
	HighPercent float64
}

// Assign places a row in at most one bucket. It first splits on close versus
// reference, then on crossing. Rows with an undefined reference or crossing,
// or outside the band, get false.
func Assign(close, reference models.Value, crossing Crossing, band Band) (Bucket, bool) {
	c, ok := close.Get()
	if !ok {
		return 0, false
	}
	ref, ok := reference.Get()
	if !ok || crossing == CrossingUndefined {
		return 0, false
	}

	crossed := crossing == Crossed
	switch {
	case c >= ref:
		if c > (1+band.HighPercent/100)*ref {
			return 0, false
		}
		if crossed {
			return AboveCrossed, true
		}
		return AboveNoCross, true
	default:
		if c < (1-band.LowPercent/100)*ref {
			return 0, false
		}
		if crossed {
			return BelowCrossed, true
		}
		return BelowNoCross, true
	}
}
