package calculate

import (
	"math"

	"github.com/Alias1177/TrendScreener/models"
)

// HullLengths returns the half and sqrt window sizes for an HMA period.
// Both are rounded half to even, so 5 gives a half length of 2 and 21 gives 10.
// Neither is allowed below 1.
func HullLengths(period int) (half, sqrt int) {
	half = int(math.RoundToEven(float64(period) / 2))
	sqrt = int(math.RoundToEven(math.Sqrt(float64(period))))
	if half < 1 {
		half = 1
	}
	if sqrt < 1 {
		sqrt = 1
	}
	return half, sqrt
}

// HMASeries calculates the Hull moving average:
// WMA(2*WMA(half) - WMA(period), sqrt)
func HMASeries(values []models.Value, period int) []models.Value {
	half, sqrt := HullLengths(period)

	wmaHalf := WMASeries(values, half)
	wmaFull := WMASeries(values, period)

	delta := make([]models.Value, len(values))
	for t := range values {
		h, okH := wmaHalf[t].Get()
		f, okF := wmaFull[t].Get()
		if okH && okF {
			delta[t] = models.Defined(2*h - f)
		}
	}

	return WMASeries(delta, sqrt)
}
