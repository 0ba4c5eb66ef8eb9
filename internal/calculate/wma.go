package calculate

import "github.com/Alias1177/TrendScreener/models"

// calculateWMA weights the oldest value 1 and the newest len(values)
func calculateWMA(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	var sum float64
	for i, v := range values {
		sum += float64(i+1) * v
	}

	return sum / float64(n*(n+1)/2)
}

// WMASeries is the linearly weighted moving average at every position
func WMASeries(values []models.Value, period int) []models.Value {
	out := make([]models.Value, len(values))
	for t := range values {
		w, ok := window(values, t, period)
		if !ok {
			continue
		}
		out[t] = models.Defined(calculateWMA(w))
	}
	return out
}
