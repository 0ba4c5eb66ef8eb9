package calculate

import "github.com/Alias1177/TrendScreener/models"

// window returns the trailing values ending at t, or false when the window
// reaches before the start of the series or holds an undefined value
func window(values []models.Value, t, period int) ([]float64, bool) {
	if t-period+1 < 0 {
		return nil, false
	}
	out := make([]float64, period)
	for i := 0; i < period; i++ {
		v, ok := values[t-period+1+i].Get()
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// calculateAverage calculates simple average
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// SMASeries is the trailing simple mean at every position
func SMASeries(values []models.Value, period int) []models.Value {
	out := make([]models.Value, len(values))
	for t := range values {
		w, ok := window(values, t, period)
		if !ok {
			continue
		}
		out[t] = models.Defined(calculateAverage(w))
	}
	return out
}
