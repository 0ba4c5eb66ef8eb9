package calculate

import "github.com/Alias1177/TrendScreener/models"

// EMASeries calculates the exponential moving average at every position.
// The first value is the SMA of the first period closes. After an undefined
// input the average is seeded again from the next full window.
func EMASeries(values []models.Value, period int) []models.Value {
	out := make([]models.Value, len(values))

	// Multiplier for weighting the EMA
	multiplier := 2.0 / float64(period+1)

	var ema float64
	seeded := false
	for t := range values {
		price, ok := values[t].Get()
		if !ok {
			seeded = false
			continue
		}

		if !seeded {
			w, ok := window(values, t, period)
			if !ok {
				continue
			}
			ema = calculateAverage(w)
			seeded = true
			out[t] = models.Defined(ema)
			continue
		}

		ema = multiplier*price + (1-multiplier)*ema
		out[t] = models.Defined(ema)
	}

	return out
}
