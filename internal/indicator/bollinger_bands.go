package indicator

import "math"

// BollingerBands holds the three band values for one point in time.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns bands centered on the n-period SMA, offset by k population
// standard deviations. Returns the zero value until the window is initialized.
func (w *Window) Bollinger(n int, k float64) BollingerBands {
	if !w.Initialized() {
		return BollingerBands{}
	}

	values := lastN(w.Closes(), n)
	if values == nil {
		return BollingerBands{}
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(n)

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	// Population standard deviation, not sample.
	stdDev := math.Sqrt(variance / float64(n))

	return BollingerBands{
		Upper:  mean + k*stdDev,
		Middle: mean,
		Lower:  mean - k*stdDev,
	}
}
