package indicator

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the moving average convergence divergence over the window's
// closes. The MACD series is the difference of the fast and slow EMAs walked
// across the whole window; the signal line is an EMA of that series. Returns
// the zero value until the window is initialized.
func (w *Window) MACD(fast, slow, signal int) MACDResult {
	if !w.Initialized() || fast >= slow {
		return MACDResult{}
	}

	closes := w.Closes()
	if len(closes) < slow {
		return MACDResult{}
	}

	fastAlpha := 2.0 / (float64(fast) + 1.0)
	slowAlpha := 2.0 / (float64(slow) + 1.0)

	fastEMA := closes[0]
	slowEMA := closes[0]
	macdSeries := make([]float64, 0, len(closes))

	for i, price := range closes {
		if i > 0 {
			fastEMA = fastAlpha*price + (1-fastAlpha)*fastEMA
			slowEMA = slowAlpha*price + (1-slowAlpha)*slowEMA
		}

		macdSeries = append(macdSeries, fastEMA-slowEMA)
	}

	macd := macdSeries[len(macdSeries)-1]
	signalLine := emaOf(macdSeries, signal)

	return MACDResult{
		MACD:      macd,
		Signal:    signalLine,
		Histogram: macd - signalLine,
	}
}
