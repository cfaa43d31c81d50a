package indicator

// EMA returns the exponential moving average over the last n closes using the
// recursive form ema[t] = alpha*price[t] + (1-alpha)*ema[t-1], alpha =
// 2/(n+1), seeded with the first price of the span. Returns 0 until the
// window is initialized.
func (w *Window) EMA(n int) float64 {
	if !w.Initialized() {
		return 0
	}

	values := lastN(w.Closes(), n)
	if values == nil {
		return 0
	}

	return emaOf(values, n)
}

func emaOf(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}

	alpha := 2.0 / (float64(n) + 1.0)

	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}

	return ema
}
