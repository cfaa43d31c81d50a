package indicator

// RSI returns the Wilder-style relative strength index over the last n price
// deltas. Returns the neutral 50 until the window is initialized or when the
// window cannot supply n deltas. A span with gains and zero average loss is a
// perfect uptrend and yields 100; a span with no movement at all yields 50.
func (w *Window) RSI(n int) float64 {
	if !w.Initialized() {
		return 50
	}

	closes := lastN(w.Closes(), n+1)
	if closes == nil {
		return 50
	}

	gains := make([]float64, 0, n)
	losses := make([]float64, 0, n)

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 0; i < n; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(n)
	avgLoss /= float64(n)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
