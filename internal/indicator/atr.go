package indicator

import "math"

// ATR returns the average true range over the last n periods. The true range
// of a bar is the greatest of high-low, |high-prevClose| and |low-prevClose|.
// Returns 0 until the window is initialized.
func (w *Window) ATR(n int) float64 {
	if !w.Initialized() {
		return 0
	}

	highs := lastN(w.Highs(), n+1)
	lows := lastN(w.Lows(), n+1)
	closes := lastN(w.Closes(), n+1)

	if highs == nil || lows == nil || closes == nil {
		return 0
	}

	sum := 0.0

	for i := 1; i <= n; i++ {
		highLow := highs[i] - lows[i]
		highClose := math.Abs(highs[i] - closes[i-1])
		lowClose := math.Abs(lows[i] - closes[i-1])

		sum += math.Max(highLow, math.Max(highClose, lowClose))
	}

	return sum / float64(n)
}
