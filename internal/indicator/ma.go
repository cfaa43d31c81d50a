package indicator

// SMA returns the simple moving average of the last n closes. Returns 0 until
// the window is initialized or when fewer than n closes are available.
func (w *Window) SMA(n int) float64 {
	if !w.Initialized() {
		return 0
	}

	values := lastN(w.Closes(), n)
	if values == nil {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(n)
}
