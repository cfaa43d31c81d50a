// Package indicator provides a fixed capacity rolling OHLCV window and the
// technical indicators computed from it.
package indicator

import "github.com/helix-quant/cta-trading/internal/types"

// Window is a fixed capacity circular buffer of OHLCV bars. Indicators are
// pure reads over the buffer and never mutate it. Until the window has seen
// its full capacity of bars every indicator returns a neutral default (0, or
// 50 for RSI), so callers never special-case startup.
type Window struct {
	capacity int
	count    int
	head     int

	open   []float64
	high   []float64
	low    []float64
	close  []float64
	volume []float64
}

// NewWindow creates a window holding the most recent capacity bars.
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}

	return &Window{
		capacity: capacity,
		count:    0,
		head:     0,
		open:     make([]float64, capacity),
		high:     make([]float64, capacity),
		low:      make([]float64, capacity),
		close:    make([]float64, capacity),
		volume:   make([]float64, capacity),
	}
}

// Update appends a closed bar, evicting the oldest when full.
func (w *Window) Update(bar types.Bar) {
	w.open[w.head] = bar.Open
	w.high[w.head] = bar.High
	w.low[w.head] = bar.Low
	w.close[w.head] = bar.Close
	w.volume[w.head] = bar.Volume

	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Initialized reports whether the window has received at least capacity bars.
func (w *Window) Initialized() bool {
	return w.count >= w.capacity
}

// Count returns the number of bars observed, capped at capacity.
func (w *Window) Count() int {
	return w.count
}

// Capacity returns the configured window size.
func (w *Window) Capacity() int {
	return w.capacity
}

// Closes returns the close prices in chronological order.
func (w *Window) Closes() []float64 {
	return w.series(w.close)
}

// Highs returns the high prices in chronological order.
func (w *Window) Highs() []float64 {
	return w.series(w.high)
}

// Lows returns the low prices in chronological order.
func (w *Window) Lows() []float64 {
	return w.series(w.low)
}

// Volumes returns the volumes in chronological order.
func (w *Window) Volumes() []float64 {
	return w.series(w.volume)
}

// LastClose returns the most recent close price, or 0 when empty.
func (w *Window) LastClose() float64 {
	if w.count == 0 {
		return 0
	}

	idx := (w.head - 1 + w.capacity) % w.capacity

	return w.close[idx]
}

func (w *Window) series(buf []float64) []float64 {
	out := make([]float64, w.count)

	start := 0
	if w.count == w.capacity {
		start = w.head
	}

	for i := 0; i < w.count; i++ {
		out[i] = buf[(start+i)%w.capacity]
	}

	return out
}

// lastN returns the trailing n values of a chronological series, or nil when
// fewer than n are available.
func lastN(series []float64, n int) []float64 {
	if n <= 0 || len(series) < n {
		return nil
	}

	return series[len(series)-n:]
}
