// Package market folds raw tick streams into fixed interval OHLCV bars.
package market

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/helix-quant/cta-trading/internal/types"
)

// BarAggregator builds one-minute bars from a tick stream. It keeps at most
// one open bar per symbol; a tick whose minute-truncated timestamp differs
// from the open bar's closes that bar and opens a new one. A gap spanning
// several minutes still closes only the single open bar - missing bars are
// never synthesized.
type BarAggregator struct {
	open map[string]*types.Bar
}

// NewBarAggregator creates an empty aggregator.
func NewBarAggregator() *BarAggregator {
	return &BarAggregator{
		open: make(map[string]*types.Bar),
	}
}

// OnTick applies a tick to the symbol's open bar. When the tick starts a new
// minute the previous bar is returned closed, exactly once per boundary.
func (a *BarAggregator) OnTick(tick types.Tick) optional.Option[types.Bar] {
	minute := tick.Time.Truncate(time.Minute)

	current, ok := a.open[tick.Symbol]
	if !ok {
		a.open[tick.Symbol] = newBar(tick, minute)

		return optional.None[types.Bar]()
	}

	if current.Start.Equal(minute) {
		if tick.LastPrice > current.High {
			current.High = tick.LastPrice
		}

		if tick.LastPrice < current.Low {
			current.Low = tick.LastPrice
		}

		current.Close = tick.LastPrice
		current.Volume += tick.Volume

		return optional.None[types.Bar]()
	}

	closed := *current
	a.open[tick.Symbol] = newBar(tick, minute)

	return optional.Some(closed)
}

// OpenBar returns a copy of the symbol's open bar, if any.
func (a *BarAggregator) OpenBar(symbol string) optional.Option[types.Bar] {
	current, ok := a.open[symbol]
	if !ok {
		return optional.None[types.Bar]()
	}

	return optional.Some(*current)
}

func newBar(tick types.Tick, start time.Time) *types.Bar {
	return &types.Bar{
		Symbol:   tick.Symbol,
		Interval: types.IntervalOneMinute,
		Start:    start,
		Open:     tick.LastPrice,
		High:     tick.LastPrice,
		Low:      tick.LastPrice,
		Close:    tick.LastPrice,
		Volume:   tick.Volume,
	}
}

// KMinuteAggregator folds exactly K consecutive one-minute bars into a
// K-minute bar. It is a pure fold over closed bars, not tick driven; the
// accumulator resets every K bars.
type KMinuteAggregator struct {
	k     int
	count int
	acc   types.Bar
}

// NewKMinuteAggregator creates an aggregator emitting k-minute bars.
func NewKMinuteAggregator(k int) *KMinuteAggregator {
	if k < 1 {
		k = 1
	}

	return &KMinuteAggregator{
		k:     k,
		count: 0,
		acc:   types.Bar{},
	}
}

// OnBar folds a closed one-minute bar into the accumulator. The folded
// K-minute bar is returned when the K-th bar arrives.
func (a *KMinuteAggregator) OnBar(bar types.Bar) optional.Option[types.Bar] {
	if a.count == 0 {
		a.acc = bar
		a.acc.Interval = types.MinuteInterval(a.k)
	} else {
		if bar.High > a.acc.High {
			a.acc.High = bar.High
		}

		if bar.Low < a.acc.Low {
			a.acc.Low = bar.Low
		}

		a.acc.Close = bar.Close
		a.acc.Volume += bar.Volume
	}

	a.count++
	if a.count < a.k {
		return optional.None[types.Bar]()
	}

	folded := a.acc
	a.count = 0
	a.acc = types.Bar{}

	return optional.Some(folded)
}
