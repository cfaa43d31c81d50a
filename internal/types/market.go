package types

import (
	"fmt"
	"time"
)

// Tick is a single market data update for a symbol. Ticks are produced by the
// market data collaborator and are never mutated by the runtime.
type Tick struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Time      time.Time `json:"time" yaml:"time"`
	LastPrice float64   `json:"last_price" yaml:"last_price"`
	Volume    float64   `json:"volume" yaml:"volume"`
	BidPrice  float64   `json:"bid_price" yaml:"bid_price"`
	BidVolume float64   `json:"bid_volume" yaml:"bid_volume"`
	AskPrice  float64   `json:"ask_price" yaml:"ask_price"`
	AskVolume float64   `json:"ask_volume" yaml:"ask_volume"`
}

// Bar is an OHLCV summary over a fixed interval. Start is the truncated
// timestamp of the interval the bar covers.
type Bar struct {
	Symbol   string    `json:"symbol" yaml:"symbol"`
	Interval string    `json:"interval" yaml:"interval"`
	Start    time.Time `json:"start" yaml:"start"`
	Open     float64   `json:"open" yaml:"open"`
	High     float64   `json:"high" yaml:"high"`
	Low      float64   `json:"low" yaml:"low"`
	Close    float64   `json:"close" yaml:"close"`
	Volume   float64   `json:"volume" yaml:"volume"`
}

// Interval labels for aggregated bars.
const (
	IntervalOneMinute = "1m"
)

// MinuteInterval returns the interval label for an n-minute bar, e.g. "5m".
func MinuteInterval(n int) string {
	if n <= 1 {
		return IntervalOneMinute
	}

	return fmt.Sprintf("%dm", n)
}
