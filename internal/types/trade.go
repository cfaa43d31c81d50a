package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a broker reported fill. Trade IDs are unique per broker session and
// are used for at-most-once processing inside strategy instances.
type Trade struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	StrategyName string    `json:"strategy_name"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Action       Action    `json:"action"`
	Price        float64   `json:"price"`
	Volume       float64   `json:"volume"`
	Time         time.Time `json:"time"`
}

// SignedVolume returns the trade volume signed by its effect on net position.
// Opening long and closing short increase net exposure, the opposite pair
// decreases it.
func (t *Trade) SignedVolume() float64 {
	switch {
	case t.Direction == DirectionLong && t.Action == ActionOpen:
		return t.Volume
	case t.Direction == DirectionShort && t.Action == ActionClose:
		return t.Volume
	case t.Direction == DirectionShort && t.Action == ActionOpen:
		return -t.Volume
	case t.Direction == DirectionLong && t.Action == ActionClose:
		return -t.Volume
	default:
		return 0
	}
}

// PositionSnapshot is the broker reported position at FetchedAt. The external
// execution service is authoritative; snapshots are immutable once created.
type PositionSnapshot struct {
	Symbol    string    `json:"symbol"`
	Net       float64   `json:"net"`
	Long      float64   `json:"long"`
	Short     float64   `json:"short"`
	AvgPrice  float64   `json:"avg_price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Notional returns the absolute notional value of the net position at the
// average entry price.
func (p *PositionSnapshot) Notional() float64 {
	net := decimal.NewFromFloat(p.Net).Abs()
	avg := decimal.NewFromFloat(p.AvgPrice)

	result, _ := net.Mul(avg).Float64()

	return result
}

// UnrealizedPnL computes the mark-to-market PnL of the net position against
// the given price.
func (p *PositionSnapshot) UnrealizedPnL(markPrice float64) float64 {
	net := decimal.NewFromFloat(p.Net)
	diff := decimal.NewFromFloat(markPrice).Sub(decimal.NewFromFloat(p.AvgPrice))

	result, _ := net.Mul(diff).Float64()

	return result
}
