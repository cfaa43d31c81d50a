package decision

import (
	"fmt"
	"time"

	"github.com/helix-quant/cta-trading/internal/types"
)

// Filter may veto a signal before sizing. The chain short-circuits on the
// first veto.
type Filter interface {
	Name() string
	// Evaluate returns false and a reason when the signal must be vetoed.
	Evaluate(signal RawSignal, market MarketContext, portfolio PortfolioContext) (bool, string)
}

// TimeWindowFilter only passes signals whose clock time falls inside
// [Start, End], both "HH:MM". A window whose end precedes its start spans
// midnight.
type TimeWindowFilter struct {
	Start string
	End   string
}

func (f *TimeWindowFilter) Name() string { return "time_window" }

func (f *TimeWindowFilter) Evaluate(signal RawSignal, _ MarketContext, _ PortfolioContext) (bool, string) {
	start, err := minutesOfDay(f.Start)
	if err != nil {
		return false, fmt.Sprintf("invalid window start %q", f.Start)
	}

	end, err := minutesOfDay(f.End)
	if err != nil {
		return false, fmt.Sprintf("invalid window end %q", f.End)
	}

	now := signal.Time.Hour()*60 + signal.Time.Minute()

	inside := false
	if start <= end {
		inside = now >= start && now <= end
	} else {
		inside = now >= start || now <= end
	}

	if !inside {
		return false, fmt.Sprintf("outside trading window %s-%s", f.Start, f.End)
	}

	return true, ""
}

// VolatilityFilter rejects signals when market volatility leaves the
// configured band.
type VolatilityFilter struct {
	Min float64
	Max float64
}

func (f *VolatilityFilter) Name() string { return "volatility_band" }

func (f *VolatilityFilter) Evaluate(_ RawSignal, market MarketContext, _ PortfolioContext) (bool, string) {
	if market.Volatility < f.Min {
		return false, fmt.Sprintf("volatility %.4f below band minimum %.4f", market.Volatility, f.Min)
	}

	if f.Max > 0 && market.Volatility > f.Max {
		return false, fmt.Sprintf("volatility %.4f above band maximum %.4f", market.Volatility, f.Max)
	}

	return true, ""
}

// PositionLimitFilter rejects a same-direction signal once the position cap
// is reached. Signals that reduce exposure always pass.
type PositionLimitFilter struct{}

func (f *PositionLimitFilter) Name() string { return "position_limit" }

func (f *PositionLimitFilter) Evaluate(signal RawSignal, _ MarketContext, portfolio PortfolioContext) (bool, string) {
	limit := float64(portfolio.MaxPosition)

	if signal.Action == types.DecisionBuy && portfolio.Position >= limit {
		return false, fmt.Sprintf("long position %.0f at cap %.0f", portfolio.Position, limit)
	}

	if signal.Action == types.DecisionSell && portfolio.Position <= -limit {
		return false, fmt.Sprintf("short position %.0f at cap %.0f", portfolio.Position, limit)
	}

	return true, ""
}

// DailyLossFilter blocks new entries once the day's PnL breaches the
// configured negative threshold. Exposure reducing signals still pass so a
// losing book can be flattened.
type DailyLossFilter struct {
	// Threshold is negative, e.g. -5000.
	Threshold float64
}

func (f *DailyLossFilter) Name() string { return "daily_loss" }

func (f *DailyLossFilter) Evaluate(signal RawSignal, _ MarketContext, portfolio PortfolioContext) (bool, string) {
	if portfolio.DailyPnL > f.Threshold {
		return true, ""
	}

	opensLong := signal.Action == types.DecisionBuy && portfolio.Position >= 0
	opensShort := signal.Action == types.DecisionSell && portfolio.Position <= 0

	if opensLong || opensShort {
		return false, fmt.Sprintf("daily pnl %.2f breached loss threshold %.2f", portfolio.DailyPnL, f.Threshold)
	}

	return true, ""
}

func minutesOfDay(clock string) (int, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}

	return parsed.Hour()*60 + parsed.Minute(), nil
}
