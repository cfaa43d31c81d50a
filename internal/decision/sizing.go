package decision

import "math"

// kellyCap bounds the Kelly fraction so a mis-estimated edge can never
// commit more than a quarter of available margin.
const kellyCap = 0.25

// Sizer converts a passed signal into an integer quantity. Sizers never
// clamp against the position limit; the pipeline does that.
type Sizer interface {
	Size(signal RawSignal, market MarketContext, portfolio PortfolioContext) int
}

// FixedSizer scales a fixed base size by signal strength.
type FixedSizer struct {
	Base int
}

func (s *FixedSizer) Size(signal RawSignal, _ MarketContext, _ PortfolioContext) int {
	return int(math.Round(float64(s.Base) * clampUnit(signal.Strength)))
}

// FixedFractionSizer commits a fixed fraction of available margin at the
// signal price.
type FixedFractionSizer struct {
	Fraction float64
}

func (s *FixedFractionSizer) Size(signal RawSignal, _ MarketContext, portfolio PortfolioContext) int {
	if signal.Price <= 0 || s.Fraction <= 0 {
		return 0
	}

	return int(math.Floor(s.Fraction * portfolio.AvailableMargin / signal.Price))
}

// VolatilityAdjustedSizer scales a fixed fraction inversely with realized
// volatility relative to a target: the quieter the market, the larger the
// size, capped at the unscaled fraction.
type VolatilityAdjustedSizer struct {
	Fraction         float64
	TargetVolatility float64
}

func (s *VolatilityAdjustedSizer) Size(signal RawSignal, market MarketContext, portfolio PortfolioContext) int {
	if signal.Price <= 0 || s.Fraction <= 0 {
		return 0
	}

	scale := 1.0
	if s.TargetVolatility > 0 && market.Volatility > 0 {
		scale = math.Min(s.TargetVolatility/market.Volatility, 1.0)
	}

	return int(math.Floor(s.Fraction * scale * portfolio.AvailableMargin / signal.Price))
}

// KellySizer approximates the Kelly criterion from an estimated win rate and
// win/loss ratio, bounded to kellyCap of available margin.
type KellySizer struct {
	WinRate      float64
	WinLossRatio float64
}

func (s *KellySizer) Size(signal RawSignal, _ MarketContext, portfolio PortfolioContext) int {
	if signal.Price <= 0 || s.WinLossRatio <= 0 {
		return 0
	}

	fraction := s.WinRate - (1-s.WinRate)/s.WinLossRatio
	if fraction <= 0 {
		return 0
	}

	fraction = math.Min(fraction, kellyCap)

	return int(math.Floor(fraction * portfolio.AvailableMargin / signal.Price))
}
