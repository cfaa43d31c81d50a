package strategy

import (
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/decision"
	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// RSIReversion is a mean reversion strategy. It buys when RSI drops below the
// oversold level, shorts when RSI rises above the overbought level and
// flattens once RSI crosses back through the midline. Raw signals are shaped
// by a decision pipeline before any order intent is issued, so entries are
// filtered, direction adjusted against current exposure and sized under the
// position cap.
type RSIReversion struct {
	base *Template

	period     int
	oversold   float64
	overbought float64
	size       float64

	pipeline *decision.Pipeline
}

// NewRSIReversion builds an RSIReversion from instance parameters. Optional
// parameters shape the pipeline: entry_start/entry_end restrict entries to a
// clock window (both required together), max_volatility caps the ATR band and
// min_signal_interval throttles consecutive decisions.
func NewRSIReversion(base *Template, params Params) (Hooks, error) {
	period := params.Int("period", 14)
	if period <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidPeriod, "rsi_reversion period must be positive")
	}

	oversold := params.Float("oversold", 30)
	overbought := params.Float("overbought", 70)

	if oversold >= overbought {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"rsi_reversion oversold %.1f must be below overbought %.1f", oversold, overbought)
	}

	size := params.Float("size", 1)
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "rsi_reversion size must be positive")
	}

	filters, err := buildFilters(params)
	if err != nil {
		return nil, err
	}

	pipeline := decision.NewPipeline(
		filters,
		&decision.FixedSizer{Base: int(size)},
		params.Duration("min_signal_interval", 0),
		base.deps.Logger,
	)

	return &RSIReversion{
		base:       base,
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		size:       size,
		pipeline:   pipeline,
	}, nil
}

// buildFilters assembles the veto chain from instance parameters. The
// position limit filter is always present; the rest are opt-in.
func buildFilters(params Params) ([]decision.Filter, error) {
	filters := []decision.Filter{&decision.PositionLimitFilter{}}

	_, hasStart := params["entry_start"]
	_, hasEnd := params["entry_end"]

	if hasStart || hasEnd {
		if !hasStart {
			return nil, errors.New(errors.ErrCodeMissingParameter, "entry_start is required when entry_end is set")
		}

		if !hasEnd {
			return nil, errors.New(errors.ErrCodeMissingParameter, "entry_end is required when entry_start is set")
		}

		filters = append(filters, &decision.TimeWindowFilter{
			Start: params.String("entry_start", ""),
			End:   params.String("entry_end", ""),
		})
	}

	if maxVol := params.Float("max_volatility", 0); maxVol > 0 {
		filters = append(filters, &decision.VolatilityFilter{
			Min: params.Float("min_volatility", 0),
			Max: maxVol,
		})
	}

	if loss := params.Float("daily_loss_limit", 0); loss < 0 {
		filters = append(filters, &decision.DailyLossFilter{Threshold: loss})
	}

	return filters, nil
}

// OnInit implements Hooks.
func (s *RSIReversion) OnInit() error { return nil }

// OnStart implements Hooks.
func (s *RSIReversion) OnStart() error { return nil }

// OnStop implements Hooks.
func (s *RSIReversion) OnStop() error { return nil }

// OnTick implements Hooks. RSIReversion trades on bar closes only.
func (s *RSIReversion) OnTick(_ types.Tick) {}

// OnBar implements Hooks.
func (s *RSIReversion) OnBar(bar types.Bar) {
	window := s.base.Window()
	if !window.Initialized() {
		return
	}

	rsi := window.RSI(s.period)
	pos := s.base.Position()

	signal, ok := s.rawSignal(rsi, pos, bar)
	if !ok {
		return
	}

	maxPosition := int(s.base.MaxPosition())
	if maxPosition <= 0 {
		maxPosition = int(s.size)
	}

	market := decision.MarketContext{
		Price:      bar.Close,
		Volatility: window.ATR(s.period),
		Volume:     bar.Volume,
		Session:    "",
	}
	portfolio := decision.PortfolioContext{
		Position:        pos,
		AvailableMargin: 0,
		UnrealizedPnL:   0,
		DailyPnL:        0,
		MaxPosition:     maxPosition,
	}

	verdict := s.pipeline.Evaluate(signal, market, portfolio)
	if verdict.Action == types.DecisionHold {
		s.base.deps.Logger.Debug("Signal held",
			zap.String("strategy", s.base.Name()),
			zap.Float64("rsi", rsi),
			zap.String("reason", verdict.Reason),
		)

		return
	}

	s.base.deps.Logger.Info("RSI decision",
		zap.String("strategy", s.base.Name()),
		zap.Float64("rsi", rsi),
		zap.String("action", string(verdict.Action)),
		zap.Int("quantity", verdict.Quantity),
	)

	s.base.TrySignal(func() {
		s.execute(verdict)
	})
}

// rawSignal maps the RSI reading and current exposure to an unshaped signal.
// Entries fire at the band edges; the midline flattens an open position via a
// counter-directional signal the pipeline adjusts into a close.
func (s *RSIReversion) rawSignal(rsi, pos float64, bar types.Bar) (decision.RawSignal, bool) {
	signal := decision.RawSignal{
		Action:   types.DecisionHold,
		Strength: 1,
		Price:    bar.Close,
		Reason:   "",
		Time:     bar.Start,
	}

	switch {
	case rsi <= s.oversold && pos <= 0:
		signal.Action = types.DecisionBuy
		signal.Reason = "rsi oversold"
	case rsi >= s.overbought && pos >= 0:
		signal.Action = types.DecisionSell
		signal.Reason = "rsi overbought"
	case pos > 0 && rsi >= 50:
		signal.Action = types.DecisionSell
		signal.Reason = "rsi midline exit"
	case pos < 0 && rsi <= 50:
		signal.Action = types.DecisionBuy
		signal.Reason = "rsi midline exit"
	default:
		return signal, false
	}

	return signal, true
}

// execute issues the order intent for a shaped decision at market.
func (s *RSIReversion) execute(verdict types.Decision) {
	volume := float64(verdict.Quantity)

	switch verdict.Action {
	case types.DecisionBuy:
		s.base.Buy(0, volume)
	case types.DecisionSell:
		s.base.Short(0, volume)
	case types.DecisionCloseLong:
		s.base.Sell(0, volume)
	case types.DecisionCloseShort:
		s.base.Cover(0, volume)
	case types.DecisionHold:
	}
}

// OnOrder implements Hooks.
func (s *RSIReversion) OnOrder(_ string, _ types.OrderIntent) {}

// OnTrade implements Hooks.
func (s *RSIReversion) OnTrade(_ types.Trade) {}
