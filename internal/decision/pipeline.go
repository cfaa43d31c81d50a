// Package decision shapes raw strategy signals into sized, filtered trade
// decisions. Strategies that want declarative signal shaping route their
// signals through a Pipeline instead of issuing order intents directly.
package decision

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/types"
)

// RawSignal is an unshaped trading signal emitted by a strategy.
type RawSignal struct {
	Action   types.DecisionAction
	Strength float64
	Price    float64
	Reason   string
	Time     time.Time
}

// MarketContext carries the market state the filters and sizers evaluate
// against. Volatility is supplied by the caller (e.g. ATR over price); the
// pipeline does not compute it.
type MarketContext struct {
	Price      float64
	Volatility float64
	Volume     float64
	Session    string
}

// PortfolioContext carries the account state of the owning strategy instance.
type PortfolioContext struct {
	Position        float64
	AvailableMargin float64
	UnrealizedPnL   float64
	DailyPnL        float64
	MaxPosition     int
}

// Pipeline runs a veto filter chain, adjusts the action against current
// exposure and sizes the resulting decision.
type Pipeline struct {
	filters      []Filter
	sizer        Sizer
	minInterval  time.Duration
	lastDecision time.Time
	log          *logger.Logger
}

// NewPipeline builds a pipeline. A nil sizer falls back to a fixed size of 1.
func NewPipeline(filters []Filter, sizer Sizer, minInterval time.Duration, log *logger.Logger) *Pipeline {
	if sizer == nil {
		sizer = &FixedSizer{Base: 1}
	}

	return &Pipeline{
		filters:      filters,
		sizer:        sizer,
		minInterval:  minInterval,
		lastDecision: time.Time{},
		log:          log,
	}
}

// Evaluate shapes a raw signal into a Decision. A vetoed, throttled or
// zero-quantity signal yields a HOLD decision with the veto reason.
func (p *Pipeline) Evaluate(signal RawSignal, market MarketContext, portfolio PortfolioContext) types.Decision {
	if signal.Action != types.DecisionBuy && signal.Action != types.DecisionSell {
		return hold("unsupported signal action")
	}

	if p.minInterval > 0 && !p.lastDecision.IsZero() && signal.Time.Sub(p.lastDecision) < p.minInterval {
		return hold("minimum decision interval not elapsed")
	}

	for _, filter := range p.filters {
		if ok, reason := filter.Evaluate(signal, market, portfolio); !ok {
			p.log.Debug("Signal vetoed",
				zap.String("filter", filter.Name()),
				zap.String("reason", reason),
			)

			return hold(reason)
		}
	}

	action := adjustAction(signal.Action, portfolio.Position)

	quantity := p.sizer.Size(signal, market, portfolio)
	quantity = clampQuantity(quantity, action, portfolio)

	if quantity <= 0 {
		return hold("sized quantity is zero")
	}

	p.lastDecision = signal.Time

	return types.Decision{
		Action:     action,
		Quantity:   quantity,
		Price:      signal.Price,
		Confidence: clampUnit(signal.Strength),
		Reason:     signal.Reason,
	}
}

// adjustAction prevents a single decision from opening exposure that
// conflicts with the current position: a buy while short closes the short, a
// sell while long closes the long.
func adjustAction(action types.DecisionAction, position float64) types.DecisionAction {
	if action == types.DecisionBuy && position < 0 {
		return types.DecisionCloseShort
	}

	if action == types.DecisionSell && position > 0 {
		return types.DecisionCloseLong
	}

	return action
}

// clampQuantity bounds the sized quantity to the remaining capacity under the
// position limit, or to the held volume for closing actions.
func clampQuantity(quantity int, action types.DecisionAction, portfolio PortfolioContext) int {
	if quantity <= 0 {
		return 0
	}

	switch action {
	case types.DecisionBuy:
		remaining := float64(portfolio.MaxPosition) - math.Max(portfolio.Position, 0)
		quantity = minInt(quantity, int(remaining))
	case types.DecisionSell:
		remaining := float64(portfolio.MaxPosition) + math.Min(portfolio.Position, 0)
		quantity = minInt(quantity, int(remaining))
	case types.DecisionCloseShort, types.DecisionCloseLong:
		quantity = minInt(quantity, int(math.Abs(portfolio.Position)))
	case types.DecisionHold:
		return 0
	}

	if quantity < 0 {
		return 0
	}

	return quantity
}

func hold(reason string) types.Decision {
	return types.Decision{
		Action:     types.DecisionHold,
		Quantity:   0,
		Price:      0,
		Confidence: 0,
		Reason:     reason,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
