package strategy

import (
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// MACross is a dual moving average trend follower. A fast SMA crossing above
// the slow SMA targets a long position, crossing below targets a short one.
// Signals are evaluated on closed bars only.
type MACross struct {
	base *Template

	fastPeriod int
	slowPeriod int
	size       float64

	prevFast float64
	prevSlow float64
	primed   bool
}

// NewMACross builds an MACross from instance parameters. Required parameters
// are fast_period and slow_period with fast < slow.
func NewMACross(base *Template, params Params) (Hooks, error) {
	fast := params.Int("fast_period", 5)
	slow := params.Int("slow_period", 20)

	if fast <= 0 || slow <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidPeriod, "ma_cross periods must be positive")
	}

	if fast >= slow {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ma_cross fast period %d must be below slow period %d", fast, slow)
	}

	size := params.Float("size", 1)
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "ma_cross size must be positive")
	}

	return &MACross{
		base:       base,
		fastPeriod: fast,
		slowPeriod: slow,
		size:       size,
		prevFast:   0,
		prevSlow:   0,
		primed:     false,
	}, nil
}

// OnInit implements Hooks.
func (s *MACross) OnInit() error { return nil }

// OnStart implements Hooks.
func (s *MACross) OnStart() error {
	s.primed = false

	return nil
}

// OnStop implements Hooks.
func (s *MACross) OnStop() error { return nil }

// OnTick implements Hooks. MACross trades on bar closes only.
func (s *MACross) OnTick(_ types.Tick) {}

// OnBar implements Hooks.
func (s *MACross) OnBar(_ types.Bar) {
	window := s.base.Window()
	if !window.Initialized() {
		return
	}

	fast := window.SMA(s.fastPeriod)
	slow := window.SMA(s.slowPeriod)

	if !s.primed {
		s.prevFast = fast
		s.prevSlow = slow
		s.primed = true

		return
	}

	crossedUp := s.prevFast <= s.prevSlow && fast > slow
	crossedDown := s.prevFast >= s.prevSlow && fast < slow

	s.prevFast = fast
	s.prevSlow = slow

	switch {
	case crossedUp:
		s.base.deps.Logger.Info("MA cross up",
			zap.String("strategy", s.base.Name()),
			zap.Float64("fast", fast),
			zap.Float64("slow", slow),
		)
		s.base.SetTargetPosition(s.size)
	case crossedDown:
		s.base.deps.Logger.Info("MA cross down",
			zap.String("strategy", s.base.Name()),
			zap.Float64("fast", fast),
			zap.Float64("slow", slow),
		)
		s.base.SetTargetPosition(-s.size)
	}
}

// OnOrder implements Hooks.
func (s *MACross) OnOrder(orderID string, _ types.OrderIntent) {
	s.base.deps.Logger.Debug("Order accepted",
		zap.String("strategy", s.base.Name()),
		zap.String("order_id", orderID),
	)
}

// OnTrade implements Hooks.
func (s *MACross) OnTrade(trade types.Trade) {
	s.base.deps.Logger.Info("Trade filled",
		zap.String("strategy", s.base.Name()),
		zap.String("trade_id", trade.ID),
		zap.Float64("price", trade.Price),
		zap.Float64("volume", trade.Volume),
	)
}
