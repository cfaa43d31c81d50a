package strategy

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/indicator"
	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/position"
	"github.com/helix-quant/cta-trading/internal/router"
	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// Deps are the collaborators injected into every instance by the engine.
type Deps struct {
	Router    router.Router
	Positions *position.Cache
	Window    *indicator.Window
	Logger    *logger.Logger
}

// Template is the common CTA strategy instance: a lifecycle state machine,
// the order intent API and the trade bookkeeping shared by every strategy
// type. Concrete strategies receive a *Template from their factory and drive
// it from their hooks.
//
// Net position is eventually reconciled from the execution service; trade
// deltas only adjust the local value as a hint. The position cache snapshot
// wins whenever it is fresh.
type Template struct {
	name        string
	symbol      string
	params      Params
	maxPosition float64

	deps  Deps
	hooks Hooks

	mu         sync.Mutex
	status     Status
	pos        float64
	targetPos  float64
	openOrders map[string]types.OrderIntent
	trades     map[string]types.Trade
	tradeCount int

	// signalLock guards the decision-to-submission pass. A held lock skips
	// the new pass instead of queueing it.
	signalLock atomic.Bool
}

// NewTemplate creates an instance in INIT state.
func NewTemplate(name, symbol string, params Params, deps Deps) *Template {
	if params == nil {
		params = Params{}
	}

	return &Template{
		name:        name,
		symbol:      symbol,
		params:      params,
		maxPosition: params.Float("max_position", 0),
		deps:        deps,
		hooks:       nil,
		status:      StatusInit,
		pos:         0,
		targetPos:   0,
		openOrders:  make(map[string]types.OrderIntent),
		trades:      make(map[string]types.Trade),
		tradeCount:  0,
	}
}

// BindHooks attaches the concrete strategy implementation. Must be called
// before Start.
func (t *Template) BindHooks(hooks Hooks) {
	t.hooks = hooks
}

// Name returns the unique instance name.
func (t *Template) Name() string { return t.name }

// Symbol returns the instrument the instance trades.
func (t *Template) Symbol() string { return t.symbol }

// Params returns the instance parameter set.
func (t *Template) Params() Params { return t.params }

// MaxPosition returns the configured position limit (0 means unlimited).
func (t *Template) MaxPosition() float64 { return t.maxPosition }

// Window returns the shared indicator window for the instance's symbol.
func (t *Template) Window() *indicator.Window { return t.deps.Window }

// Status returns the current lifecycle state.
func (t *Template) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// Position returns the locally tracked signed net position.
func (t *Template) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pos
}

// TradeCount returns the number of distinct trades processed since Start.
func (t *Template) TradeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.tradeCount
}

// Start transitions INIT/STOPPED -> RUNNING. Position and trade history are
// reset so a restarted instance never carries stale state. A failing hook
// aborts the transition and leaves the instance in ERROR.
func (t *Template) Start() error {
	t.mu.Lock()

	if t.status == StatusRunning {
		t.mu.Unlock()

		return errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s already running", t.name)
	}

	// ERROR is terminal for this registration. Re-register to reset.
	if t.status == StatusError {
		t.mu.Unlock()

		return errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s is in ERROR, re-register to reset", t.name)
	}

	if t.hooks == nil {
		t.mu.Unlock()

		return errors.Newf(errors.ErrCodeStrategyLoadFailed, "strategy %s has no hooks bound", t.name)
	}

	t.pos = 0
	t.targetPos = 0
	t.trades = make(map[string]types.Trade)
	t.tradeCount = 0
	t.openOrders = make(map[string]types.OrderIntent)
	t.mu.Unlock()

	if err := t.runLifecycleHook("OnInit", t.hooks.OnInit); err != nil {
		return err
	}

	if err := t.runLifecycleHook("OnStart", t.hooks.OnStart); err != nil {
		return err
	}

	t.setStatus(StatusRunning)
	t.deps.Logger.Info("Strategy started",
		zap.String("strategy", t.name),
		zap.String("symbol", t.symbol),
	)

	return nil
}

// Stop transitions RUNNING -> STOPPED. Any other state is rejected.
func (t *Template) Stop() error {
	if t.Status() != StatusRunning {
		return errors.Newf(errors.ErrCodeStrategyNotRunning, "strategy %s is not running", t.name)
	}

	if err := t.runLifecycleHook("OnStop", t.hooks.OnStop); err != nil {
		return err
	}

	t.setStatus(StatusStopped)
	t.deps.Logger.Info("Strategy stopped", zap.String("strategy", t.name))

	return nil
}

// HandleTick dispatches a tick to the OnTick hook. Failures are isolated:
// a panicking hook moves the instance to ERROR and never propagates.
func (t *Template) HandleTick(tick types.Tick) {
	if t.Status() != StatusRunning {
		return
	}

	t.invokeGuarded("OnTick", func() {
		t.hooks.OnTick(tick)
	})
}

// HandleBar dispatches a closed bar to the OnBar hook with the same failure
// isolation as HandleTick.
func (t *Template) HandleBar(bar types.Bar) {
	if t.Status() != StatusRunning {
		return
	}

	t.invokeGuarded("OnBar", func() {
		t.hooks.OnBar(bar)
	})
}

// ProcessTrade applies a broker trade confirmation at most once per trade
// id. The local position hint is adjusted, the position cache is refreshed
// in the background and the strategy hook is invoked.
func (t *Template) ProcessTrade(trade types.Trade) {
	t.mu.Lock()

	if _, seen := t.trades[trade.ID]; seen {
		t.mu.Unlock()

		return
	}

	t.trades[trade.ID] = trade
	t.tradeCount++
	t.pos += trade.SignedVolume()
	delete(t.openOrders, trade.OrderID)
	status := t.status
	t.mu.Unlock()

	if t.deps.Positions != nil {
		t.deps.Positions.RefreshAsync(t.name, t.symbol)
	}

	if status != StatusRunning {
		return
	}

	t.invokeGuarded("OnTrade", func() {
		t.hooks.OnTrade(trade)
	})
}

// SyncPosition overwrites the local position hint from a broker snapshot.
func (t *Template) SyncPosition(snapshot *types.PositionSnapshot) {
	if snapshot == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = snapshot.Net
}

// Buy opens long exposure. A price of 0 means market.
func (t *Template) Buy(price, volume float64) string {
	return t.sendIntent(types.DirectionLong, types.ActionOpen, price, volume)
}

// Sell closes long exposure.
func (t *Template) Sell(price, volume float64) string {
	return t.sendIntent(types.DirectionLong, types.ActionClose, price, volume)
}

// Short opens short exposure.
func (t *Template) Short(price, volume float64) string {
	return t.sendIntent(types.DirectionShort, types.ActionOpen, price, volume)
}

// Cover closes short exposure.
func (t *Template) Cover(price, volume float64) string {
	return t.sendIntent(types.DirectionShort, types.ActionClose, price, volume)
}

// TrySignal runs a signal-generation pass under the instance's re-entrancy
// guard. Returns false without running fn when a pass is already in flight.
func (t *Template) TrySignal(fn func()) bool {
	if !t.signalLock.CompareAndSwap(false, true) {
		t.deps.Logger.Debug("Signal pass skipped, another in flight",
			zap.String("strategy", t.name),
		)

		return false
	}
	defer t.signalLock.Store(false)

	fn()

	return true
}

// SetTargetPosition drives the net position towards target at market. When
// the move crosses zero the closing intent is issued before the opening one,
// so the instance never holds offsetting exposure mid-transition. The pass
// runs under the signal lock and is skipped when one is already in flight.
func (t *Template) SetTargetPosition(target float64) bool {
	return t.TrySignal(func() {
		t.mu.Lock()
		t.targetPos = target
		pos := t.pos
		t.mu.Unlock()

		diff := target - pos
		if diff == 0 {
			return
		}

		// Close the opposing exposure first.
		if pos > 0 && diff < 0 {
			closeVol := math.Min(pos, -diff)
			t.Sell(0, closeVol)

			diff += closeVol
		} else if pos < 0 && diff > 0 {
			closeVol := math.Min(-pos, diff)
			t.Cover(0, closeVol)

			diff -= closeVol
		}

		if diff > 0 {
			t.Buy(0, diff)
		} else if diff < 0 {
			t.Short(0, -diff)
		}
	})
}

func (t *Template) sendIntent(direction types.Direction, action types.Action, price, volume float64) string {
	if volume <= 0 {
		return ""
	}

	limit := optional.None[float64]()
	if price > 0 {
		limit = optional.Some(price)
	}

	intent := types.OrderIntent{
		StrategyName: t.name,
		Symbol:       t.symbol,
		Direction:    direction,
		Action:       action,
		Volume:       volume,
		LimitPrice:   limit,
		Time:         time.Now(),
		Stop:         false,
		Reason:       "strategy",
	}

	if t.deps.Positions != nil && t.maxPosition > 0 {
		if err := t.deps.Positions.PreTradeCheck(intent, t.maxPosition); err != nil {
			t.deps.Logger.Warn("Pre-trade check rejected intent",
				zap.String("strategy", t.name),
				zap.String("symbol", t.symbol),
				zap.String("action", string(action)),
				zap.Float64("volume", volume),
				zap.Error(err),
			)

			return ""
		}
	}

	orderID := t.deps.Router.Send(intent)
	if orderID == "" {
		// Not placed. The caller may retry on a later signal pass.
		return ""
	}

	t.mu.Lock()
	t.openOrders[orderID] = intent
	t.mu.Unlock()

	t.invokeGuarded("OnOrder", func() {
		t.hooks.OnOrder(orderID, intent)
	})

	return orderID
}

func (t *Template) setStatus(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

func (t *Template) runLifecycleHook(name string, hook func() error) error {
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "%s panicked: %v", name, r)
			}
		}()

		err = hook()
	}()

	if err != nil {
		t.setStatus(StatusError)

		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed in %s", t.name, name)
	}

	return nil
}

func (t *Template) invokeGuarded(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.setStatus(StatusError)
			t.deps.Logger.Error("Strategy callback failed",
				zap.String("strategy", t.name),
				zap.String("callback", name),
				zap.String("panic", fmt.Sprintf("%v", r)),
			)
		}
	}()

	fn()
}
