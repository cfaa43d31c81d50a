// Package engine_v1 is the first generation dispatch loop implementation of
// the orchestrator.
package engine_v1

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/engine"
	"github.com/helix-quant/cta-trading/internal/engine/engine_v1/session"
	"github.com/helix-quant/cta-trading/internal/indicator"
	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/market"
	"github.com/helix-quant/cta-trading/internal/marketdata"
	"github.com/helix-quant/cta-trading/internal/position"
	"github.com/helix-quant/cta-trading/internal/router"
	"github.com/helix-quant/cta-trading/internal/strategy"
	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// Default sizing for the shared per-symbol indicator window.
const (
	DefaultWindowCapacity = 120

	stopJoinTimeout = 5 * time.Second
)

type instance struct {
	cfg engine.StrategyConfig
	tpl *strategy.Template
}

// CTAEngineV1 implements engine.Engine. One dispatch goroutine polls ticks
// for every tracked symbol; shared per-symbol market state (aggregator and
// indicator window) is updated exactly once per tick no matter how many
// instances trade the symbol.
type CTAEngineV1 struct {
	config   engine.Config
	registry *strategy.Registry
	rt       router.Router
	source   marketdata.TickSource

	positions  *position.Cache
	aggregator *market.BarAggregator
	calendar   *session.Calendar
	log        *logger.Logger

	mu        sync.Mutex
	windows   map[string]*indicator.Window
	instances map[string]*instance
	bySymbol  map[string][]*instance
	running   bool
	starting  bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewCTAEngineV1 wires the orchestrator from its collaborators. The router
// doubles as the position querier so every position fact has a single origin.
func NewCTAEngineV1(config engine.Config, registry *strategy.Registry, rt router.Router, source marketdata.TickSource, log *logger.Logger) (*CTAEngineV1, error) {
	config.ApplyDefaults()

	calendar, err := session.NewCalendar(config.Sessions)
	if err != nil {
		return nil, err
	}

	return &CTAEngineV1{
		config:     config,
		registry:   registry,
		rt:         rt,
		source:     source,
		positions:  position.NewCache(rt, config.PositionTTL.Std(), log),
		aggregator: market.NewBarAggregator(),
		calendar:   calendar,
		log:        log,
		mu:         sync.Mutex{},
		windows:    make(map[string]*indicator.Window),
		instances:  make(map[string]*instance),
		bySymbol:   make(map[string][]*instance),
		running:    false,
		starting:   false,
		cancel:     nil,
		wg:         sync.WaitGroup{},
	}, nil
}

// RegisterStrategy implements engine.Engine.
func (e *CTAEngineV1) RegisterStrategy(cfg engine.StrategyConfig) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid strategy config %q", cfg.Name)
	}

	factory, err := e.registry.Get(cfg.Type)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.instances[cfg.Name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", cfg.Name)
	}

	params := strategy.Params{}
	for k, v := range cfg.Params {
		params[k] = v
	}

	if cfg.MaxPosition > 0 {
		params["max_position"] = cfg.MaxPosition
	}

	window := e.windowLocked(cfg.Symbol)

	tpl := strategy.NewTemplate(cfg.Name, cfg.Symbol, params, strategy.Deps{
		Router:    e.rt,
		Positions: e.positions,
		Window:    window,
		Logger:    e.log,
	})

	hooks, err := factory(tpl, params)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyLoadFailed, err, "cannot build strategy %s of type %s", cfg.Name, cfg.Type)
	}

	tpl.BindHooks(hooks)

	inst := &instance{cfg: cfg, tpl: tpl}
	e.instances[cfg.Name] = inst
	e.bySymbol[cfg.Symbol] = append(e.bySymbol[cfg.Symbol], inst)

	e.log.Info("Strategy registered",
		zap.String("strategy", cfg.Name),
		zap.String("type", cfg.Type),
		zap.String("symbol", cfg.Symbol),
	)

	return nil
}

// Start implements engine.Engine.
func (e *CTAEngineV1) Start(ctx context.Context) error {
	// Claim startup in the same critical section as the running check, so a
	// second concurrent Start cannot pass the guard while this one is still
	// waiting on the health check.
	e.mu.Lock()
	if e.running || e.starting {
		e.mu.Unlock()

		return errors.New(errors.ErrCodeEngineAlreadyRunning, "engine already running")
	}
	e.starting = true
	e.mu.Unlock()

	if err := e.awaitHealthy(ctx); err != nil {
		e.abortStart()

		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	trades, err := e.rt.SubscribeTrades(runCtx)
	if err != nil {
		cancel()
		e.abortStart()

		return errors.Wrap(errors.ErrCodeTradeStreamFailed, "cannot subscribe to trade stream", err)
	}

	e.mu.Lock()
	e.cancel = cancel
	e.starting = false
	e.running = true
	started := make([]*instance, 0, len(e.instances))

	for _, inst := range e.instances {
		started = append(started, inst)
	}
	e.mu.Unlock()

	for _, inst := range started {
		if err := inst.tpl.Start(); err != nil {
			// A broken instance must not hold the rest of the book hostage.
			e.log.Error("Strategy failed to start",
				zap.String("strategy", inst.cfg.Name),
				zap.Error(err),
			)
		}
	}

	e.wg.Add(2)

	go e.dispatchLoop(runCtx)
	go e.tradeLoop(runCtx, trades)

	e.log.Info("Engine started",
		zap.Int("strategies", len(started)),
		zap.Duration("dispatch_interval", e.config.DispatchInterval.Std()),
	)

	return nil
}

// abortStart releases the startup claim after a failed Start.
func (e *CTAEngineV1) abortStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starting = false
}

// Stop implements engine.Engine. The dispatch and trade goroutines are given
// a bounded join; a stream stuck in a read never blocks shutdown forever.
func (e *CTAEngineV1) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()

		return errors.New(errors.ErrCodeEngineNotRunning, "engine is not running")
	}

	e.running = false
	cancel := e.cancel
	e.cancel = nil

	stopping := make([]*instance, 0, len(e.instances))
	for _, inst := range e.instances {
		stopping = append(stopping, inst)
	}
	e.mu.Unlock()

	cancel()

	joined := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(stopJoinTimeout):
		e.log.Warn("Dispatch goroutines did not join in time")
	}

	for _, inst := range stopping {
		if inst.tpl.Status() != strategy.StatusRunning {
			continue
		}

		if err := inst.tpl.Stop(); err != nil {
			e.log.Error("Strategy failed to stop",
				zap.String("strategy", inst.cfg.Name),
				zap.Error(err),
			)
		}
	}

	e.log.Info("Engine stopped")

	return nil
}

// StartStrategy implements engine.Engine.
func (e *CTAEngineV1) StartStrategy(name string) error {
	inst, err := e.instance(name)
	if err != nil {
		return err
	}

	return inst.tpl.Start()
}

// StopStrategy implements engine.Engine.
func (e *CTAEngineV1) StopStrategy(name string) error {
	inst, err := e.instance(name)
	if err != nil {
		return err
	}

	return inst.tpl.Stop()
}

// RemoveStrategy implements engine.Engine.
func (e *CTAEngineV1) RemoveStrategy(name string) error {
	inst, err := e.instance(name)
	if err != nil {
		return err
	}

	if inst.tpl.Status() == strategy.StatusRunning {
		if err := inst.tpl.Stop(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.instances, name)

	symbol := inst.cfg.Symbol
	kept := e.bySymbol[symbol][:0]

	for _, other := range e.bySymbol[symbol] {
		if other != inst {
			kept = append(kept, other)
		}
	}

	if len(kept) == 0 {
		delete(e.bySymbol, symbol)
	} else {
		e.bySymbol[symbol] = kept
	}

	e.log.Info("Strategy removed", zap.String("strategy", name))

	return nil
}

// Strategies implements engine.Engine.
func (e *CTAEngineV1) Strategies() []engine.StrategyInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	infos := make([]engine.StrategyInfo, 0, len(e.instances))

	for _, inst := range e.instances {
		infos = append(infos, engine.StrategyInfo{
			Name:     inst.cfg.Name,
			Type:     inst.cfg.Type,
			Symbol:   inst.cfg.Symbol,
			Status:   inst.tpl.Status(),
			Position: inst.tpl.Position(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

func (e *CTAEngineV1) awaitHealthy(ctx context.Context) error {
	attempts := 0

	check := func() error {
		attempts++

		if e.rt.HealthCheck() {
			return nil
		}

		return errors.New(errors.ErrCodeSignalDeliveryFailed, "execution service unhealthy")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(e.config.Execution.HealthCheckInterval.Std()),
			uint64(e.config.Execution.HealthCheckRetries-1),
		),
		ctx,
	)

	if err := backoff.Retry(check, policy); err != nil {
		e.log.Error("Execution service never became healthy",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeEngineStartupFailed, err,
			"execution service unhealthy after %d attempts", attempts)
	}

	return nil
}

func (e *CTAEngineV1) dispatchLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.DispatchInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !e.calendar.InSession(now) {
				continue
			}

			e.dispatchCycle(ctx)
		}
	}
}

// dispatchCycle polls one tick per tracked symbol and fans it out. Shared
// state updates strictly precede strategy callbacks: aggregator, then window,
// then OnTick, then OnBar for the bar that tick closed.
func (e *CTAEngineV1) dispatchCycle(ctx context.Context) {
	for _, symbol := range e.symbols() {
		tick, err := e.source.GetLatestTick(ctx, symbol)
		if err != nil {
			e.log.Warn("Tick fetch failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		if tick == nil {
			continue
		}

		e.dispatchTick(*tick)
	}
}

func (e *CTAEngineV1) dispatchTick(tick types.Tick) {
	e.mu.Lock()
	window := e.windows[tick.Symbol]
	targets := make([]*instance, len(e.bySymbol[tick.Symbol]))
	copy(targets, e.bySymbol[tick.Symbol])
	e.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	closed := e.aggregator.OnTick(tick)
	barClosed := closed.IsSome()

	var bar types.Bar
	if barClosed {
		bar = closed.Unwrap()

		if window != nil {
			window.Update(bar)
		}
	}

	for _, inst := range targets {
		inst.tpl.HandleTick(tick)
	}

	if barClosed {
		for _, inst := range targets {
			inst.tpl.HandleBar(bar)
		}
	}
}

func (e *CTAEngineV1) tradeLoop(ctx context.Context, trades <-chan types.Trade) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-trades:
			if !ok {
				e.log.Warn("Trade stream closed")

				return
			}

			e.routeTrade(trade)
		}
	}
}

func (e *CTAEngineV1) routeTrade(trade types.Trade) {
	e.mu.Lock()
	inst, ok := e.instances[trade.StrategyName]
	e.mu.Unlock()

	if !ok {
		// Fills for strategies this engine does not own are not an error,
		// several engines may share one execution account.
		e.log.Debug("Trade for unknown strategy",
			zap.String("strategy", trade.StrategyName),
			zap.String("trade_id", trade.ID),
		)

		return
	}

	inst.tpl.ProcessTrade(trade)
}

func (e *CTAEngineV1) symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]string, 0, len(e.bySymbol))
	for symbol := range e.bySymbol {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// windowLocked returns the shared indicator window for a symbol, creating it
// on first use. Caller holds e.mu.
func (e *CTAEngineV1) windowLocked(symbol string) *indicator.Window {
	if w, ok := e.windows[symbol]; ok {
		return w
	}

	w := indicator.NewWindow(DefaultWindowCapacity)
	e.windows[symbol] = w

	return w
}

func (e *CTAEngineV1) instance(name string) (*instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not registered", name)
	}

	return inst, nil
}
