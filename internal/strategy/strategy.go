// Package strategy implements the per-instance CTA state machine, the order
// intent API and the strategy type registry.
package strategy

import (
	"time"

	"github.com/helix-quant/cta-trading/internal/types"
)

// Status is the lifecycle state of a strategy instance.
type Status string

const (
	StatusInit    Status = "INIT"
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
	StatusError   Status = "ERROR"
)

// Hooks is the callback set a strategy type implements. The engine drives
// these through the instance template, never directly.
type Hooks interface {
	// OnInit is called once when the instance starts, before OnStart.
	OnInit() error
	// OnStart is called when the instance transitions to RUNNING.
	OnStart() error
	// OnStop is called when the instance stops.
	OnStop() error
	// OnTick is called for every tick of the instance's symbol while RUNNING.
	OnTick(tick types.Tick)
	// OnBar is called for every closed bar of the instance's symbol while
	// RUNNING, after the tick that closed it.
	OnBar(bar types.Bar)
	// OnOrder is called when the execution service accepts an intent.
	OnOrder(orderID string, intent types.OrderIntent)
	// OnTrade is called at most once per trade id.
	OnTrade(trade types.Trade)
}

// Params is the free-form parameter set an instance is configured with.
type Params map[string]any

// Float returns the parameter as a float64, or def when absent or of the
// wrong type. Integer values are widened.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}

	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	default:
		return def
	}
}

// Int returns the parameter as an int, or def when absent or of the wrong
// type.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}

	switch value := v.(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return def
	}
}

// String returns the parameter as a string, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}

	return def
}

// Duration returns the parameter interpreted as seconds, or def.
func (p Params) Duration(key string, def time.Duration) time.Duration {
	seconds := p.Float(key, -1)
	if seconds < 0 {
		return def
	}

	return time.Duration(seconds * float64(time.Second))
}
