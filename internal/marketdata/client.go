// Package marketdata provides tick sources for the runtime. The engine polls
// a TickSource once per dispatch cycle; where the tick comes from (a broker
// gateway, an exchange REST API, a replay file) is hidden behind the
// interface.
package marketdata

import (
	"context"

	"github.com/helix-quant/cta-trading/internal/types"
)

// TickSource fetches the latest tick for a symbol. A nil tick with a nil
// error means no new tick since the previous call.
type TickSource interface {
	GetLatestTick(ctx context.Context, symbol string) (*types.Tick, error)
}
