package marketdata

import (
	"context"
	"sync"

	"github.com/helix-quant/cta-trading/internal/types"
)

// ReplaySource serves a prerecorded tick sequence, one tick per poll. It backs
// dry runs and tests; once a symbol's sequence is exhausted every poll reports
// no update.
type ReplaySource struct {
	mu    sync.Mutex
	ticks map[string][]types.Tick
}

// NewReplaySource creates an empty replay source.
func NewReplaySource() *ReplaySource {
	return &ReplaySource{
		ticks: make(map[string][]types.Tick),
	}
}

// Push appends ticks to a symbol's replay sequence.
func (s *ReplaySource) Push(ticks ...types.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tick := range ticks {
		s.ticks[tick.Symbol] = append(s.ticks[tick.Symbol], tick)
	}
}

// Remaining reports how many ticks are still queued for a symbol.
func (s *ReplaySource) Remaining(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ticks[symbol])
}

// GetLatestTick implements TickSource.
func (s *ReplaySource) GetLatestTick(_ context.Context, symbol string) (*types.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.ticks[symbol]
	if len(queue) == 0 {
		return nil, nil
	}

	tick := queue[0]
	s.ticks[symbol] = queue[1:]

	return &tick, nil
}
