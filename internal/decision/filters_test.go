package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helix-quant/cta-trading/internal/types"
)

func signalAt(hour, minute int, action types.DecisionAction) RawSignal {
	return RawSignal{
		Action:   action,
		Strength: 1,
		Price:    3500,
		Time:     time.Date(2024, 6, 3, hour, minute, 0, 0, time.UTC),
	}
}

func TestTimeWindowFilter(t *testing.T) {
	filter := &TimeWindowFilter{Start: "09:00", End: "11:30"}

	ok, _ := filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.True(t, ok)

	ok, reason := filter.Evaluate(signalAt(12, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.False(t, ok)
	assert.Contains(t, reason, "outside trading window")

	// Edges are inclusive.
	ok, _ = filter.Evaluate(signalAt(9, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.True(t, ok)
	ok, _ = filter.Evaluate(signalAt(11, 30, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.True(t, ok)
}

func TestTimeWindowFilterSpansMidnight(t *testing.T) {
	filter := &TimeWindowFilter{Start: "21:00", End: "02:30"}

	ok, _ := filter.Evaluate(signalAt(23, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(signalAt(1, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(signalAt(12, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.False(t, ok)
}

func TestTimeWindowFilterInvalidClock(t *testing.T) {
	filter := &TimeWindowFilter{Start: "9am", End: "11:30"}

	ok, _ := filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{})
	assert.False(t, ok)
}

func TestVolatilityFilter(t *testing.T) {
	filter := &VolatilityFilter{Min: 0.2, Max: 1.0}

	ok, _ := filter.Evaluate(RawSignal{}, MarketContext{Volatility: 0.5}, PortfolioContext{})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(RawSignal{}, MarketContext{Volatility: 0.1}, PortfolioContext{})
	assert.False(t, ok)

	ok, _ = filter.Evaluate(RawSignal{}, MarketContext{Volatility: 1.5}, PortfolioContext{})
	assert.False(t, ok)
}

func TestPositionLimitFilter(t *testing.T) {
	filter := &PositionLimitFilter{}

	ok, _ := filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{Position: 4, MaxPosition: 5})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{Position: 5, MaxPosition: 5})
	assert.False(t, ok)

	// Opposite direction passes even at the cap.
	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionSell), MarketContext{}, PortfolioContext{Position: 5, MaxPosition: 5})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionSell), MarketContext{}, PortfolioContext{Position: -5, MaxPosition: 5})
	assert.False(t, ok)
}

func TestDailyLossFilter(t *testing.T) {
	filter := &DailyLossFilter{Threshold: -5000}

	// Above threshold: everything passes.
	ok, _ := filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{DailyPnL: -1000})
	assert.True(t, ok)

	// Breached: new entries blocked.
	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{DailyPnL: -6000, Position: 0})
	assert.False(t, ok)

	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionSell), MarketContext{}, PortfolioContext{DailyPnL: -6000, Position: 0})
	assert.False(t, ok)

	// Exposure-reducing signals still pass so the book can be flattened.
	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionSell), MarketContext{}, PortfolioContext{DailyPnL: -6000, Position: 3})
	assert.True(t, ok)

	ok, _ = filter.Evaluate(signalAt(10, 0, types.DecisionBuy), MarketContext{}, PortfolioContext{DailyPnL: -6000, Position: -3})
	assert.True(t, ok)
}
