package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/helix-quant/cta-trading/internal/types"
)

type WindowTestSuite struct {
	suite.Suite
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowTestSuite))
}

func barWithClose(c float64) types.Bar {
	return types.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1}
}

func (suite *WindowTestSuite) TestInitializedAtCapacity() {
	w := NewWindow(5)

	for i := 0; i < 4; i++ {
		suite.False(w.Initialized(), "window must not be initialized after %d updates", i)
		w.Update(barWithClose(float64(i + 1)))
	}

	suite.False(w.Initialized())
	w.Update(barWithClose(5))
	suite.True(w.Initialized())

	// Stays initialized once full.
	w.Update(barWithClose(6))
	suite.True(w.Initialized())
	suite.Equal(5, w.Count())
}

func (suite *WindowTestSuite) TestEvictionKeepsMostRecent() {
	w := NewWindow(3)

	for _, c := range []float64{1, 2, 3, 4} {
		w.Update(barWithClose(c))
	}

	suite.Equal([]float64{2, 3, 4}, w.Closes())
	suite.Equal(4.0, w.LastClose())
}

func (suite *WindowTestSuite) TestChronologicalOrderBeforeFull() {
	w := NewWindow(5)
	w.Update(barWithClose(7))
	w.Update(barWithClose(8))

	suite.Equal([]float64{7, 8}, w.Closes())
	suite.Equal(2, w.Count())
}

func (suite *WindowTestSuite) TestNeutralDefaultsBeforeInitialized() {
	w := NewWindow(5)
	w.Update(barWithClose(100))

	suite.Equal(0.0, w.SMA(3))
	suite.Equal(0.0, w.EMA(3))
	suite.Equal(50.0, w.RSI(3))
	suite.Equal(0.0, w.ATR(3))
	suite.Equal(BollingerBands{}, w.Bollinger(3, 2))
	suite.Equal(MACDResult{}, w.MACD(2, 4, 3))
}

func (suite *WindowTestSuite) TestLastCloseEmptyWindow() {
	w := NewWindow(3)
	suite.Equal(0.0, w.LastClose())
}
