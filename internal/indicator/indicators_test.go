package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/helix-quant/cta-trading/internal/types"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func fill(w *Window, closes ...float64) {
	for _, c := range closes {
		w.Update(barWithClose(c))
	}
}

func (suite *IndicatorTestSuite) TestSMA() {
	w := NewWindow(5)
	fill(w, 1, 2, 3, 4, 5)

	suite.InDelta(4.0, w.SMA(3), 1e-9)
	suite.InDelta(3.0, w.SMA(5), 1e-9)
	// Requesting more points than the window holds yields the default.
	suite.Equal(0.0, w.SMA(6))
}

func (suite *IndicatorTestSuite) TestEMARecursiveSeededWithFirstPrice() {
	w := NewWindow(3)
	fill(w, 2, 4, 6)

	// alpha = 0.5: seed 2 -> 3 -> 4.5
	suite.InDelta(4.5, w.EMA(3), 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIFlatSeriesIsNeutral() {
	w := NewWindow(5)
	fill(w, 100, 100, 100, 100, 100)

	suite.InDelta(50.0, w.RSI(4), 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIPerfectUptrendIsHundred() {
	w := NewWindow(5)
	fill(w, 100, 101, 102, 103, 104)

	suite.InDelta(100.0, w.RSI(4), 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIBalancedSeries() {
	w := NewWindow(5)
	fill(w, 100, 101, 100, 101, 100)

	// Equal average gain and loss: RS = 1, RSI = 50.
	suite.InDelta(50.0, w.RSI(4), 1e-9)
}

func (suite *IndicatorTestSuite) TestATRMaxOfThreeRanges() {
	w := NewWindow(3)
	w.Update(types.Bar{Open: 10, High: 12, Low: 8, Close: 10, Volume: 1})
	w.Update(types.Bar{Open: 10, High: 14, Low: 9, Close: 13, Volume: 1})
	w.Update(types.Bar{Open: 13, High: 15, Low: 12, Close: 14, Volume: 1})

	// TR2 = max(5, 4, 1) = 5; TR3 = max(3, 2, 1) = 3
	suite.InDelta(4.0, w.ATR(2), 1e-9)
}

func (suite *IndicatorTestSuite) TestBollingerPopulationStdDev() {
	w := NewWindow(4)
	fill(w, 2, 4, 4, 2)

	bands := w.Bollinger(4, 2)
	suite.InDelta(3.0, bands.Middle, 1e-9)
	suite.InDelta(5.0, bands.Upper, 1e-9)
	suite.InDelta(1.0, bands.Lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestMACDFlatSeriesIsZero() {
	w := NewWindow(30)

	for i := 0; i < 30; i++ {
		w.Update(barWithClose(50))
	}

	res := w.MACD(12, 26, 9)
	suite.InDelta(0.0, res.MACD, 1e-9)
	suite.InDelta(0.0, res.Signal, 1e-9)
	suite.InDelta(0.0, res.Histogram, 1e-9)
}

func (suite *IndicatorTestSuite) TestMACDUptrendPositive() {
	w := NewWindow(30)

	for i := 0; i < 30; i++ {
		w.Update(barWithClose(100 + float64(i)))
	}

	res := w.MACD(12, 26, 9)
	suite.Greater(res.MACD, 0.0)
}

func (suite *IndicatorTestSuite) TestMACDRejectsInvertedPeriods() {
	w := NewWindow(10)

	for i := 0; i < 10; i++ {
		w.Update(barWithClose(100))
	}

	suite.Equal(MACDResult{}, w.MACD(26, 12, 9))
}
