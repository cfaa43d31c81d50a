package marketdata

import (
	"context"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/suite"

	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

type MarketDataTestSuite struct {
	suite.Suite
}

func TestMarketDataTestSuite(t *testing.T) {
	suite.Run(t, new(MarketDataTestSuite))
}

func (suite *MarketDataTestSuite) TestBuildTick() {
	book := &binance.BookTicker{
		Symbol:      "BTCUSDT",
		BidPrice:    "64000.10",
		BidQuantity: "1.5",
		AskPrice:    "64000.20",
		AskQuantity: "0.8",
	}
	trade := &binance.Trade{
		ID:       42,
		Price:    "64000.15",
		Quantity: "0.25",
		Time:     time.Date(2024, 6, 3, 9, 30, 12, 0, time.UTC).UnixMilli(),
	}

	tick, err := buildTick("BTCUSDT", book, trade)
	suite.Require().NoError(err)

	suite.Equal("BTCUSDT", tick.Symbol)
	suite.InDelta(64000.15, tick.LastPrice, 1e-9)
	suite.InDelta(0.25, tick.Volume, 1e-9)
	suite.InDelta(64000.10, tick.BidPrice, 1e-9)
	suite.InDelta(1.5, tick.BidVolume, 1e-9)
	suite.InDelta(64000.20, tick.AskPrice, 1e-9)
	suite.InDelta(0.8, tick.AskVolume, 1e-9)
	suite.Equal(time.Date(2024, 6, 3, 9, 30, 12, 0, time.UTC), tick.Time.UTC())
}

func (suite *MarketDataTestSuite) TestBuildTickUnparseablePrice() {
	book := &binance.BookTicker{
		BidPrice:    "not-a-number",
		BidQuantity: "1",
		AskPrice:    "2",
		AskQuantity: "1",
	}
	trade := &binance.Trade{Price: "1", Quantity: "1"}

	_, err := buildTick("BTCUSDT", book, trade)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeTickParseFailed))
}

func (suite *MarketDataTestSuite) TestReplaySourceServesInOrder() {
	source := NewReplaySource()
	source.Push(
		types.Tick{Symbol: "rb2410", LastPrice: 3500},
		types.Tick{Symbol: "rb2410", LastPrice: 3501},
		types.Tick{Symbol: "hc2410", LastPrice: 3300},
	)

	first, err := source.GetLatestTick(context.Background(), "rb2410")
	suite.Require().NoError(err)
	suite.InDelta(3500.0, first.LastPrice, 1e-9)

	second, err := source.GetLatestTick(context.Background(), "rb2410")
	suite.Require().NoError(err)
	suite.InDelta(3501.0, second.LastPrice, 1e-9)

	other, err := source.GetLatestTick(context.Background(), "hc2410")
	suite.Require().NoError(err)
	suite.InDelta(3300.0, other.LastPrice, 1e-9)
}

func (suite *MarketDataTestSuite) TestReplaySourceExhausted() {
	source := NewReplaySource()
	source.Push(types.Tick{Symbol: "rb2410", LastPrice: 3500})

	_, err := source.GetLatestTick(context.Background(), "rb2410")
	suite.Require().NoError(err)

	tick, err := source.GetLatestTick(context.Background(), "rb2410")
	suite.NoError(err)
	suite.Nil(tick)
	suite.Equal(0, source.Remaining("rb2410"))
}
