package marketdata

import (
	"context"
	"strconv"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// BinanceSource polls the Binance spot REST API for ticks. Each poll combines
// the book ticker (best bid/ask) with the most recent trade. Trades already
// seen are reported as no-update so downstream bars never double count volume.
type BinanceSource struct {
	client *binance.Client

	mu          sync.Mutex
	lastTradeID map[string]int64
}

// NewBinanceSource creates a public-data source. No API keys are required for
// market data endpoints.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		client:      binance.NewClient("", ""),
		lastTradeID: make(map[string]int64),
	}
}

// GetLatestTick implements TickSource.
func (s *BinanceSource) GetLatestTick(ctx context.Context, symbol string) (*types.Tick, error) {
	books, err := s.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTickFetchFailed, err, "book ticker fetch failed for %s", symbol)
	}

	if len(books) == 0 {
		return nil, errors.Newf(errors.ErrCodeSymbolNotTracked, "no book ticker for %s", symbol)
	}

	trades, err := s.client.NewRecentTradesService().Symbol(symbol).Limit(1).Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTickFetchFailed, err, "recent trade fetch failed for %s", symbol)
	}

	if len(trades) == 0 {
		return nil, nil
	}

	trade := trades[0]

	s.mu.Lock()
	seen := s.lastTradeID[symbol] == trade.ID && trade.ID != 0
	s.lastTradeID[symbol] = trade.ID
	s.mu.Unlock()

	if seen {
		return nil, nil
	}

	return buildTick(symbol, books[0], trade)
}

func buildTick(symbol string, book *binance.BookTicker, trade *binance.Trade) (*types.Tick, error) {
	lastPrice, err := parsePrice("last price", trade.Price)
	if err != nil {
		return nil, err
	}

	volume, err := parsePrice("volume", trade.Quantity)
	if err != nil {
		return nil, err
	}

	bidPrice, err := parsePrice("bid price", book.BidPrice)
	if err != nil {
		return nil, err
	}

	bidVolume, err := parsePrice("bid volume", book.BidQuantity)
	if err != nil {
		return nil, err
	}

	askPrice, err := parsePrice("ask price", book.AskPrice)
	if err != nil {
		return nil, err
	}

	askVolume, err := parsePrice("ask volume", book.AskQuantity)
	if err != nil {
		return nil, err
	}

	return &types.Tick{
		Symbol:    symbol,
		Time:      time.UnixMilli(trade.Time),
		LastPrice: lastPrice,
		Volume:    volume,
		BidPrice:  bidPrice,
		BidVolume: bidVolume,
		AskPrice:  askPrice,
		AskVolume: askVolume,
	}, nil
}

func parsePrice(field, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeTickParseFailed, err, "unparseable %s %q", field, raw)
	}

	return value, nil
}
