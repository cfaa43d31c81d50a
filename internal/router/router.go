// Package router delivers order intents to the external execution service.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/types"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// DefaultRequestTimeout bounds every outbound call so the dispatch loop can
// never be blocked indefinitely by the execution service.
const DefaultRequestTimeout = 5 * time.Second

// Router is the outbound surface of the runtime towards the execution
// service. Send never returns an error: an empty order id means "not placed"
// and the caller may retry at its own discretion.
type Router interface {
	// Send submits an order intent. Returns the order id, or "" on timeout,
	// connection failure or rejection.
	Send(intent types.OrderIntent) string
	// HealthCheck reports whether the execution service is reachable.
	HealthCheck() bool
	// GetPositions queries the broker reported position for a strategy/symbol.
	GetPositions(strategyName, symbol string) (*types.PositionSnapshot, error)
	// SubscribeTrades opens the trade confirmation stream. The channel closes
	// when the context is cancelled or the stream fails.
	SubscribeTrades(ctx context.Context) (<-chan types.Trade, error)
}

// OrderRequest is the wire form of an order submission.
type OrderRequest struct {
	ClientOrderID string  `json:"client_order_id"`
	StrategyName  string  `json:"strategy_name"`
	Symbol        string  `json:"symbol"`
	Direction     string  `json:"direction"`
	Action        string  `json:"action"`
	Volume        float64 `json:"volume"`
	// Price is 0 for market orders; Market disambiguates an explicit 0.
	Price       float64 `json:"price"`
	Market      bool    `json:"market"`
	Stop        bool    `json:"stop"`
	TimeInForce string  `json:"time_in_force"`
}

// OrderResponse is the execution service's reply to an order submission.
type OrderResponse struct {
	Accepted bool   `json:"accepted"`
	OrderID  string `json:"order_id"`
	Reason   string `json:"reason"`
}

// SignalRouter implements Router over the execution service's HTTP/WebSocket
// API.
type SignalRouter struct {
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
	log     *logger.Logger
}

// NewSignalRouter creates a router for the execution service at baseURL.
func NewSignalRouter(baseURL string, log *logger.Logger) *SignalRouter {
	return &SignalRouter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultRequestTimeout,
		},
		log: log,
	}
}

// Send implements Router.
func (r *SignalRouter) Send(intent types.OrderIntent) string {
	if err := intent.Validate(); err != nil {
		r.log.Warn("Rejecting invalid order intent",
			zap.String("strategy", intent.StrategyName),
			zap.String("symbol", intent.Symbol),
			zap.Error(err),
		)

		return ""
	}

	request := OrderRequest{
		ClientOrderID: uuid.NewString(),
		StrategyName:  intent.StrategyName,
		Symbol:        intent.Symbol,
		Direction:     string(intent.Direction),
		Action:        string(intent.Action),
		Volume:        intent.Volume,
		Price:         intent.LimitPrice.TakeOr(0),
		Market:        intent.IsMarket(),
		Stop:          intent.Stop,
		TimeInForce:   string(types.TimeInForceDay),
	}

	body, err := json.Marshal(request)
	if err != nil {
		r.log.Warn("Failed to encode order request", zap.Error(err))

		return ""
	}

	resp, err := r.client.Post(r.baseURL+"/api/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		r.log.Warn("Order submission failed",
			zap.String("strategy", intent.StrategyName),
			zap.String("symbol", intent.Symbol),
			zap.Error(err),
		)

		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn("Order submission returned non-OK status",
			zap.String("strategy", intent.StrategyName),
			zap.Int("status", resp.StatusCode),
		)

		return ""
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		r.log.Warn("Failed to decode order response", zap.Error(err))

		return ""
	}

	if !result.Accepted {
		r.log.Warn("Order rejected by execution service",
			zap.String("strategy", intent.StrategyName),
			zap.String("symbol", intent.Symbol),
			zap.String("reason", result.Reason),
		)

		return ""
	}

	orderID := result.OrderID
	if orderID == "" {
		orderID = request.ClientOrderID
	}

	r.log.Info("Order placed",
		zap.String("strategy", intent.StrategyName),
		zap.String("symbol", intent.Symbol),
		zap.String("order_id", orderID),
		zap.String("action", string(intent.Action)),
		zap.Float64("volume", intent.Volume),
	)

	return orderID
}

// HealthCheck implements Router.
func (r *SignalRouter) HealthCheck() bool {
	resp, err := r.client.Get(r.baseURL + "/api/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GetPositions implements Router.
func (r *SignalRouter) GetPositions(strategyName, symbol string) (*types.PositionSnapshot, error) {
	query := url.Values{}
	query.Set("strategy", strategyName)
	query.Set("symbol", symbol)

	resp, err := r.client.Get(r.baseURL + "/api/v1/positions?" + query.Encode())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePositionQueryFailed, "positions query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodePositionQueryFailed, "positions query returned status %d", resp.StatusCode)
	}

	var snapshot types.PositionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, errors.Wrap(errors.ErrCodePositionQueryFailed, "failed to decode position snapshot", err)
	}

	snapshot.FetchedAt = time.Now()

	return &snapshot, nil
}

// SubscribeTrades implements Router.
func (r *SignalRouter) SubscribeTrades(ctx context.Context) (<-chan types.Trade, error) {
	wsURL, err := toWebsocketURL(r.baseURL + "/api/v1/trades")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeStreamFailed, "invalid trade stream url", err)
	}

	conn, _, err := r.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeStreamFailed, "failed to connect to trade stream", err)
	}

	trades := make(chan types.Trade, 64)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(trades)
		defer conn.Close()

		for {
			var trade types.Trade
			if err := conn.ReadJSON(&trade); err != nil {
				if ctx.Err() == nil {
					r.log.Warn("Trade stream closed", zap.Error(err))
				}

				return
			}

			select {
			case trades <- trade:
			case <-ctx.Done():
				return
			}
		}
	}()

	return trades, nil
}

func toWebsocketURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	return parsed.String(), nil
}

// Verify SignalRouter implements the Router interface.
var _ Router = (*SignalRouter)(nil)
