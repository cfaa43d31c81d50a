// Package routertest provides an in-process mock execution service for
// testing. It implements the order submission, health, positions and trade
// stream endpoints the runtime talks to.
package routertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/helix-quant/cta-trading/internal/router"
	"github.com/helix-quant/cta-trading/internal/types"
)

type positionKey struct {
	Strategy string
	Symbol   string
}

// Server is a mock execution service backed by httptest.
type Server struct {
	mu sync.Mutex

	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	healthy      bool
	rejectOrders bool
	rejectReason string

	orders          []router.OrderRequest
	positions       map[positionKey]types.PositionSnapshot
	positionQueries int

	wsConns []*websocket.Conn
}

// NewServer starts a mock execution service. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		upgrader:  websocket.Upgrader{},
		healthy:   true,
		positions: make(map[positionKey]types.PositionSnapshot),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/orders", s.handleOrders).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/positions", s.handlePositions).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/trades", s.handleTrades)

	s.httpServer = httptest.NewServer(r)

	return s
}

// URL returns the base URL of the mock service.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the mock service down.
func (s *Server) Close() {
	s.mu.Lock()
	for _, conn := range s.wsConns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.httpServer.Close()
}

// SetHealthy toggles the health endpoint.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// RejectOrders makes subsequent order submissions come back rejected.
func (s *Server) RejectOrders(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectOrders = true
	s.rejectReason = reason
}

// Orders returns the order requests received so far.
func (s *Server) Orders() []router.OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]router.OrderRequest, len(s.orders))
	copy(out, s.orders)

	return out
}

// SetPosition seeds the position returned for a strategy/symbol pair.
func (s *Server) SetPosition(strategy, symbol string, snapshot types.PositionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey{Strategy: strategy, Symbol: symbol}] = snapshot
}

// PositionQueries returns how many position queries have been served.
func (s *Server) PositionQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.positionQueries
}

// PushTrade broadcasts a trade confirmation to all connected stream clients.
func (s *Server) PushTrade(trade types.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.wsConns {
		_ = conn.WriteJSON(trade)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	var request router.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	s.mu.Lock()
	s.orders = append(s.orders, request)
	rejected := s.rejectOrders
	reason := s.rejectReason
	s.mu.Unlock()

	response := router.OrderResponse{
		Accepted: !rejected,
		OrderID:  uuid.NewString(),
		Reason:   reason,
	}
	if rejected {
		response.OrderID = ""
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	key := positionKey{
		Strategy: r.URL.Query().Get("strategy"),
		Symbol:   r.URL.Query().Get("symbol"),
	}

	s.mu.Lock()
	s.positionQueries++
	snapshot, ok := s.positions[key]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.wsConns = append(s.wsConns, conn)
	s.mu.Unlock()
}
