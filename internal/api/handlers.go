// Package api exposes the market engine over HTTP and streams trade,
// resolution, and redemption events over a WebSocket hub.
//
// Routes:
//
//	POST /api/markets                 — initialize a market
//	GET  /api/markets                 — list all markets
//	GET  /api/markets/{id}            — fetch one market
//	GET  /api/markets/{id}/quote      — current prices
//	POST /api/markets/{id}/buy        — buy shares (slippage-bounded)
//	POST /api/markets/{id}/sell       — sell shares (slippage-bounded)
//	POST /api/markets/{id}/resolve    — resolve past resolve_at
//	POST /api/markets/{id}/redeem     — redeem a position after resolution
//	GET  /health                      — liveness probe
//	GET  /ws                          — event stream
//
// Engine errors map to stable HTTP statuses with machine-readable codes so
// callers can distinguish, say, a slippage rejection (resubmit with a wider
// bound) from an expired market (don't).
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// MarketService is the engine surface the handlers call. Implemented by
// internal/engine; narrowed to an interface so handler tests can run
// against the real engine or a stub.
type MarketService interface {
	InitializeMarket(b fixed.Value, resolveAt time.Time) (*market.Market, error)
	Buy(marketID, owner string, outcome types.Outcome, amount, maxCost fixed.Value) (*types.TradeReceipt, error)
	Sell(marketID, owner string, outcome types.Outcome, amount, minProceeds fixed.Value) (*types.TradeReceipt, error)
	Resolve(marketID string) (types.Outcome, error)
	Redeem(marketID, owner string) (*types.RedemptionReceipt, error)
	GetMarket(marketID string) (*market.Market, error)
	ListMarkets() ([]*market.Market, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon binds locally; cross-origin browsers are not a concern.
		return true
	},
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	svc    MarketService
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(svc MarketService, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:    svc,
		hub:    hub,
		logger: logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCreateMarket initializes a new market.
func (h *Handlers) HandleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, badBody(err))
		return
	}

	var b fixed.Value
	if req.Liquidity != "" {
		var err error
		b, err = fixed.Parse(req.Liquidity)
		if err != nil {
			h.writeError(w, badBody(err))
			return
		}
	}

	m, err := h.svc.InitializeMarket(b, req.ResolveAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := NewMarketView(m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleListMarkets returns every market record.
func (h *Handlers) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.svc.ListMarkets()
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]MarketView, 0, len(markets))
	for _, m := range markets {
		v, err := NewMarketView(m)
		if err != nil {
			h.writeError(w, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetMarket returns one market with its current prices.
func (h *Handlers) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMarket(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := NewMarketView(m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleQuote returns the current instantaneous prices. Same payload as
// GetMarket.
func (h *Handlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	h.HandleGetMarket(w, r)
}

// HandleBuy executes a slippage-bounded buy.
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, badBody(err))
		return
	}
	outcome, amount, err := parseTrade(req.Outcome, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	maxCost, err := fixed.Parse(req.MaxCost)
	if err != nil {
		h.writeError(w, badBody(err))
		return
	}

	receipt, err := h.svc.Buy(r.PathValue("id"), req.Owner, outcome, amount, maxCost)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTradeView(receipt))
}

// HandleSell executes a slippage-bounded sell.
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, badBody(err))
		return
	}
	outcome, amount, err := parseTrade(req.Outcome, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	minProceeds, err := fixed.Parse(req.MinProceeds)
	if err != nil {
		h.writeError(w, badBody(err))
		return
	}

	receipt, err := h.svc.Sell(r.PathValue("id"), req.Owner, outcome, amount, minProceeds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTradeView(receipt))
}

// HandleResolve resolves a market to its winning outcome.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	winner, err := h.svc.Resolve(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolutionView{MarketID: id, Winner: winner.String()})
}

// HandleRedeem redeems the caller's position after resolution.
func (h *Handlers) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, badBody(err))
		return
	}
	receipt, err := h.svc.Redeem(r.PathValue("id"), req.Owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewRedemptionView(receipt))
}

// HandleWebSocket upgrades the connection and subscribes it to the hub.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	NewClient(h.hub, conn)
}

func parseTrade(outcome, amount string) (types.Outcome, fixed.Value, error) {
	o, err := types.ParseOutcome(outcome)
	if err != nil {
		return 0, 0, err
	}
	a, err := fixed.Parse(amount)
	if err != nil {
		return 0, 0, badBody(err)
	}
	return o, a, nil
}

func badBody(err error) error {
	return errors.Join(types.ErrInvalidParameter, err)
}

// writeError maps an engine error to its HTTP status and error code.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Code: code, Error: err.Error()})
}

// classify assigns each error kind a stable status + code pair.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrMarketNotFound):
		return http.StatusNotFound, "market_not_found"
	case errors.Is(err, types.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, types.ErrMarketNotTrading):
		return http.StatusConflict, "market_not_trading"
	case errors.Is(err, types.ErrMarketExpired):
		return http.StatusConflict, "market_expired"
	case errors.Is(err, types.ErrTooEarly):
		return http.StatusConflict, "too_early"
	case errors.Is(err, types.ErrAlreadyResolved):
		return http.StatusConflict, "already_resolved"
	case errors.Is(err, types.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity, "slippage_exceeded"
	case errors.Is(err, types.ErrInsufficientShares):
		return http.StatusUnprocessableEntity, "insufficient_shares"
	case errors.Is(err, types.ErrInsufficientReserve):
		return http.StatusUnprocessableEntity, "insufficient_reserve"
	case errors.Is(err, fixed.ErrOverflow),
		errors.Is(err, fixed.ErrDivisionByZero),
		errors.Is(err, fixed.ErrDomain):
		return http.StatusUnprocessableEntity, "arithmetic_error"
	case errors.Is(err, types.ErrInvariantViolation):
		return http.StatusInternalServerError, "invariant_violation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
