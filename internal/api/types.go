package api

import (
	"time"

	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/types"
)

// Request and response bodies for the HTTP API. All monetary quantities
// cross the wire as decimal strings ("1.5", "0.25") so clients never have
// to know the engine's internal fixed-point scale.

// CreateMarketRequest initializes a market. Liquidity is the LMSR b
// parameter; empty selects the server's configured default.
type CreateMarketRequest struct {
	Liquidity string    `json:"liquidity,omitempty"`
	ResolveAt time.Time `json:"resolve_at"`
}

// BuyRequest purchases Amount shares of Outcome ("A" or "B") for Owner,
// bounded by MaxCost.
type BuyRequest struct {
	Owner   string `json:"owner"`
	Outcome string `json:"outcome"`
	Amount  string `json:"amount"`
	MaxCost string `json:"max_cost"`
}

// SellRequest sells Amount shares of Outcome for Owner, bounded below by
// MinProceeds.
type SellRequest struct {
	Owner       string `json:"owner"`
	Outcome     string `json:"outcome"`
	Amount      string `json:"amount"`
	MinProceeds string `json:"min_proceeds"`
}

// RedeemRequest redeems Owner's position after resolution.
type RedeemRequest struct {
	Owner string `json:"owner"`
}

// MarketView is the external representation of a market record.
type MarketView struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Liquidity string    `json:"liquidity"`
	Reserve   string    `json:"reserve"`
	QuantityA string    `json:"quantity_a"`
	QuantityB string    `json:"quantity_b"`
	PriceA    string    `json:"price_a"`
	PriceB    string    `json:"price_b"`
	CreatedAt time.Time `json:"created_at"`
	ResolveAt time.Time `json:"resolve_at"`
	Winner    *string   `json:"winner,omitempty"`
}

// TradeView is the external representation of a trade receipt.
type TradeView struct {
	ReceiptID string    `json:"receipt_id"`
	MarketID  string    `json:"market_id"`
	Owner     string    `json:"owner"`
	Side      string    `json:"side"`
	Outcome   string    `json:"outcome"`
	Amount    string    `json:"amount"`
	Cost      string    `json:"cost"`
	PriceA    string    `json:"price_a"`
	PriceB    string    `json:"price_b"`
	Reserve   string    `json:"reserve"`
	TradedAt  time.Time `json:"traded_at"`
}

// ResolutionView is returned by the resolve endpoint.
type ResolutionView struct {
	MarketID string `json:"market_id"`
	Winner   string `json:"winner"`
}

// RedemptionView is the external representation of a redemption receipt.
type RedemptionView struct {
	MarketID string `json:"market_id"`
	Owner    string `json:"owner"`
	Winner   string `json:"winner"`
	Payout   string `json:"payout"`
	Voided   string `json:"voided"`
}

// ErrorResponse carries a machine-readable error code plus a human message.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewMarketView renders a market with its current prices.
func NewMarketView(m *market.Market) (MarketView, error) {
	prices, err := m.Prices()
	if err != nil {
		return MarketView{}, err
	}
	v := MarketView{
		ID:        m.ID,
		Status:    string(m.Status),
		Liquidity: m.Liquidity.String(),
		Reserve:   m.Reserve.String(),
		QuantityA: m.Quantities[types.OutcomeA].String(),
		QuantityB: m.Quantities[types.OutcomeB].String(),
		PriceA:    prices[types.OutcomeA].String(),
		PriceB:    prices[types.OutcomeB].String(),
		CreatedAt: m.CreatedAt,
		ResolveAt: m.ResolveAt,
	}
	if m.Winner != nil {
		w := m.Winner.String()
		v.Winner = &w
	}
	return v, nil
}

// NewTradeView renders a trade receipt.
func NewTradeView(r *types.TradeReceipt) TradeView {
	return TradeView{
		ReceiptID: r.ID,
		MarketID:  r.MarketID,
		Owner:     r.Owner,
		Side:      string(r.Side),
		Outcome:   r.Outcome.String(),
		Amount:    r.Amount.String(),
		Cost:      r.Cost.String(),
		PriceA:    r.PriceA.String(),
		PriceB:    r.PriceB.String(),
		Reserve:   r.Reserve.String(),
		TradedAt:  r.TradedAt,
	}
}

// NewRedemptionView renders a redemption receipt.
func NewRedemptionView(r *types.RedemptionReceipt) RedemptionView {
	return RedemptionView{
		MarketID: r.MarketID,
		Owner:    r.Owner,
		Winner:   r.Winner.String(),
		Payout:   r.Payout.String(),
		Voided:   r.Voided.String(),
	}
}
