package api

import (
	"time"

	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/types"
)

// StreamEvent is the wrapper for all events pushed to WebSocket clients.
type StreamEvent struct {
	Type      string    `json:"type"` // "market", "trade", "resolution", "redemption"
	Timestamp time.Time `json:"timestamp"`
	MarketID  string    `json:"market_id"`
	Data      any       `json:"data"`
}

// MarketEvent announces a newly initialized market.
type MarketEvent struct {
	Liquidity string    `json:"liquidity"`
	Status    string    `json:"status"`
	ResolveAt time.Time `json:"resolve_at"`
}

// TradeEvent broadcasts a committed buy or sell.
type TradeEvent struct {
	ReceiptID string `json:"receipt_id"`
	Owner     string `json:"owner"`
	Side      string `json:"side"`
	Outcome   string `json:"outcome"`
	Amount    string `json:"amount"`
	Cost      string `json:"cost"`
	PriceA    string `json:"price_a"`
	PriceB    string `json:"price_b"`
	Reserve   string `json:"reserve"`
}

// ResolutionEvent broadcasts the terminal winning outcome.
type ResolutionEvent struct {
	Winner  string `json:"winner"`
	Reserve string `json:"reserve"`
}

// RedemptionEvent broadcasts a settlement payout.
type RedemptionEvent struct {
	Owner  string `json:"owner"`
	Winner string `json:"winner"`
	Payout string `json:"payout"`
	Voided string `json:"voided"`
}

// NewMarketEvent builds the payload for a market initialization.
func NewMarketEvent(m *market.Market) MarketEvent {
	return MarketEvent{
		Liquidity: m.Liquidity.String(),
		Status:    string(m.Status),
		ResolveAt: m.ResolveAt,
	}
}

// NewTradeEvent builds the payload for a trade receipt.
func NewTradeEvent(r *types.TradeReceipt) TradeEvent {
	return TradeEvent{
		ReceiptID: r.ID,
		Owner:     r.Owner,
		Side:      string(r.Side),
		Outcome:   r.Outcome.String(),
		Amount:    r.Amount.String(),
		Cost:      r.Cost.String(),
		PriceA:    r.PriceA.String(),
		PriceB:    r.PriceB.String(),
		Reserve:   r.Reserve.String(),
	}
}

// NewResolutionEvent builds the payload for a resolution.
func NewResolutionEvent(m *market.Market, winner types.Outcome) ResolutionEvent {
	return ResolutionEvent{
		Winner:  winner.String(),
		Reserve: m.Reserve.String(),
	}
}

// NewRedemptionEvent builds the payload for a redemption receipt.
func NewRedemptionEvent(r *types.RedemptionReceipt) RedemptionEvent {
	return RedemptionEvent{
		Owner:  r.Owner,
		Winner: r.Winner.String(),
		Payout: r.Payout.String(),
		Voided: r.Voided.String(),
	}
}
