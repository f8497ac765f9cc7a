// Package engine executes market operations: buys, sells, resolution, and
// redemption, plus the orchestrator that wires them to storage and the
// event stream.
//
// The operation functions (ExecuteBuy, ExecuteSell, ResolveMarket,
// RedeemPosition) are pure over caller-provided state: they hold no global
// references and touch nothing but the records passed in. Each one follows
// the same shape — guard, compute, stage candidates, validate, commit —
// so a failure at any point leaves both the market and the position exactly
// as they were. The hosting runtime (Engine) serializes operations per
// market, so these functions assume exclusive access for the duration of
// one call.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"lmsr-amm/internal/lmsr"
	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// ExecuteBuy purchases amount shares of the given outcome. The trade costs
// C(q′) − C(q); if that exceeds maxCost the trade fails with
// ErrSlippageExceeded and no state changes. On success the cost is added to
// the reserve and the shares to the position.
func ExecuteBuy(m *market.Market, pos *market.Position, outcome types.Outcome, amount, maxCost fixed.Value, now time.Time) (*types.TradeReceipt, error) {
	if err := guardTrade(m, pos, outcome, amount, now); err != nil {
		return nil, err
	}
	if maxCost < 0 {
		return nil, fmt.Errorf("max_cost %s must be non-negative: %w", maxCost, types.ErrInvalidParameter)
	}

	cost, newQ, err := lmsr.CostDelta(m.Quantities, m.Liquidity, outcome, amount)
	if err != nil {
		return nil, fmt.Errorf("buy: %w", err)
	}
	if cost > maxCost {
		return nil, fmt.Errorf("cost %s exceeds max_cost %s: %w", cost, maxCost, types.ErrSlippageExceeded)
	}

	// Stage both candidates fully before committing either.
	candM := m.Clone()
	candM.Quantities = newQ
	candM.Reserve, err = m.Reserve.Add(cost)
	if err != nil {
		return nil, fmt.Errorf("buy reserve: %w", err)
	}

	candP := pos.Clone()
	candP.Shares[outcome], err = pos.Shares[outcome].Add(amount)
	if err != nil {
		return nil, fmt.Errorf("buy shares: %w", err)
	}
	candP.UpdatedAt = now

	if err := candP.Validate(); err != nil {
		return nil, err
	}
	if err := m.Apply(candM); err != nil {
		return nil, err
	}
	if err := pos.Apply(candP); err != nil {
		return nil, err
	}

	return buildReceipt(m, pos, types.BUY, outcome, amount, cost, now)
}

// ExecuteSell sells amount shares of the given outcome back to the market.
// Proceeds are −(C(q′) − C(q)); if they fall short of minProceeds the trade
// fails with ErrSlippageExceeded and no state changes. The trader must hold
// at least amount shares, and the reserve must cover the payout.
func ExecuteSell(m *market.Market, pos *market.Position, outcome types.Outcome, amount, minProceeds fixed.Value, now time.Time) (*types.TradeReceipt, error) {
	if err := guardTrade(m, pos, outcome, amount, now); err != nil {
		return nil, err
	}
	if minProceeds < 0 {
		return nil, fmt.Errorf("min_proceeds %s must be non-negative: %w", minProceeds, types.ErrInvalidParameter)
	}
	if pos.Shares[outcome] < amount {
		return nil, fmt.Errorf("selling %s %s shares but only %s held: %w",
			amount, outcome, pos.Shares[outcome], types.ErrInsufficientShares)
	}

	negAmount, err := amount.Neg()
	if err != nil {
		return nil, err
	}
	delta, newQ, err := lmsr.CostDelta(m.Quantities, m.Liquidity, outcome, negAmount)
	if err != nil {
		return nil, fmt.Errorf("sell: %w", err)
	}
	proceeds, err := delta.Neg()
	if err != nil {
		return nil, err
	}
	if proceeds < minProceeds {
		return nil, fmt.Errorf("proceeds %s below min_proceeds %s: %w", proceeds, minProceeds, types.ErrSlippageExceeded)
	}

	newReserve, err := m.Reserve.Sub(proceeds)
	if err != nil {
		return nil, err
	}
	if newReserve < 0 {
		return nil, fmt.Errorf("payout %s would leave reserve %s: %w", proceeds, newReserve, types.ErrInsufficientReserve)
	}

	candM := m.Clone()
	candM.Quantities = newQ
	candM.Reserve = newReserve

	candP := pos.Clone()
	candP.Shares[outcome], err = pos.Shares[outcome].Sub(amount)
	if err != nil {
		return nil, err
	}
	candP.UpdatedAt = now

	if err := candP.Validate(); err != nil {
		return nil, err
	}
	if err := m.Apply(candM); err != nil {
		return nil, err
	}
	if err := pos.Apply(candP); err != nil {
		return nil, err
	}

	return buildReceipt(m, pos, types.SELL, outcome, amount, proceeds, now)
}

// guardTrade applies the checks shared by both trade directions.
func guardTrade(m *market.Market, pos *market.Position, outcome types.Outcome, amount fixed.Value, now time.Time) error {
	if !outcome.Valid() {
		return fmt.Errorf("outcome %d: %w", outcome, types.ErrInvalidParameter)
	}
	if amount <= 0 {
		return fmt.Errorf("amount %s must be positive: %w", amount, types.ErrInvalidParameter)
	}
	if pos.MarketID != m.ID {
		return fmt.Errorf("position belongs to market %s: %w", pos.MarketID, types.ErrUnauthorized)
	}
	if m.Status != types.StatusTrading {
		return fmt.Errorf("market %s status %s: %w", m.ID, m.Status, types.ErrMarketNotTrading)
	}
	if m.Expired(now) {
		return fmt.Errorf("market %s: %w", m.ID, types.ErrMarketExpired)
	}
	return nil
}

func buildReceipt(m *market.Market, pos *market.Position, side types.Side, outcome types.Outcome, amount, cost fixed.Value, now time.Time) (*types.TradeReceipt, error) {
	prices, err := m.Prices()
	if err != nil {
		return nil, err
	}
	return &types.TradeReceipt{
		ID:       uuid.NewString(),
		MarketID: m.ID,
		Owner:    pos.Owner,
		Side:     side,
		Outcome:  outcome,
		Amount:   amount,
		Cost:     cost,
		PriceA:   prices[types.OutcomeA],
		PriceB:   prices[types.OutcomeB],
		Reserve:  m.Reserve,
		TradedAt: now,
	}, nil
}
