package engine

import (
	"fmt"
	"time"

	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/types"
)

// ResolveMarket transitions a market past its resolution time into the
// terminal Resolved state and picks the winning outcome.
//
// The winner is the outcome with the greater issued share quantity; a tie
// goes to outcome A so the state machine can never stall on an ambiguous
// comparison. Resolution is one-way: calling it on a resolved market fails
// with ErrAlreadyResolved, and calling it before resolve_at fails with
// ErrTooEarly. Repeated calls on the same pre-state are fully deterministic.
func ResolveMarket(m *market.Market, now time.Time) (types.Outcome, error) {
	switch m.Status {
	case types.StatusResolved, types.StatusSettled:
		return 0, fmt.Errorf("market %s: %w", m.ID, types.ErrAlreadyResolved)
	case types.StatusTrading:
	default:
		return 0, fmt.Errorf("market %s status %s: %w", m.ID, m.Status, types.ErrMarketNotTrading)
	}
	if now.Before(m.ResolveAt) {
		return 0, fmt.Errorf("market %s resolves at %s: %w", m.ID, m.ResolveAt.Format(time.RFC3339), types.ErrTooEarly)
	}

	winner := types.OutcomeA
	if m.Quantities[types.OutcomeB] > m.Quantities[types.OutcomeA] {
		winner = types.OutcomeB
	}

	cand := m.Clone()
	cand.Status = types.StatusResolved
	cand.Winner = &winner
	if err := m.Apply(cand); err != nil {
		return 0, err
	}
	return winner, nil
}

// RedeemPosition converts a position's winning shares into collateral at
// 1:1 and voids the losing side unconditionally. Redeeming a position with
// no winning shares succeeds with payout zero, which also makes repeat
// redemptions an idempotent no-op.
//
// The reserve always covers the payout — it was seeded with b·ln 2 and
// C(q) ≥ max(q) — but the debit is verified rather than trusted.
func RedeemPosition(m *market.Market, pos *market.Position, now time.Time) (*types.RedemptionReceipt, error) {
	switch m.Status {
	case types.StatusResolved, types.StatusSettled:
	case types.StatusTrading, types.StatusCreated:
		return nil, fmt.Errorf("market %s not resolved: %w", m.ID, types.ErrTooEarly)
	default:
		return nil, fmt.Errorf("market %s status %s: %w", m.ID, m.Status, types.ErrInvariantViolation)
	}
	if m.Winner == nil {
		return nil, fmt.Errorf("market %s resolved without winner: %w", m.ID, types.ErrInvariantViolation)
	}
	if pos.MarketID != m.ID {
		return nil, fmt.Errorf("position belongs to market %s: %w", pos.MarketID, types.ErrUnauthorized)
	}

	winner := *m.Winner
	payout := pos.Shares[winner]
	voided := pos.Shares[winner.Other()]

	newReserve, err := m.Reserve.Sub(payout)
	if err != nil {
		return nil, err
	}
	if newReserve < 0 {
		return nil, fmt.Errorf("payout %s exceeds reserve %s: %w", payout, m.Reserve, types.ErrInsufficientReserve)
	}

	candM := m.Clone()
	candM.Reserve = newReserve

	candP := pos.Clone()
	candP.Shares[types.OutcomeA] = 0
	candP.Shares[types.OutcomeB] = 0
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

	return &types.RedemptionReceipt{
		MarketID:   m.ID,
		Owner:      pos.Owner,
		Winner:     winner,
		Payout:     payout,
		Voided:     voided,
		RedeemedAt: now,
	}, nil
}

// MarkSettled advances a resolved market to Settled once every position has
// been fully redeemed. Purely observational bookkeeping; correctness does
// not depend on it.
func MarkSettled(m *market.Market) error {
	if m.Status != types.StatusResolved {
		return fmt.Errorf("market %s status %s cannot settle: %w", m.ID, m.Status, types.ErrInvariantViolation)
	}
	cand := m.Clone()
	cand.Status = types.StatusSettled
	return m.Apply(cand)
}
