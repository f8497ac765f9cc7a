// Package market holds the persisted state of one binary prediction market
// and the positions traded against it, together with the single validation
// gate every mutation must pass through.
//
// Mutations are staged on clones: an operation builds a candidate Market
// (and Position), and only a candidate that satisfies every invariant is
// swapped into the live record via Apply. A failed validation leaves the
// original completely untouched — there are no partial writes.
package market

import (
	"fmt"
	"time"

	"lmsr-amm/internal/lmsr"
	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// Market is the full persisted record of one market instance.
//
// Quantities are the signed fixed-point share quantities issued per outcome
// (indexable by types.Outcome). Reserve is the pooled collateral backing
// them. It is seeded at creation with the operator subsidy C(q₀) = b·ln 2 —
// the worst-case loss — so that while the market is trading it tracks C(q)
// exactly: every trade's delta is computed by the same deterministic cost
// function and the sum telescopes, and since C(q) ≥ max(q), the reserve
// always covers the winning side's redemption in full.
type Market struct {
	ID         string         `json:"id"`
	Quantities [2]fixed.Value `json:"quantities"`
	Liquidity  fixed.Value    `json:"liquidity"` // LMSR parameter b, immutable
	Reserve    fixed.Value    `json:"reserve"`
	Status     types.Status   `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolveAt  time.Time      `json:"resolve_at"`

	// Winner is nil until the market resolves and immutable afterward.
	Winner *types.Outcome `json:"winner,omitempty"`
}

// New creates a market in the Trading state. The Created state exists only
// transiently inside this constructor: a market is never persisted before
// it is ready to quote.
func New(id string, b fixed.Value, now, resolveAt time.Time) (*Market, error) {
	if id == "" {
		return nil, fmt.Errorf("market id is empty: %w", types.ErrInvalidParameter)
	}
	if b <= 0 {
		return nil, fmt.Errorf("liquidity parameter %s must be positive: %w", b, types.ErrInvalidParameter)
	}
	if !resolveAt.After(now) {
		return nil, fmt.Errorf("resolve_at %s is not in the future: %w", resolveAt.Format(time.RFC3339), types.ErrInvalidParameter)
	}
	// The operator funds the maximum loss upfront: C(0) = b·ln 2.
	seed, err := lmsr.Cost([2]fixed.Value{0, 0}, b)
	if err != nil {
		return nil, err
	}
	m := &Market{
		ID:        id,
		Liquidity: b,
		Reserve:   seed,
		Status:    types.StatusCreated,
		CreatedAt: now,
		ResolveAt: resolveAt,
	}
	if err := m.transitionTo(types.StatusTrading); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Clone returns an independent copy suitable for staging a mutation.
func (m *Market) Clone() *Market {
	c := *m
	if m.Winner != nil {
		w := *m.Winner
		c.Winner = &w
	}
	return &c
}

// Expired reports whether trading has closed (now at or past resolve_at).
func (m *Market) Expired(now time.Time) bool {
	return !now.Before(m.ResolveAt)
}

// Prices returns the current instantaneous prices.
func (m *Market) Prices() ([2]fixed.Value, error) {
	return lmsr.Prices(m.Quantities, m.Liquidity)
}

// Apply validates the candidate and, only if every invariant holds, swaps
// it into m. This is the single entry point through which committed market
// state changes; on error m is unchanged.
func (m *Market) Apply(candidate *Market) error {
	if candidate.ID != m.ID {
		return fmt.Errorf("candidate belongs to market %s, not %s: %w", candidate.ID, m.ID, types.ErrInvariantViolation)
	}
	if candidate.Liquidity != m.Liquidity {
		return fmt.Errorf("liquidity parameter is immutable: %w", types.ErrInvariantViolation)
	}
	if candidate.Status != m.Status && !m.Status.CanTransition(candidate.Status) {
		return fmt.Errorf("status transition %s → %s not allowed: %w", m.Status, candidate.Status, types.ErrInvariantViolation)
	}
	if m.Winner != nil && (candidate.Winner == nil || *candidate.Winner != *m.Winner) {
		return fmt.Errorf("winning outcome is immutable once set: %w", types.ErrInvariantViolation)
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	*m = *candidate.Clone()
	return nil
}

// Validate re-verifies every state invariant. It is called defensively on
// each commit; a failure here means a logic defect upstream, and the
// operation that produced the candidate must be aborted.
func (m *Market) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", m.Status, types.ErrInvariantViolation)
	}
	if m.Liquidity <= 0 {
		return fmt.Errorf("liquidity parameter %s: %w", m.Liquidity, types.ErrInvariantViolation)
	}
	if m.Reserve < 0 {
		return fmt.Errorf("reserve %s is negative: %w", m.Reserve, types.ErrInvariantViolation)
	}
	if (m.Winner != nil) != (m.Status == types.StatusResolved || m.Status == types.StatusSettled) {
		return fmt.Errorf("winner must be set exactly when resolved: %w", types.ErrInvariantViolation)
	}
	if m.Winner != nil && !m.Winner.Valid() {
		return fmt.Errorf("winner %d out of range: %w", *m.Winner, types.ErrInvariantViolation)
	}

	if m.Status != types.StatusTrading {
		return nil
	}

	// While trading: prices normalize and the reserve tracks the cost
	// function, both within the documented approximation bound.
	prices, err := lmsr.Prices(m.Quantities, m.Liquidity)
	if err != nil {
		return fmt.Errorf("validate prices: %w", err)
	}
	sum, err := prices[0].Add(prices[1])
	if err != nil {
		return err
	}
	if absDiff(sum, fixed.One) > fixed.ApproxError {
		return fmt.Errorf("prices sum to %s, not 1: %w", sum, types.ErrInvariantViolation)
	}

	expected, err := lmsr.Cost(m.Quantities, m.Liquidity)
	if err != nil {
		return fmt.Errorf("validate reserve: %w", err)
	}
	if absDiff(m.Reserve, expected) > m.reserveTolerance() {
		return fmt.Errorf("reserve %s diverges from cost function value %s: %w", m.Reserve, expected, types.ErrInvariantViolation)
	}
	return nil
}

// reserveTolerance scales the approximation bound by b: cost values are
// b·ln(·), so their absolute error grows with the liquidity parameter.
func (m *Market) reserveTolerance() fixed.Value {
	tol, err := m.Liquidity.Mul(fixed.ApproxError)
	if err != nil || tol < fixed.ApproxError {
		return fixed.ApproxError
	}
	return tol
}

func (m *Market) transitionTo(s types.Status) error {
	if !m.Status.CanTransition(s) {
		return fmt.Errorf("status transition %s → %s not allowed: %w", m.Status, s, types.ErrInvariantViolation)
	}
	m.Status = s
	return nil
}

func absDiff(a, b fixed.Value) fixed.Value {
	if a > b {
		return a - b
	}
	return b - a
}
