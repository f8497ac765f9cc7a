// Package types defines the shared vocabulary used across all packages —
// outcome and status enums, the error kinds every operation can fail with,
// and trade receipts. It depends only on pkg/fixed so it can be imported
// by any layer.
package types

import (
	"fmt"
	"time"

	"lmsr-amm/pkg/fixed"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Outcome identifies one of the two mutually exclusive outcomes of a market.
type Outcome int

const (
	OutcomeA Outcome = 0
	OutcomeB Outcome = 1
)

// ParseOutcome converts the wire representation ("A" or "B") to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "A", "a":
		return OutcomeA, nil
	case "B", "b":
		return OutcomeB, nil
	default:
		return 0, fmt.Errorf("outcome %q: %w", s, ErrInvalidParameter)
	}
}

// Other returns the opposing outcome.
func (o Outcome) Other() Outcome {
	if o == OutcomeA {
		return OutcomeB
	}
	return OutcomeA
}

func (o Outcome) String() string {
	if o == OutcomeA {
		return "A"
	}
	return "B"
}

// Valid reports whether o is one of the two defined outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeA || o == OutcomeB
}

// Side represents the direction of a trade: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// ————————————————————————————————————————————————————————————————————————
// Market lifecycle
// ————————————————————————————————————————————————————————————————————————

// Status is the market lifecycle state. Transitions run strictly forward
// along Created → Trading → Resolved → Settled; anything else is rejected.
//
// The resolution-pending window (past resolve_at but not yet resolved) is a
// derived condition, not a stored state: trading is already rejected on the
// clock, and resolve is the only operation that advances the machine.
type Status string

const (
	StatusCreated  Status = "created"
	StatusTrading  Status = "trading"
	StatusResolved Status = "resolved"
	StatusSettled  Status = "settled"
)

// validTransitions is the closed allowed-transition table. A transition not
// listed here is an invariant violation, never a silent no-op.
var validTransitions = map[Status]Status{
	StatusCreated:  StatusTrading,
	StatusTrading:  StatusResolved,
	StatusResolved: StatusSettled,
}

// CanTransition reports whether from → to is an allowed lifecycle step.
func (from Status) CanTransition(to Status) bool {
	return validTransitions[from] == to
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusTrading, StatusResolved, StatusSettled:
		return true
	}
	return false
}

// ————————————————————————————————————————————————————————————————————————
// Error kinds
// ————————————————————————————————————————————————————————————————————————

// Every operation fails with exactly one of these kinds (possibly wrapped
// with context). All are local, synchronous, and non-retryable: the engine
// never retries, the caller decides whether to resubmit with different
// parameters. Arithmetic failures live in pkg/fixed.
var (
	ErrInvalidParameter    = fmt.Errorf("invalid parameter")
	ErrMarketNotTrading    = fmt.Errorf("market is not trading")
	ErrMarketExpired       = fmt.Errorf("market expired: trading closed at resolution time")
	ErrTooEarly            = fmt.Errorf("too early")
	ErrAlreadyResolved     = fmt.Errorf("market already resolved")
	ErrSlippageExceeded    = fmt.Errorf("slippage bound exceeded")
	ErrInsufficientShares  = fmt.Errorf("insufficient shares")
	ErrInsufficientReserve = fmt.Errorf("insufficient reserve")
	ErrInvariantViolation  = fmt.Errorf("market invariant violation")
	ErrUnauthorized        = fmt.Errorf("unauthorized")
	ErrMarketNotFound      = fmt.Errorf("market not found")
)

// ————————————————————————————————————————————————————————————————————————
// Receipts
// ————————————————————————————————————————————————————————————————————————

// TradeReceipt records the committed effect of one buy or sell. Cost is the
// collateral that changed hands: paid into the reserve for BUY, paid out of
// it for SELL. PriceA/PriceB are the post-trade instantaneous prices.
type TradeReceipt struct {
	ID       string      `json:"id"`
	MarketID string      `json:"market_id"`
	Owner    string      `json:"owner"`
	Side     Side        `json:"side"`
	Outcome  Outcome     `json:"outcome"`
	Amount   fixed.Value `json:"amount"`
	Cost     fixed.Value `json:"cost"`
	PriceA   fixed.Value `json:"price_a"`
	PriceB   fixed.Value `json:"price_b"`
	Reserve  fixed.Value `json:"reserve"`
	TradedAt time.Time   `json:"traded_at"`
}

// RedemptionReceipt records a settlement payout. Payout is zero when the
// position held no winning shares (repeat redemptions are a no-op).
type RedemptionReceipt struct {
	MarketID   string      `json:"market_id"`
	Owner      string      `json:"owner"`
	Winner     Outcome     `json:"winner"`
	Payout     fixed.Value `json:"payout"`
	Voided     fixed.Value `json:"voided"` // losing shares cancelled
	RedeemedAt time.Time   `json:"redeemed_at"`
}
