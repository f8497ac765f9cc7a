package market

import (
	"fmt"
	"time"

	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// Position is one trader's holding in one market. It is created on the
// trader's first buy, mutated by every subsequent trade or redemption, and
// left zeroed (logically destroyed) after full redemption.
type Position struct {
	MarketID  string         `json:"market_id"`
	Owner     string         `json:"owner"`
	Shares    [2]fixed.Value `json:"shares"` // indexable by types.Outcome
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewPosition returns an empty position for the given trader.
func NewPosition(marketID, owner string) *Position {
	return &Position{MarketID: marketID, Owner: owner}
}

// Clone returns an independent copy suitable for staging a mutation.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// IsEmpty reports whether the position holds no shares on either side.
func (p *Position) IsEmpty() bool {
	return p.Shares[types.OutcomeA] == 0 && p.Shares[types.OutcomeB] == 0
}

// Apply validates the candidate and swaps it in; on error p is unchanged.
func (p *Position) Apply(candidate *Position) error {
	if candidate.MarketID != p.MarketID || candidate.Owner != p.Owner {
		return fmt.Errorf("candidate position identity mismatch: %w", types.ErrInvariantViolation)
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	*p = *candidate
	return nil
}

// Validate checks the position invariants: a known owner and non-negative
// share counts on both sides.
func (p *Position) Validate() error {
	if p.Owner == "" || p.MarketID == "" {
		return fmt.Errorf("position missing identity: %w", types.ErrInvariantViolation)
	}
	for i, s := range p.Shares {
		if s < 0 {
			return fmt.Errorf("negative %s share count %s: %w", types.Outcome(i), s, types.ErrInvariantViolation)
		}
	}
	return nil
}
