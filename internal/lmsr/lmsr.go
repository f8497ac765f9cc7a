// Package lmsr implements the Logarithmic Market Scoring Rule cost function
// for binary markets.
//
// The market maker quotes against the cost function
//
//	C(q) = b · ln(exp(q_A/b) + exp(q_B/b))
//
// where q is the vector of issued share quantities and b is the liquidity
// parameter. A trade that moves the quantity vector from q to q′ costs
// C(q′) − C(q), and the instantaneous price of outcome i is
//
//	p_i = exp(q_i/b) / (exp(q_A/b) + exp(q_B/b))
//
// Prices behave as probabilities: each lies in [0, 1] and they sum to one.
// The market maker's worst-case loss is bounded by b·ln 2.
//
// All evaluation is in fixed point. To keep exponential arguments inside the
// representable range for arbitrarily large q/b, both Cost and Prices
// subtract the running maximum exponent before summing (the standard
// log-sum-exp evaluation order), so every Exp argument is ≤ 0.
package lmsr

import (
	"fmt"

	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// Cost evaluates C(q) = b·ln(Σ exp(q_i/b)).
//
// Using m = max(q_A, q_B), this is computed as
// m + b·ln(exp((q_A−m)/b) + exp((q_B−m)/b)) so the exponential arguments
// never exceed zero. Fails with ErrInvalidParameter when b ≤ 0 and with an
// arithmetic error if an intermediate leaves the numeric range.
func Cost(q [2]fixed.Value, b fixed.Value) (fixed.Value, error) {
	sum, m, err := sumExp(q, b)
	if err != nil {
		return 0, err
	}
	lnSum, err := fixed.Ln(sum)
	if err != nil {
		return 0, fmt.Errorf("cost: %w", err)
	}
	scaled, err := b.Mul(lnSum)
	if err != nil {
		return 0, fmt.Errorf("cost: %w", err)
	}
	return m.Add(scaled)
}

// CostDelta returns the collateral change C(q′) − C(q) from adding amount
// shares of the given outcome (amount may be negative for a sell), along
// with the updated quantity vector. Positive for buys, negative for sells.
func CostDelta(q [2]fixed.Value, b fixed.Value, outcome types.Outcome, amount fixed.Value) (fixed.Value, [2]fixed.Value, error) {
	before, err := Cost(q, b)
	if err != nil {
		return 0, q, err
	}
	next := q
	next[outcome], err = q[outcome].Add(amount)
	if err != nil {
		return 0, q, err
	}
	after, err := Cost(next, b)
	if err != nil {
		return 0, q, err
	}
	delta, err := after.Sub(before)
	if err != nil {
		return 0, q, err
	}
	return delta, next, nil
}

// Prices returns the instantaneous price of each outcome. Both prices are
// clamped to [0, 1]; their sum is within fixed.ApproxError of one.
func Prices(q [2]fixed.Value, b fixed.Value) ([2]fixed.Value, error) {
	var prices [2]fixed.Value
	sum, m, err := sumExp(q, b)
	if err != nil {
		return prices, err
	}
	for i := range q {
		shifted, err := q[i].Sub(m)
		if err != nil {
			return prices, err
		}
		arg, err := shifted.Div(b)
		if err != nil {
			return prices, err
		}
		e, err := fixed.Exp(arg)
		if err != nil {
			return prices, fmt.Errorf("price %s: %w", types.Outcome(i), err)
		}
		p, err := e.Div(sum)
		if err != nil {
			return prices, err
		}
		prices[i] = clamp01(p)
	}
	return prices, nil
}

// MaxLoss returns b·ln 2, the worst-case market-maker loss for a binary
// market. Redemption payouts can never exceed the reserve by more than
// rounding once this subsidy is accounted for.
func MaxLoss(b fixed.Value) (fixed.Value, error) {
	if b <= 0 {
		return 0, fmt.Errorf("liquidity parameter %s: %w", b, types.ErrInvalidParameter)
	}
	return b.Mul(fixed.Ln2)
}

// sumExp computes Σ exp((q_i − m)/b) and returns the sum together with the
// running maximum m. With the shift applied the sum always lands in (0, 2],
// squarely inside Ln's fast-converging range.
func sumExp(q [2]fixed.Value, b fixed.Value) (sum, m fixed.Value, err error) {
	if b <= 0 {
		return 0, 0, fmt.Errorf("liquidity parameter %s: %w", b, types.ErrInvalidParameter)
	}
	m = q[0]
	if q[1] > m {
		m = q[1]
	}
	for i := range q {
		shifted, err := q[i].Sub(m)
		if err != nil {
			return 0, 0, err
		}
		arg, err := shifted.Div(b)
		if err != nil {
			return 0, 0, err
		}
		e, err := fixed.Exp(arg)
		if err != nil {
			return 0, 0, fmt.Errorf("sum exp: %w", err)
		}
		sum, err = sum.Add(e)
		if err != nil {
			return 0, 0, err
		}
	}
	if sum == 0 {
		return 0, 0, fmt.Errorf("sum exp underflowed to zero: %w", fixed.ErrDomain)
	}
	return sum, m, nil
}

func clamp01(p fixed.Value) fixed.Value {
	if p < 0 {
		return 0
	}
	if p > fixed.One {
		return fixed.One
	}
	return p
}
