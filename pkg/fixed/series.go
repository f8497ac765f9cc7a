package fixed

import "fmt"

// Series approximations for the two transcendental functions the cost
// engine needs. Both are bounded-iteration and deterministic: the same
// inputs always produce the same outputs, which is what lets the reserve
// invariant telescope exactly across a sequence of trades.

const (
	// MaxExpArg is the exponential input ceiling. exp(20) ≈ 4.85e8 is the
	// largest value whose series still fits comfortably in the 64-bit raw
	// range; anything above fails with ErrOverflow rather than saturating.
	MaxExpArg = Value(20 * Scale)

	// Ln2 is ln 2 rounded to nine fractional digits. Used for range
	// reduction in Ln and for the worst-case-loss bound b·ln 2.
	Ln2 = Value(693_147_181)

	// ApproxError is the approximation tolerance of Exp and Ln (1e-6).
	// For Ln, and for Exp with non-positive arguments, the bound is
	// absolute. For positive arguments e^x outgrows any fixed absolute
	// bound as truncation accumulates across the large Taylor terms, so
	// there the bound is relative to the true value. The cost function
	// keeps every Exp argument non-positive, so its guarantees rest on
	// the absolute bound. Tests assert against this tolerance instead of
	// exact equality.
	ApproxError = Value(1_000)

	// expIterations caps the Taylor expansion. exp(20) needs roughly 60
	// terms before they truncate to zero at nine digits; the loop almost
	// always exits earlier via the convergence break.
	expIterations = 80

	// lnIterations caps the atanh series. On [1, 2] the series argument is
	// at most 1/3, so terms shrink by ~1/9 each step and convergence is
	// reached in well under 20 iterations.
	lnIterations = 40
)

// Exp computes e^x.
//
// Inputs above MaxExpArg fail with ErrOverflow. Inputs below −MaxExpArg
// underflow to zero (e^−20 is below resolution anyway). Negative inputs are
// computed as the reciprocal of the positive-argument series so the Taylor
// expansion never has to fight alternating-sign cancellation.
//
// The result is within ApproxError of the true value absolutely for x ≤ 0
// and relatively for x > 0; see ApproxError.
func Exp(x Value) (Value, error) {
	if x > MaxExpArg {
		return 0, fmt.Errorf("exp(%s) above input ceiling %s: %w", x, MaxExpArg, ErrOverflow)
	}
	if x < -MaxExpArg {
		return 0, nil
	}
	if x < 0 {
		pos, err := Exp(-x)
		if err != nil {
			return 0, err
		}
		// e^x = 1 / e^−x; pos ≥ 1 here so the division is safe.
		return One.Div(pos)
	}

	// Taylor series: e^x = Σ xⁿ/n!
	result := One
	term := One
	for n := int64(1); n <= expIterations; n++ {
		t, err := term.Mul(x)
		if err != nil {
			return 0, err
		}
		term = Value(int64(t) / n)
		if term == 0 {
			break
		}
		result, err = result.Add(term)
		if err != nil {
			return 0, err
		}
	}
	return result, nil
}

// Ln computes the natural logarithm of x. x must be positive.
//
// Arguments below 1 use ln x = −ln(1/x); arguments above 2 are halved down
// into [1, 2] with ln x = ln(x/2) + ln 2. On [1, 2] the function is
// evaluated as 2·atanh(z) with z = (x−1)/(x+1), whose series converges far
// faster than the textbook ln(1+y) expansion near the top of the interval.
func Ln(x Value) (Value, error) {
	if x <= 0 {
		return 0, fmt.Errorf("ln(%s) undefined: %w", x, ErrDomain)
	}
	if x == One {
		return 0, nil
	}
	if x < One {
		inv, err := One.Div(x)
		if err != nil {
			return 0, err
		}
		r, err := Ln(inv)
		if err != nil {
			return 0, err
		}
		return r.Neg()
	}

	// Halve into [1, 2], counting the ln 2 contributions.
	var halvings int64
	two := Value(2 * Scale)
	for x > two {
		x = Value(int64(x) / 2)
		halvings++
	}

	num, err := x.Sub(One)
	if err != nil {
		return 0, err
	}
	den, err := x.Add(One)
	if err != nil {
		return 0, err
	}
	z, err := num.Div(den)
	if err != nil {
		return 0, err
	}
	z2, err := z.Mul(z)
	if err != nil {
		return 0, err
	}

	// 2·atanh(z) = 2·(z + z³/3 + z⁵/5 + ...)
	sum := z
	pow := z
	for n := int64(3); n <= lnIterations; n += 2 {
		pow, err = pow.Mul(z2)
		if err != nil {
			return 0, err
		}
		term := Value(int64(pow) / n)
		if term == 0 {
			break
		}
		sum, err = sum.Add(term)
		if err != nil {
			return 0, err
		}
	}

	result, err := sum.Add(sum)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < halvings; i++ {
		result, err = result.Add(Ln2)
		if err != nil {
			return 0, err
		}
	}
	return result, nil
}
