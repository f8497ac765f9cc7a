package lmsr

import (
	"errors"
	"testing"

	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

func fp(t *testing.T, s string) fixed.Value {
	t.Helper()
	v, err := fixed.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func within(t *testing.T, got, want, tol fixed.Value) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > tol {
		t.Errorf("got %s, want %s ± %s (off by %s)", got, want, tol, diff)
	}
}

func TestCost(t *testing.T) {
	t.Parallel()

	b := fixed.One
	tests := []struct {
		name string
		q    [2]fixed.Value
		want string // true value of b·ln(e^qA + e^qB)
	}{
		{"symmetric start", [2]fixed.Value{0, 0}, "0.693147181"},
		{"one share of A", [2]fixed.Value{fixed.One, 0}, "1.313261687"},
		{"skewed book", [2]fixed.Value{fixed.One, 4 * fixed.One}, "4.048587351"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Cost(tt.q, b)
			if err != nil {
				t.Fatalf("Cost: %v", err)
			}
			within(t, got, fp(t, tt.want), fixed.ApproxError)
		})
	}
}

func TestCostRejectsNonPositiveB(t *testing.T) {
	t.Parallel()

	for _, b := range []fixed.Value{0, -fixed.One} {
		if _, err := Cost([2]fixed.Value{0, 0}, b); !errors.Is(err, types.ErrInvalidParameter) {
			t.Errorf("Cost with b=%s: got %v, want ErrInvalidParameter", b, err)
		}
	}
}

// Large quantity imbalances must not overflow: the log-sum-exp shift keeps
// every exponential argument at or below zero.
func TestCostLargeImbalance(t *testing.T) {
	t.Parallel()

	q := [2]fixed.Value{1_000_000 * fixed.One, 0}
	got, err := Cost(q, fixed.One)
	if err != nil {
		t.Fatalf("Cost with huge imbalance: %v", err)
	}
	// exp((0 − 1e6)/1) underflows to zero, so C(q) ≈ max(q).
	within(t, got, q[0], fixed.ApproxError)

	prices, err := Prices(q, fixed.One)
	if err != nil {
		t.Fatalf("Prices with huge imbalance: %v", err)
	}
	if prices[types.OutcomeA] != fixed.One || prices[types.OutcomeB] != 0 {
		t.Errorf("prices = %s/%s, want 1/0", prices[0], prices[1])
	}
}

func TestCostDelta(t *testing.T) {
	t.Parallel()

	b := fp(t, "100")
	q := [2]fixed.Value{0, 0}

	// Buying 10 A costs 100·ln((e^0.1 + 1)/2) ≈ 5.124947951. The absolute
	// error of a cost value scales with b, so the bound does too.
	tol, err := b.Mul(fixed.ApproxError)
	if err != nil {
		t.Fatal(err)
	}
	delta, newQ, err := CostDelta(q, b, types.OutcomeA, fp(t, "10"))
	if err != nil {
		t.Fatalf("CostDelta buy: %v", err)
	}
	within(t, delta, fp(t, "5.124947951"), tol)
	if newQ[types.OutcomeA] != fp(t, "10") || newQ[types.OutcomeB] != 0 {
		t.Errorf("newQ = %s/%s", newQ[0], newQ[1])
	}

	// Selling the same shares back refunds exactly what was paid: the cost
	// function is deterministic, so the deltas telescope.
	back, finalQ, err := CostDelta(newQ, b, types.OutcomeA, -fp(t, "10"))
	if err != nil {
		t.Fatalf("CostDelta sell: %v", err)
	}
	if sum, _ := delta.Add(back); sum != 0 {
		t.Errorf("round trip nets %s, want exactly 0", sum)
	}
	if finalQ != ([2]fixed.Value{0, 0}) {
		t.Errorf("finalQ = %s/%s, want zero vector", finalQ[0], finalQ[1])
	}
}

func TestPrices(t *testing.T) {
	t.Parallel()

	b := fixed.One
	prices, err := Prices([2]fixed.Value{fixed.One, 0}, b)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	// 1/(1+e^-1) and its complement.
	within(t, prices[types.OutcomeA], fp(t, "0.731058579"), fixed.ApproxError)
	within(t, prices[types.OutcomeB], fp(t, "0.268941421"), fixed.ApproxError)
}

func TestPricesNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    [2]fixed.Value
		b    string
	}{
		{"fresh market", [2]fixed.Value{0, 0}, "1"},
		{"small skew", [2]fixed.Value{fixed.One, 0}, "1"},
		{"deep book", [2]fixed.Value{120 * fixed.One, 80 * fixed.One}, "100"},
		{"tiny b", [2]fixed.Value{fixed.One, 2 * fixed.One}, "0.5"},
		{"huge skew", [2]fixed.Value{1_000 * fixed.One, 0}, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prices, err := Prices(tt.q, fp(t, tt.b))
			if err != nil {
				t.Fatalf("Prices: %v", err)
			}
			for i, p := range prices {
				if p < 0 || p > fixed.One {
					t.Errorf("price %d = %s outside [0,1]", i, p)
				}
			}
			sum, err := prices[0].Add(prices[1])
			if err != nil {
				t.Fatal(err)
			}
			within(t, sum, fixed.One, fixed.ApproxError)
		})
	}
}

// Buying an outcome must raise its price and lower the other's.
func TestPricesMoveWithDemand(t *testing.T) {
	t.Parallel()

	b := fp(t, "100")
	before, err := Prices([2]fixed.Value{0, 0}, b)
	if err != nil {
		t.Fatal(err)
	}
	after, err := Prices([2]fixed.Value{10 * fixed.One, 0}, b)
	if err != nil {
		t.Fatal(err)
	}
	if after[types.OutcomeA] <= before[types.OutcomeA] {
		t.Errorf("price of A did not rise: %s → %s", before[0], after[0])
	}
	if after[types.OutcomeB] >= before[types.OutcomeB] {
		t.Errorf("price of B did not fall: %s → %s", before[1], after[1])
	}
}

func TestMaxLoss(t *testing.T) {
	t.Parallel()

	got, err := MaxLoss(fp(t, "100"))
	if err != nil {
		t.Fatalf("MaxLoss: %v", err)
	}
	within(t, got, fp(t, "69.3147181"), fixed.ApproxError)

	if _, err := MaxLoss(0); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("MaxLoss(0): got %v, want ErrInvalidParameter", err)
	}
}
