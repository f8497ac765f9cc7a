package fixed

import (
	"errors"
	"testing"
)

// within fails the test unless got is within ApproxError of want.
func within(t *testing.T, got, want Value) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > ApproxError {
		t.Errorf("got %s, want %s ± %s (off by %s)", got, want, ApproxError, diff)
	}
}

func TestExp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    Value
		want Value // e^x scaled, true value rounded to nine digits
	}{
		{"zero", 0, One},
		{"one", One, 2_718_281_828},
		{"half", 500_000_000, 1_648_721_271},
		{"two", 2 * One, 7_389_056_099},
		{"minus one", -One, 367_879_441},
		{"minus half", -500_000_000, 606_530_660},
		{"smallest step", 1, One}, // e^1e-9 ≈ 1 at this resolution
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Exp(tt.x)
			if err != nil {
				t.Fatalf("Exp(%s): %v", tt.x, err)
			}
			within(t, got, tt.want)
		})
	}
}

// Large arguments lose absolute precision as the Taylor terms grow, but the
// relative error stays within ApproxError all the way up to the ceiling.
func TestExpRelativeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    Value
		want Value // e^x scaled, true value truncated to nine digits
	}{
		{"ten", 10 * One, 22_026_465_794_806},
		{"fifteen", 15 * One, 3_269_017_372_472_110},
		{"ceiling", MaxExpArg, 485_165_195_409_790_277},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Exp(tt.x)
			if err != nil {
				t.Fatalf("Exp(%s): %v", tt.x, err)
			}
			diff := int64(got - tt.want)
			if diff < 0 {
				diff = -diff
			}
			// ApproxError raw units per unit of magnitude.
			relTol := int64(tt.want) / Scale * int64(ApproxError)
			if diff > relTol {
				t.Errorf("Exp(%s) = %s, want %s within %d raw (off by %d)", tt.x, got, tt.want, relTol, diff)
			}
		})
	}
}

func TestExpCeiling(t *testing.T) {
	t.Parallel()

	// At the ceiling the series still fits; one step above fails loudly.
	if _, err := Exp(MaxExpArg); err != nil {
		t.Errorf("Exp at ceiling should succeed: %v", err)
	}
	if _, err := Exp(MaxExpArg + 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Exp above ceiling: got %v, want ErrOverflow", err)
	}
}

func TestExpUnderflow(t *testing.T) {
	t.Parallel()

	got, err := Exp(-MaxExpArg - 1)
	if err != nil {
		t.Fatalf("Exp below -ceiling: %v", err)
	}
	if got != 0 {
		t.Errorf("Exp far below zero = %s, want 0", got)
	}
}

func TestLn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    Value
		want Value // ln x scaled, true value rounded to nine digits
	}{
		{"one", One, 0},
		{"two", 2 * One, Ln2},
		{"half", 500_000_000, -Ln2},
		{"ten", 10 * One, 2_302_585_093},
		{"one and a half", 1_500_000_000, 405_465_108},
		{"near the top of the base interval", 1_999_999_999, Ln2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Ln(tt.x)
			if err != nil {
				t.Fatalf("Ln(%s): %v", tt.x, err)
			}
			within(t, got, tt.want)
		})
	}
}

func TestLnDomain(t *testing.T) {
	t.Parallel()

	if _, err := Ln(0); !errors.Is(err, ErrDomain) {
		t.Errorf("Ln(0): got %v, want ErrDomain", err)
	}
	if _, err := Ln(-One); !errors.Is(err, ErrDomain) {
		t.Errorf("Ln(-1): got %v, want ErrDomain", err)
	}
}

// Exp and Ln are inverses across the working range, within the documented
// error bound.
func TestExpLnRoundTrip(t *testing.T) {
	t.Parallel()

	for _, x := range []Value{100_000_000, One, 2 * One, 5 * One, 15 * One} {
		e, err := Exp(x)
		if err != nil {
			t.Fatalf("Exp(%s): %v", x, err)
		}
		back, err := Ln(e)
		if err != nil {
			t.Fatalf("Ln(Exp(%s)): %v", x, err)
		}
		diff := back - x
		if diff < 0 {
			diff = -diff
		}
		// Relative error in Exp becomes absolute error in Ln; allow the
		// bound on each leg.
		if diff > 2*ApproxError {
			t.Errorf("Ln(Exp(%s)) = %s, drifted by %s", x, back, diff)
		}
	}
}
