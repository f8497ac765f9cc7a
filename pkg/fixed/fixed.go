// Package fixed implements the checked fixed-point arithmetic that the
// pricing engine is built on.
//
// A Value is a signed 64-bit integer carrying nine fractional decimal digits
// (Scale = 1e9), so 1.0 is stored as 1_000_000_000. This is the exact
// representation market records are persisted with; EncodingVersion and
// FracDigits travel with every stored record so the encoding is never
// ambiguous across restarts.
//
// Every operation is checked: overflow and division by zero return an error
// instead of wrapping or silently truncating. Products and quotients are
// promoted to arbitrary precision (math/big) before being scaled back down,
// with truncation toward zero.
package fixed

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// FracDigits is the number of fractional decimal digits in a Value.
	FracDigits = 9

	// Scale is the raw integer representing 1.0.
	Scale int64 = 1_000_000_000

	// EncodingVersion identifies the persisted fixed-point layout. Bump it
	// if FracDigits or the integer width ever changes.
	EncodingVersion = 1
)

// Arithmetic failures. All are terminal for the operation that hit them;
// none are retryable.
var (
	ErrOverflow       = errors.New("fixed-point overflow")
	ErrDivisionByZero = errors.New("fixed-point division by zero")
	ErrDomain         = errors.New("fixed-point domain error")
)

// Value is a fixed-point number with FracDigits fractional decimal digits.
type Value int64

// One is 1.0.
const One = Value(Scale)

var bigScale = big.NewInt(Scale)

// FromInt converts a whole number of units to a Value.
func FromInt(n int64) (Value, error) {
	if n > math.MaxInt64/Scale || n < math.MinInt64/Scale {
		return 0, fmt.Errorf("from int %d: %w", n, ErrOverflow)
	}
	return Value(n * Scale), nil
}

// Parse converts a decimal string such as "1.5" or "-0.25" to a Value.
// Digits beyond the ninth fractional place are truncated toward zero.
func Parse(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	raw := d.Shift(FracDigits).Truncate(0).BigInt()
	if !raw.IsInt64() {
		return 0, fmt.Errorf("parse %q: %w", s, ErrOverflow)
	}
	return Value(raw.Int64()), nil
}

// Decimal returns the exact decimal representation of v.
func (v Value) Decimal() decimal.Decimal {
	return decimal.New(int64(v), -FracDigits)
}

// String renders v as a plain decimal string, e.g. "0.693147181".
func (v Value) String() string {
	return v.Decimal().String()
}

// Add returns v + o, failing on overflow.
func (v Value) Add(o Value) (Value, error) {
	sum := v + o
	if (o > 0 && sum < v) || (o < 0 && sum > v) {
		return 0, fmt.Errorf("add %s + %s: %w", v, o, ErrOverflow)
	}
	return sum, nil
}

// Sub returns v − o, failing on overflow.
func (v Value) Sub(o Value) (Value, error) {
	diff := v - o
	if (o < 0 && diff < v) || (o > 0 && diff > v) {
		return 0, fmt.Errorf("sub %s - %s: %w", v, o, ErrOverflow)
	}
	return diff, nil
}

// Neg returns −v, failing on the single unrepresentable case.
func (v Value) Neg() (Value, error) {
	if v == math.MinInt64 {
		return 0, fmt.Errorf("neg: %w", ErrOverflow)
	}
	return -v, nil
}

// Mul returns v × o. The 128-bit intermediate product is computed with
// math/big and scaled back down, truncating toward zero.
func (v Value) Mul(o Value) (Value, error) {
	r := new(big.Int).Mul(big.NewInt(int64(v)), big.NewInt(int64(o)))
	r.Quo(r, bigScale)
	if !r.IsInt64() {
		return 0, fmt.Errorf("mul %s * %s: %w", v, o, ErrOverflow)
	}
	return Value(r.Int64()), nil
}

// Div returns v ÷ o, truncating toward zero.
func (v Value) Div(o Value) (Value, error) {
	if o == 0 {
		return 0, fmt.Errorf("div %s / 0: %w", v, ErrDivisionByZero)
	}
	r := new(big.Int).Mul(big.NewInt(int64(v)), bigScale)
	r.Quo(r, big.NewInt(int64(o)))
	if !r.IsInt64() {
		return 0, fmt.Errorf("div %s / %s: %w", v, o, ErrOverflow)
	}
	return Value(r.Int64()), nil
}
