// Package hpreal provides HighPrecReal, an arbitrary-precision signed
// real number with correctly-rounded elementary arithmetic, built on
// math/big.Float and github.com/ALTree/bigfloat.
package hpreal

import (
	"fmt"
	"math"
	"math/big"
	"sync/atomic"

	"github.com/ALTree/bigfloat"
)

// guardBits absorbs rounding error accumulated across a long chain of
// self-squares before it reaches the requested decimal precision.
const guardBits = 16

var precisionBits atomic.Uint32

func init() {
	SetPrecision(50)
}

// SetPrecision sets the process-wide working precision, in decimal
// digits, used by New, Zero and One for every HighPrecReal constructed
// afterwards. It must be called before any worker goroutines that
// construct HighPrecReal values are spawned; values already
// constructed keep the precision they were built with, since that
// precision is stored on the value itself, not looked up globally.
func SetPrecision(digits uint) {
	bits := uint32(math.Ceil(float64(digits)*3.321928094887362)) + guardBits
	precisionBits.Store(bits)
}

func currentPrec() uint {
	return uint(precisionBits.Load())
}

// HighPrecReal is an arbitrary-precision real number. The zero value
// is a valid representation of 0 at the current process precision.
type HighPrecReal struct {
	v *big.Float
}

// Zero returns the additive identity at the current working precision.
func Zero() HighPrecReal {
	return HighPrecReal{v: new(big.Float).SetPrec(currentPrec())}
}

// One returns the multiplicative identity at the current working precision.
func One() HighPrecReal {
	return HighPrecReal{v: new(big.Float).SetPrec(currentPrec()).SetInt64(1)}
}

// New parses a decimal string at the current working precision.
func New(s string) (HighPrecReal, error) {
	f, _, err := big.ParseFloat(s, 10, currentPrec(), big.ToNearestEven)
	if err != nil {
		return HighPrecReal{}, fmt.Errorf("hpreal: parsing %q: %w", s, err)
	}
	return HighPrecReal{v: f}, nil
}

// MustNew is New, panicking on a malformed literal. Intended for
// constants known at compile time.
func MustNew(s string) HighPrecReal {
	v, err := New(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromInt64 returns n at the current working precision.
func FromInt64(n int64) HighPrecReal {
	return HighPrecReal{v: new(big.Float).SetPrec(currentPrec()).SetInt64(n)}
}

// PowerOfTwo returns 2^k exactly, for k >= 0, at the current working
// precision. It is computed by setting the exponent directly rather
// than by repeated multiplication or a general Pow call, since a power
// of two is exactly representable in binary floating point.
func PowerOfTwo(k int) HighPrecReal {
	one := new(big.Float).SetPrec(currentPrec()).SetInt64(1)
	return HighPrecReal{v: new(big.Float).SetPrec(currentPrec()).SetMantExp(one, k)}
}

func (x HighPrecReal) prec() uint {
	if x.v == nil {
		return currentPrec()
	}
	return x.v.Prec()
}

func (x HighPrecReal) big() *big.Float {
	if x.v == nil {
		return new(big.Float).SetPrec(currentPrec())
	}
	return x.v
}

func maxPrec(x, y HighPrecReal) uint {
	p := x.prec()
	if q := y.prec(); q > p {
		return q
	}
	return p
}

// Add returns x + y.
func (x HighPrecReal) Add(y HighPrecReal) HighPrecReal {
	z := new(big.Float).SetPrec(maxPrec(x, y))
	z.Add(x.big(), y.big())
	return HighPrecReal{v: z}
}

// Sub returns x - y.
func (x HighPrecReal) Sub(y HighPrecReal) HighPrecReal {
	z := new(big.Float).SetPrec(maxPrec(x, y))
	z.Sub(x.big(), y.big())
	return HighPrecReal{v: z}
}

// Mul returns x * y.
func (x HighPrecReal) Mul(y HighPrecReal) HighPrecReal {
	z := new(big.Float).SetPrec(maxPrec(x, y))
	z.Mul(x.big(), y.big())
	return HighPrecReal{v: z}
}

// Quo returns x / y.
func (x HighPrecReal) Quo(y HighPrecReal) HighPrecReal {
	z := new(big.Float).SetPrec(maxPrec(x, y))
	z.Quo(x.big(), y.big())
	return HighPrecReal{v: z}
}

// Neg returns -x.
func (x HighPrecReal) Neg() HighPrecReal {
	z := new(big.Float).SetPrec(x.prec())
	z.Neg(x.big())
	return HighPrecReal{v: z}
}

// Cmp compares x and y per math/big.Float.Cmp.
func (x HighPrecReal) Cmp(y HighPrecReal) int {
	return x.big().Cmp(y.big())
}

// Sign returns -1, 0 or +1 matching the sign of x.
func (x HighPrecReal) Sign() int {
	return x.big().Sign()
}

// IsZero reports whether x is exactly zero.
func (x HighPrecReal) IsZero() bool {
	return x.big().Sign() == 0
}

// Exp returns e^x.
func Exp(x HighPrecReal) HighPrecReal {
	return HighPrecReal{v: bigfloat.Exp(x.big())}
}

// Log returns the natural logarithm of x. x must be positive.
func Log(x HighPrecReal) HighPrecReal {
	return HighPrecReal{v: bigfloat.Log(x.big())}
}

// Log2 returns the base-2 logarithm of x. x must be positive.
func Log2(x HighPrecReal) HighPrecReal {
	ln2 := bigfloat.Log(big.NewFloat(2).SetPrec(x.prec()))
	z := new(big.Float).SetPrec(x.prec())
	z.Quo(bigfloat.Log(x.big()), ln2)
	return HighPrecReal{v: z}
}

// Pow returns x^y.
func Pow(x, y HighPrecReal) HighPrecReal {
	return HighPrecReal{v: bigfloat.Pow(x.big(), y.big())}
}

// FloorInt truncates x toward zero and returns the result as an int.
// This is the floor only for non-negative x; for negative x it rounds
// up.
func (x HighPrecReal) FloorInt() int {
	i, _ := x.big().Int64()
	return int(i)
}

// Float64 returns the nearest float64 to x, for display or coarse
// cross-checks; it is not used anywhere on the arithmetic hot path.
func (x HighPrecReal) Float64() float64 {
	f, _ := x.big().Float64()
	return f
}

// String renders x in decimal, to a digit count derived from its
// working precision.
func (x HighPrecReal) String() string {
	digits := int(float64(x.prec()) / 3.321928094887362)
	if digits < 1 {
		digits = 1
	}
	return x.big().Text('g', digits)
}

// CloseWithinDigits reports whether a and b agree to at least the
// given number of decimal digits, i.e. |a-b| <= 10^-digits * max(1, |a|, |b|).
// It is a test helper: production code never needs an approximate
// comparison.
func CloseWithinDigits(a, b HighPrecReal, digits uint) bool {
	prec := maxPrec(a, b)
	diff := new(big.Float).SetPrec(prec)
	diff.Sub(a.big(), b.big())
	diff.Abs(diff)

	scale := new(big.Float).SetPrec(prec).SetInt64(1)
	absA := new(big.Float).SetPrec(prec).Abs(a.big())
	absB := new(big.Float).SetPrec(prec).Abs(b.big())
	if absA.Cmp(scale) > 0 {
		scale = absA
	}
	if absB.Cmp(scale) > 0 {
		scale = absB
	}

	tol := bigfloat.Pow(big.NewFloat(10).SetPrec(prec), big.NewFloat(-float64(digits)).SetPrec(prec))
	tol.Mul(tol, scale)
	return diff.Cmp(tol) <= 0
}
