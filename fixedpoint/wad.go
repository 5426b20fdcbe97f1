// Package fixedpoint provides the 18-decimal ("WAD") fixed-point arithmetic
// used by the pricing engine. Products and quotients come in explicit
// round-down and round-up flavours so callers can always push the rounding
// remainder toward the vault. The transcendental operations (LnWad, ExpWad,
// PowWad) are evaluated internally at 256-bit binary precision, giving a
// maximum relative error far below 1e-18 per call.
package fixedpoint

import (
	"errors"
	"math/big"
)

var (
	// ErrDomain is returned when an operand lies outside the mathematical
	// domain of the operation (ln of a non-positive value, division by
	// zero, pow of a non-positive base).
	ErrDomain = errors.New("fixedpoint: input out of domain")
	// ErrOverflow is returned when a result cannot be represented within
	// the 256-bit range the wire format carries.
	ErrOverflow = errors.New("fixedpoint: result overflows")
)

var (
	// WAD is the fixed-point unit, 10^18.
	WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	// WADWAD is WAD squared, 10^36. Dividing WADWAD by a WAD value yields
	// the WAD-scaled reciprocal, used to build inverse exponents.
	WADWAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)
	// LN2Wad is ln(2) scaled by WAD, rounded down.
	LN2Wad = big.NewInt(693147180559945309)

	// ExpWadMaxInput is the largest argument ExpWad accepts; beyond it the
	// result no longer fits in 256 bits. The bound exceeds the int64 range,
	// so it is parsed rather than written as a literal.
	ExpWadMaxInput = mustParseBig("135305999368893231588")
	// expWadMinInput is the argument below which ExpWad underflows to zero.
	expWadMinInput = mustParseBig("-42139678854452767551")

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

const floatPrec = 256

func mustParseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("fixedpoint: malformed integer constant " + s)
	}
	return v
}

// MulWadDown returns a*b/WAD rounded down. Operands must be non-negative.
func MulWadDown(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, WAD)
}

// MulWadUp returns a*b/WAD rounded up. Operands must be non-negative.
func MulWadUp(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	p.Add(p, wadMinusOne())
	return p.Quo(p, WAD)
}

// DivWadDown returns a*WAD/b rounded down.
func DivWadDown(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDomain
	}
	p := new(big.Int).Mul(a, WAD)
	return p.Quo(p, b), nil
}

// DivWadUp returns a*WAD/b rounded up.
func DivWadUp(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDomain
	}
	p := new(big.Int).Mul(a, WAD)
	p.Add(p, new(big.Int).Sub(b, big.NewInt(1)))
	return p.Quo(p, b), nil
}

func wadMinusOne() *big.Int {
	return new(big.Int).Sub(WAD, big.NewInt(1))
}

// LnWad returns ln(x/WAD)*WAD rounded down. x must be positive.
func LnWad(x *big.Int) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, ErrDomain
	}
	f := new(big.Float).SetPrec(floatPrec).SetInt(x)
	f.Quo(f, wadFloat())
	r := lnFloat(f)
	r.Mul(r, wadFloat())
	return floorBig(r), nil
}

// ExpWad returns e^(x/WAD)*WAD rounded down. Arguments above ExpWadMaxInput
// overflow; sufficiently negative arguments underflow to zero.
func ExpWad(x *big.Int) (*big.Int, error) {
	if x.Cmp(ExpWadMaxInput) > 0 {
		return nil, ErrOverflow
	}
	if x.Cmp(expWadMinInput) < 0 {
		return big.NewInt(0), nil
	}
	f := new(big.Float).SetPrec(floatPrec).SetInt(x)
	f.Quo(f, wadFloat())
	r := expFloat(f)
	r.Mul(r, wadFloat())
	return floorBig(r), nil
}

// ExpWadUp is ExpWad with the result rounded up. Pricing code uses it where
// the exponential sits on the side of a subtraction that must shrink the
// amount paid out.
func ExpWadUp(x *big.Int) (*big.Int, error) {
	if x.Cmp(ExpWadMaxInput) > 0 {
		return nil, ErrOverflow
	}
	if x.Cmp(expWadMinInput) < 0 {
		return big.NewInt(0), nil
	}
	f := new(big.Float).SetPrec(floatPrec).SetInt(x)
	f.Quo(f, wadFloat())
	r := expFloat(f)
	r.Mul(r, wadFloat())
	return ceilBig(r), nil
}

// PowWadDown returns (x/WAD)^(y/WAD)*WAD rounded down, computed as
// exp(y*ln(x)). x must be positive; y may be negative.
func PowWadDown(x, y *big.Int) (*big.Int, error) {
	return powWad(x, y, false)
}

// PowWadUp is PowWadDown with the final result rounded up.
func PowWadUp(x, y *big.Int) (*big.Int, error) {
	return powWad(x, y, true)
}

func powWad(x, y *big.Int, roundUp bool) (*big.Int, error) {
	if x.Sign() <= 0 {
		return nil, ErrDomain
	}
	xf := new(big.Float).SetPrec(floatPrec).SetInt(x)
	xf.Quo(xf, wadFloat())
	yf := new(big.Float).SetPrec(floatPrec).SetInt(y)
	yf.Quo(yf, wadFloat())

	e := lnFloat(xf)
	e.Mul(e, yf)
	r := expFloat(e)
	r.Mul(r, wadFloat())

	var out *big.Int
	if roundUp {
		out = ceilBig(r)
	} else {
		out = floorBig(r)
	}
	if out.Cmp(maxUint256) > 0 {
		return nil, ErrOverflow
	}
	return out, nil
}

func wadFloat() *big.Float {
	return new(big.Float).SetPrec(floatPrec).SetInt(WAD)
}

func floorBig(f *big.Float) *big.Int {
	out, _ := f.Int(nil)
	if f.Sign() < 0 && !f.IsInt() {
		out.Sub(out, big.NewInt(1))
	}
	return out
}

func ceilBig(f *big.Float) *big.Int {
	out, _ := f.Int(nil)
	if f.Sign() > 0 && !f.IsInt() {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// ln2Float returns ln(2) at full working precision.
func ln2Float() *big.Float {
	// 80 decimal digits of ln(2), enough for 256-bit precision.
	f, _, _ := big.ParseFloat(
		"0.69314718055994530941723212145817656807550013436025525412068000949339362196969472",
		10, floatPrec, big.ToNearestEven)
	return f
}

// lnFloat computes the natural logarithm of a positive big.Float by splitting
// x into m*2^e with m in [0.5, 1) and summing e*ln2 with the atanh series for
// ln(m), which converges geometrically for |z| <= 1/3.
func lnFloat(x *big.Float) *big.Float {
	mant := new(big.Float).SetPrec(floatPrec)
	exp := x.MantExp(mant)

	one := big.NewFloat(1).SetPrec(floatPrec)
	num := new(big.Float).SetPrec(floatPrec).Sub(mant, one)
	den := new(big.Float).SetPrec(floatPrec).Add(mant, one)
	z := num.Quo(num, den)

	z2 := new(big.Float).SetPrec(floatPrec).Mul(z, z)
	term := new(big.Float).SetPrec(floatPrec).Set(z)
	sum := new(big.Float).SetPrec(floatPrec).Set(z)
	tmp := new(big.Float).SetPrec(floatPrec)
	for k := 1; ; k++ {
		term.Mul(term, z2)
		tmp.Quo(term, big.NewFloat(float64(2*k+1)).SetPrec(floatPrec))
		if negligible(tmp, sum) {
			break
		}
		sum.Add(sum, tmp)
	}
	sum.Mul(sum, big.NewFloat(2).SetPrec(floatPrec))

	e := new(big.Float).SetPrec(floatPrec).SetInt64(int64(exp))
	e.Mul(e, ln2Float())
	return sum.Add(sum, e)
}

// expFloat computes e^x for a big.Float via range reduction x = n*ln2 + r
// with r in [0, ln2) followed by the Taylor series for e^r.
func expFloat(x *big.Float) *big.Float {
	ln2 := ln2Float()
	q := new(big.Float).SetPrec(floatPrec).Quo(x, ln2)
	qi, _ := q.Int(nil)
	if q.Sign() < 0 && !q.IsInt() {
		qi.Sub(qi, big.NewInt(1))
	}
	n := new(big.Float).SetPrec(floatPrec).SetInt(qi)
	r := new(big.Float).SetPrec(floatPrec).Mul(n, ln2)
	r.Sub(x, r)

	sum := big.NewFloat(1).SetPrec(floatPrec)
	term := big.NewFloat(1).SetPrec(floatPrec)
	for k := 1; ; k++ {
		term.Mul(term, r)
		term.Quo(term, big.NewFloat(float64(k)).SetPrec(floatPrec))
		if negligible(term, sum) {
			break
		}
		sum.Add(sum, term)
	}

	if !qi.IsInt64() {
		// Out-of-range exponents are cut off by the WAD-domain guards in
		// ExpWad/PowWad before reaching here.
		return sum
	}
	return sum.SetMantExp(sum, int(qi.Int64()))
}

// negligible reports whether adding term to sum can no longer change it at
// the working precision.
func negligible(term, sum *big.Float) bool {
	if term.Sign() == 0 {
		return true
	}
	t := new(big.Float).SetPrec(floatPrec).Abs(term)
	s := new(big.Float).SetPrec(floatPrec).Abs(sum)
	if s.Sign() == 0 {
		return false
	}
	return t.MantExp(nil) < s.MantExp(nil)-floatPrec-4
}
