package num128

// S128 is a 128-bit two's-complement signed integer, represented as the
// U128 bit pattern it shares (: "S128 is a U128 with sign-aware
// compare, division by absolute value with sign composition, and arithmetic
// right-shift").
type S128 struct {
	Bits U128
}

// FromI64 widens an int64 to S128, sign-extending into Hi.
func FromI64(v int64) S128 {
	var hi uint64
	if v < 0 {
		hi = ^uint64(0)
	}
	return S128{Bits: U128{Lo: uint64(v), Hi: hi}}
}

// IsNegative reports whether the sign bit (bit 127) is set.
func (a S128) IsNegative() bool { return a.Bits.Hi>>63 == 1 }

// Neg returns -a, computed as mask(~a + 1), the UniOp NEG contract.
func (a S128) Neg() S128 {
	notA := a.Bits.Not()
	sum, _ := notA.Add(FromU64Bits(1))
	return S128{Bits: sum}
}

// FromU64Bits reinterprets a uint64 bit pattern as an unsigned U128 (helper,
// zero-extended).
func FromU64Bits(v uint64) U128 { return U128{Lo: v} }

// Abs returns the absolute value as an unsigned magnitude (the sign is not
// returned; callers read it with IsNegative), used to implement "division by absolute value with sign
// composition".
func (a S128) Abs() U128 {
	if a.IsNegative() {
		return a.Neg().Bits
	}
	return a.Bits
}

// Add, Sub, Mul are bit-identical to the unsigned operations; two's
// complement arithmetic does not distinguish signedness except in
// comparison, division, and shifting.
func (a S128) Add(b S128) (S128, bool) {
	r, ov := a.Bits.Add(b.Bits)
	return S128{Bits: r}, ov && (a.IsNegative() == b.IsNegative()) && (S128{Bits: r}.IsNegative() != a.IsNegative())
}

func (a S128) Sub(b S128) (S128, bool) {
	r, _ := a.Bits.Sub(b.Bits)
	aNeg, bNeg, rNeg := a.IsNegative(), b.IsNegative(), (S128{Bits: r}).IsNegative()
	overflow := aNeg != bNeg && rNeg != aNeg
	return S128{Bits: r}, overflow
}

// Mul returns the low 128 bits of a*b. Overflow detection for signed
// multiply is left to the caller (mirrors the unsigned Mul contract); the
// const evaluator only needs the masked result, ("Integer
// arithmetic is modular-on-bits via mask").
func (a S128) Mul(b S128) S128 {
	r, _ := a.Bits.Mul(b.Bits)
	return S128{Bits: r}
}

// DivMod performs division by absolute value with sign composition: compute
// |a| / |b| unsigned, then negate the quotient if exactly one operand was
// negative, and give the remainder the sign of the dividend (a), matching
// Rust's truncating-toward-zero integer division.
func (a S128) DivMod(b S128) (q, r S128) {
	aAbs, bAbs := a.Abs(), b.Abs()
	uq, ur := aAbs.DivMod(bAbs)
	q = S128{Bits: uq}
	if a.IsNegative() != b.IsNegative() {
		q = q.Neg()
	}
	r = S128{Bits: ur}
	if a.IsNegative() {
		r = r.Neg()
	}
	return q, r
}

// Cmp performs a signed comparison.
func (a S128) Cmp(b S128) int {
	aNeg, bNeg := a.IsNegative(), b.IsNegative()
	if aNeg != bNeg {
		if aNeg {
			return -1
		}
		return 1
	}
	return a.Bits.Cmp(b.Bits)
}

// Shr performs an arithmetic (sign-extending) right shift by n bits, masked
// modulo 128.
func (a S128) Shr(n uint) S128 {
	n &= 127
	if n == 0 {
		return a
	}
	if !a.IsNegative() {
		return S128{Bits: a.Bits.Shr(n)}
	}
	shifted := a.Bits.Shr(n)
	// Sign-extend the vacated high bits with 1s.
	ones := Max.Shl(128 - n)
	if n >= 128 {
		ones = Max
	}
	return S128{Bits: shifted.Or(ones)}
}

// Shl is identical to the unsigned shift; left shift does not depend on
// sign.
func (a S128) Shl(n uint) S128 { return S128{Bits: a.Bits.Shl(n)} }
