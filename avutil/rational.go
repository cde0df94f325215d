//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"fmt"
	"math"
	"math/big"
)

// Rational mirrors AVRational. Functions returning AVRational by value cannot
// be called through purego on most platforms, so the arithmetic lives here.
type Rational struct {
	Num int32
	Den int32
}

// NewRational creates a new Rational with the given numerator and denominator.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}
}

// Valid reports whether r is usable as a time base: a positive denominator
// and a non-zero numerator. 0/0, n/0 and 0/n are all "unset".
func (r Rational) Valid() bool {
	return r.Den >= 1 && r.Num != 0
}

// Float64 converts the rational to a float64. Returns 0 if the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Inv returns den/num.
func (r Rational) Inv() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// IsZero returns true if the rational is zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Mul returns r*o reduced, like av_mul_q.
func (r Rational) Mul(o Rational) Rational {
	return Reduce(int64(r.Num)*int64(o.Num), int64(r.Den)*int64(o.Den), math.MaxInt32)
}

// Div returns r/o reduced, like av_div_q.
func (r Rational) Div(o Rational) Rational {
	return r.Mul(o.Inv())
}

// Add returns r+o reduced, like av_add_q.
func (r Rational) Add(o Rational) Rational {
	return Reduce(int64(r.Num)*int64(o.Den)+int64(o.Num)*int64(r.Den), int64(r.Den)*int64(o.Den), math.MaxInt32)
}

// Sub returns r-o reduced, like av_sub_q.
func (r Rational) Sub(o Rational) Rational {
	return r.Add(Rational{Num: -o.Num, Den: o.Den})
}

// Cmp returns -1, 0 or 1 like av_cmp_q. Comparisons against 0/0 return 0.
func (r Rational) Cmp(o Rational) int {
	left := int64(r.Num) * int64(o.Den)
	right := int64(o.Num) * int64(r.Den)
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Reduce finds the closest fraction to num/den whose terms do not exceed max,
// using the continued fraction expansion of av_reduce.
func Reduce(num, den, max int64) Rational {
	a0n, a0d := int64(0), int64(1)
	a1n, a1d := int64(1), int64(0)
	sign := (num < 0) != (den < 0)

	if g := gcd64(abs64(num), abs64(den)); g != 0 {
		num = abs64(num) / g
		den = abs64(den) / g
	}
	if num <= max && den <= max {
		a1n, a1d = num, den
		den = 0
	}

	for den != 0 {
		x := num / den
		nextDen := num - den*x
		a2n := x*a1n + a0n
		a2d := x*a1d + a0d

		if a2n > max || a2d > max {
			if a1n != 0 {
				x = (max - a0n) / a1n
			}
			if a1d != 0 {
				x = min(x, (max-a0d)/a1d)
			}
			if den*(2*x*a1d+a0d) > num*a1d {
				a1n, a1d = x*a1n+a0n, x*a1d+a0d
			}
			break
		}

		a0n, a0d = a1n, a1d
		a1n, a1d = a2n, a2d
		num = den
		den = nextDen
	}

	if sign {
		a1n = -a1n
	}
	return Rational{Num: int32(a1n), Den: int32(a1d)}
}

// D2Q converts a float to the closest rational with terms not above max,
// like av_d2q.
func D2Q(d float64, max int) Rational {
	if math.IsNaN(d) {
		return Rational{}
	}
	if math.Abs(d) > math.MaxInt32+3 {
		if d < 0 {
			return Rational{Num: -1}
		}
		return Rational{Num: 1}
	}
	_, exponent := math.Frexp(d)
	exponent = max0(exponent - 1)
	den := int64(1) << (62 - exponent)
	num := int64(math.Floor(d*float64(den) + 0.5))

	r := Reduce(num, den, int64(max))
	if (r.Num == 0 || r.Den == 0) && d != 0 && max > 0 && max < math.MaxInt32 {
		r = Reduce(num, den, math.MaxInt32)
	}
	return r
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Rounding is enum AVRounding.
type Rounding int

const (
	RoundZero       Rounding = 0
	RoundInf        Rounding = 1
	RoundDown       Rounding = 2
	RoundUp         Rounding = 3
	RoundNearInf    Rounding = 5
	RoundPassMinMax Rounding = 8192
)

// RescaleRnd computes a*b/c with the given rounding, like av_rescale_rnd.
// c must be positive. With RoundPassMinMax, math.MinInt64 and math.MaxInt64
// pass through unchanged.
func RescaleRnd(a, b, c int64, rnd Rounding) int64 {
	if c <= 0 || b < 0 {
		return math.MinInt64
	}
	if rnd&RoundPassMinMax != 0 {
		if a == math.MinInt64 || a == math.MaxInt64 {
			return a
		}
		rnd &^= RoundPassMinMax
	}

	n := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	d := big.NewInt(c)
	neg := n.Sign() < 0
	n.Abs(n)

	// round on the magnitude, flipping up/down for negative values
	mode := rnd
	if neg {
		switch rnd {
		case RoundDown:
			mode = RoundUp
		case RoundUp:
			mode = RoundDown
		}
	}

	q, m := new(big.Int).QuoRem(n, d, new(big.Int))
	switch mode {
	case RoundInf, RoundUp:
		if m.Sign() != 0 {
			q.Add(q, big.NewInt(1))
		}
	case RoundNearInf:
		if new(big.Int).Lsh(m, 1).Cmp(d) >= 0 {
			q.Add(q, big.NewInt(1))
		}
	}
	if neg {
		q.Neg(q)
	}
	if !q.IsInt64() {
		return math.MinInt64
	}
	return q.Int64()
}

// RescaleQRnd converts a from time base bq to cq, like av_rescale_q_rnd.
func RescaleQRnd(a int64, bq, cq Rational, rnd Rounding) int64 {
	b := int64(bq.Num) * int64(cq.Den)
	c := int64(cq.Num) * int64(bq.Den)
	return RescaleRnd(a, b, c, rnd)
}

// RescaleQ converts a from time base bq to cq rounding to nearest.
func RescaleQ(a int64, bq, cq Rational) int64 {
	return RescaleQRnd(a, bq, cq, RoundNearInf)
}

func gcd64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// TimeBaseQ is AV_TIME_BASE_Q, the unit of container durations.
var TimeBaseQ = Rational{Num: 1, Den: 1000000}

// Common frame rates.
var (
	FrameRate24    = NewRational(24, 1)
	FrameRate25    = NewRational(25, 1)
	FrameRate30    = NewRational(30, 1)
	FrameRate2997  = NewRational(30000, 1001)
	FrameRate60    = NewRational(60, 1)
	FrameRate23976 = NewRational(24000, 1001)
)
