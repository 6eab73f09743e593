package lmsr

import (
	"errors"
	"math"
)

// ErrInvalidLiquidityParameter is returned whenever b is zero.
var ErrInvalidLiquidityParameter = errors.New("lmsr: liquidity parameter b must be positive")

// Ratio returns num/b, the scaled quantity every exponent in this package is built from.
func Ratio(num, b uint64) (float64, error) {
	if b == 0 {
		return 0, ErrInvalidLiquidityParameter
	}
	return float64(num) / float64(b), nil
}

// Spread returns (qYes - qNo) / b. The share difference is taken in integers
// first so that two large, nearly equal counters do not cancel in float64.
func Spread(qYes, qNo, b uint64) (float64, error) {
	d, err := Ratio(absDiff(qYes, qNo), b)
	if err != nil {
		return 0, err
	}
	if qYes < qNo {
		return -d, nil
	}
	return d, nil
}

// LogSumExp returns ln(e^a + e^b) by subtracting the larger exponent before
// exponentiating, so neither term can overflow.
func LogSumExp(a, b float64) float64 {
	m := math.Max(a, b)
	if math.IsInf(m, -1) {
		return m
	}
	return m + softplusNeg(math.Abs(a-b))
}

// softplusNeg returns ln(1 + e^-d) for d >= 0. The result lies in (0, ln 2].
func softplusNeg(d float64) float64 {
	return math.Log1p(math.Exp(-d))
}

// softplusNegDiff returns ln(1 + e^-d2) - ln(1 + e^-d1) for d1, d2 >= 0, where
// gap is d1 - d2 formed from the exact share difference. Close arguments go
// through log1p(e^-d1 * expm1(gap) / (1 + e^-d1)) so the result keeps its
// relative precision instead of cancelling two values near ln 2.
func softplusNegDiff(d1, d2, gap float64) float64 {
	if math.Abs(gap) >= 1 {
		return softplusNeg(d2) - softplusNeg(d1)
	}
	e := math.Exp(-d1)
	return math.Log1p(e * math.Expm1(gap) / (1 + e))
}

// absDiff returns |x - y| without wrapping.
func absDiff(x, y uint64) uint64 {
	if x >= y {
		return x - y
	}
	return y - x
}

// signedDiff returns to - from as a float64, exact while the gap is below 2^53.
func signedDiff(from, to uint64) float64 {
	if to >= from {
		return float64(to - from)
	}
	return -float64(from - to)
}
