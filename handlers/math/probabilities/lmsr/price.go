package lmsr

import (
	"math"
)

// Prices returns the instantaneous YES and NO prices (probabilities).
//
// PriceYes = dC/dqYes = exp(qYes/b) / (exp(qYes/b) + exp(qNo/b)). The cheaper
// outcome is evaluated directly as e/(1+e) with e = exp(-|qYes-qNo|/b) and the
// dearer one as its complement, so yes+no == 1 exactly in float64.
func Prices(qYes, qNo, b uint64) (yes, no float64, err error) {
	d, err := Spread(qYes, qNo, b)
	if err != nil {
		return 0, 0, err
	}
	e := math.Exp(-math.Abs(d))
	cheap := e / (1 + e)
	if d >= 0 {
		return 1 - cheap, cheap, nil
	}
	return cheap, 1 - cheap, nil
}

// LogPrices returns ln(PriceYes) and ln(PriceNo). They stay finite long after
// the cheaper price itself has underflowed to zero.
func LogPrices(qYes, qNo, b uint64) (yes, no float64, err error) {
	d, err := Spread(qYes, qNo, b)
	if err != nil {
		return 0, 0, err
	}
	// ln p = -ln(1 + e^-x) for the dearer side, -|d| - ln(1 + e^-|d|) for the cheaper.
	t := softplusNeg(math.Abs(d))
	if d >= 0 {
		return -t, -math.Abs(d) - t, nil
	}
	return -math.Abs(d) - t, -t, nil
}
