// Package lmsr implements the Logarithmic Market Scoring Rule (LMSR)
// for two-outcome markets, as described by Robin Hanson.
//
// LMSR provides:
// - Bounded loss for the market maker (max loss = b * ln(2) for a binary market)
// - Always available liquidity
// - Price = probability interpretation
// - A single cost function from which every trade amount is derived
//
// All share counts and collateral amounts are integer base units. The
// liquidity parameter b uses the same unit; q/b ratios are formed only
// through the helpers in fixedpoint.go.
//
// Reference: "Logarithmic Market Scoring Rules for Modular Combinatorial Information Aggregation"
// by Robin Hanson, 2003, George Mason University
package lmsr

import (
	"math"
)

// Cost calculates C(qYes, qNo) = b * ln(exp(qYes/b) + exp(qNo/b)).
//
// With m = max(qYes, qNo)/b the log-sum-exp form b*(m + ln(e^(y-m) + e^(n-m)))
// reduces to max(qYes, qNo) + b*ln(1 + e^(-|qYes-qNo|/b)).
func Cost(qYes, qNo, b uint64) (float64, error) {
	base, tail, err := costParts(qYes, qNo, b)
	if err != nil {
		return 0, err
	}
	return float64(base) + tail, nil
}

// CostDelta returns C(toYes, toNo) - C(fromYes, fromNo). The integer parts of
// both costs are subtracted exactly and the tails are differenced directly, so
// a small trade keeps its precision even when b is near the uint64 range.
func CostDelta(b, fromYes, fromNo, toYes, toNo uint64) (float64, error) {
	fromGap, toGap := absDiff(fromYes, fromNo), absDiff(toYes, toNo)
	d1, err := Ratio(fromGap, b)
	if err != nil {
		return 0, err
	}
	d2, err := Ratio(toGap, b)
	if err != nil {
		return 0, err
	}
	gap := signedDiff(toGap, fromGap) / float64(b)
	tail := float64(b) * softplusNegDiff(d1, d2, gap)
	return signedDiff(max(fromYes, fromNo), max(toYes, toNo)) + tail, nil
}

// MaxLoss returns the maximum possible loss for the market maker: b * ln(2).
func MaxLoss(b uint64) (float64, error) {
	if b == 0 {
		return 0, ErrInvalidLiquidityParameter
	}
	return float64(b) * math.Ln2, nil
}

// costParts splits the cost into max(qYes, qNo) and the b*softplus tail.
func costParts(qYes, qNo, b uint64) (uint64, float64, error) {
	d, err := Spread(qYes, qNo, b)
	if err != nil {
		return 0, 0, err
	}
	return max(qYes, qNo), float64(b) * softplusNeg(math.Abs(d)), nil
}

// SharesForCost is the real-valued inverse of CostDelta: how many shares of
// one outcome `cost` collateral buys from (qYes, qNo). With p the current price
// of that outcome and u = cost/b it is b * ln(1 + (e^u - 1)/p).
func SharesForCost(qYes, qNo, b uint64, cost float64, yes bool) (float64, error) {
	lpYes, lpNo, err := LogPrices(qYes, qNo, b)
	if err != nil {
		return 0, err
	}
	if cost <= 0 {
		return 0, nil
	}
	lp, lq := lpYes, lpNo
	if !yes {
		lp, lq = lpNo, lpYes
	}
	u := cost / float64(b)
	if u < 1 {
		return float64(b) * LogSumExp(0, math.Log(math.Expm1(u))-lp), nil
	}
	// ln((e^u - q)/p) = u + ln(1 - q*e^-u) - ln p
	return float64(b) * (u + math.Log1p(-math.Exp(lq-u)) - lp), nil
}
