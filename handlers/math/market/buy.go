package market

import (
	"fmt"
	"math"

	"binarymarket/handlers/math/probabilities/lmsr"
)

// maxSearchSteps bounds the share search. 64 halvings resolve any uint64 window
// to a single share; the closed-form starting window usually needs under ten.
const maxSearchSteps = 64

// estimateSlack widens the closed-form estimate to absorb float64 error.
const estimateSlack = 1e-9

// QuoteBuy prices spending at most budget collateral on outcome o. It grants
// the largest share count whose cost does not exceed budget.
func QuoteBuy(s MarketState, o Outcome, budget uint64) (Quote, error) {
	if s.B == 0 {
		return Quote{}, ErrInvalidLiquidityParameter
	}
	if s.Resolved() {
		return Quote{}, ErrMarketResolved
	}
	if budget == 0 {
		return Quote{}, ErrZeroAmount
	}

	held := s.Shares(o)
	costOf := func(n uint64) (float64, error) {
		next := s.withShares(o, held+n)
		return lmsr.CostDelta(s.B, s.QYes, s.QNo, next.QYes, next.QNo)
	}
	affordable := func(n uint64) bool {
		c, err := costOf(n)
		return err == nil && c <= float64(budget)
	}

	lo, hi := searchWindow(s, o, budget, affordable)
	for i := 0; i < maxSearchSteps && lo < hi; i++ {
		mid := lo + (hi-lo)/2 + 1
		if affordable(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	spent, err := costOf(lo)
	if err != nil {
		return Quote{}, err
	}
	if math.IsNaN(spent) || spent < 0 {
		return Quote{}, fmt.Errorf("%w: buying %d %s shares from %+v costs %v",
			ErrEngineInvariantViolation, lo, o, s, spent)
	}
	if spent > float64(budget) {
		return Quote{}, fmt.Errorf("%w: %d shares cost %.4f, budget %d", ErrInsufficientBudget, lo, spent, budget)
	}

	collateral := budget
	if spent < float64(budget) {
		collateral = uint64(math.Ceil(spent))
		if collateral > budget {
			collateral = budget
		}
	}

	next := s.withShares(o, held+lo)
	return Quote{
		Side:            Buy,
		Outcome:         o,
		SharesDelta:     lo,
		CollateralDelta: collateral,
		PriceBefore:     priceOf(s, o),
		ResultingPrice:  priceOf(next, o),
		Next:            next,
	}, nil
}

// searchWindow returns [lo, hi] with lo affordable and the answer no larger
// than hi. It starts from the closed-form inverse of the cost function and
// falls back to the full range when the estimate does not bracket the answer.
func searchWindow(s MarketState, o Outcome, budget uint64, affordable func(uint64) bool) (lo, hi uint64) {
	limit := shareLimit(s, o, budget)

	est, err := lmsr.SharesForCost(s.QYes, s.QNo, s.B, float64(budget), o == Yes)
	if err != nil || math.IsNaN(est) || math.IsInf(est, 0) || est < 0 {
		return 0, limit
	}
	slack := est*estimateSlack + 4

	lo = toShares(est-slack, limit)
	hi = toShares(math.Ceil(est+slack), limit)
	if lo > 0 && !affordable(lo) {
		lo = 0
	}
	if hi < limit && affordable(hi) {
		hi = limit
	}
	return lo, hi
}

// shareLimit is an upper bound on the shares budget can buy. Every marginal
// share costs at least the pre-trade price p, so no more than budget/p shares
// are affordable; the counter itself must not overflow either.
func shareLimit(s MarketState, o Outcome, budget uint64) uint64 {
	room := math.MaxUint64 - s.Shares(o)
	lpYes, lpNo, err := lmsr.LogPrices(s.QYes, s.QNo, s.B)
	if err != nil {
		return room
	}
	lp := lpYes
	if o == No {
		lp = lpNo
	}
	return toShares(math.Ceil(float64(budget)/math.Exp(lp))+1, room)
}

// toShares converts a non-negative float to a share count capped at limit.
func toShares(f float64, limit uint64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= float64(limit):
		return limit
	}
	n := uint64(f)
	if n > limit {
		return limit
	}
	return n
}
