package market

import (
	"fmt"
	"math"

	"binarymarket/handlers/math/probabilities/lmsr"
)

// QuoteSell prices returning shares of outcome o to the market maker. The
// refund is cost(before) - cost(after), rounded down.
func QuoteSell(s MarketState, o Outcome, shares uint64) (Quote, error) {
	if s.B == 0 {
		return Quote{}, ErrInvalidLiquidityParameter
	}
	if s.Resolved() {
		return Quote{}, ErrMarketResolved
	}
	if shares == 0 {
		return Quote{}, ErrZeroAmount
	}
	held := s.Shares(o)
	if shares > held {
		return Quote{}, fmt.Errorf("%w: selling %d %s, %d outstanding", ErrInsufficientShares, shares, o, held)
	}

	next := s.withShares(o, held-shares)
	delta, err := lmsr.CostDelta(s.B, next.QYes, next.QNo, s.QYes, s.QNo)
	if err != nil {
		return Quote{}, err
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < 0 {
		return Quote{}, fmt.Errorf("%w: selling %d %s shares from %+v refunds %v",
			ErrEngineInvariantViolation, shares, o, s, delta)
	}

	// A refund can never exceed the shares returned, each being worth at most 1.
	refund := shares
	if delta < float64(shares) {
		refund = uint64(math.Floor(delta))
	}

	return Quote{
		Side:            Sell,
		Outcome:         o,
		SharesDelta:     shares,
		CollateralDelta: refund,
		PriceBefore:     priceOf(s, o),
		ResultingPrice:  priceOf(next, o),
		Next:            next,
	}, nil
}
