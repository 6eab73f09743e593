package market

import (
	"errors"

	"binarymarket/handlers/math/probabilities/lmsr"
)

var (
	// ErrInvalidLiquidityParameter is fatal at market creation; b never changes afterwards.
	ErrInvalidLiquidityParameter = lmsr.ErrInvalidLiquidityParameter

	ErrMarketResolved     = errors.New("market is already resolved")
	ErrMarketNotResolved  = errors.New("market is not resolved yet")
	ErrInsufficientBudget = errors.New("budget does not cover the trade")
	ErrInsufficientShares = errors.New("not enough outstanding shares to sell")
	ErrZeroAmount         = errors.New("order amount must be positive")
	ErrEmptyWinningPool   = errors.New("winning pool is empty")
	ErrUnknownOutcome     = errors.New("outcome must be YES or NO")

	// ErrEngineInvariantViolation means the cost function produced an impossible
	// result. It is never a user error and must not be clamped or retried.
	ErrEngineInvariantViolation = errors.New("engine invariant violation")
)

// IsUserError reports whether err is caused by the order or the market's
// lifecycle rather than by the engine itself.
func IsUserError(err error) bool {
	switch {
	case errors.Is(err, ErrMarketResolved),
		errors.Is(err, ErrMarketNotResolved),
		errors.Is(err, ErrInsufficientBudget),
		errors.Is(err, ErrInsufficientShares),
		errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrUnknownOutcome):
		return true
	}
	return false
}
