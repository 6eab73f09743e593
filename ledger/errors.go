package ledger

import (
	"errors"

	"go.uber.org/zap"

	"binarymarket/handlers/math/market"
)

var (
	// ErrStaleState means the market changed between quote and commit on every
	// attempt the ledger was allowed to make.
	ErrStaleState = errors.New("market state changed during commit")

	ErrMarketNotFound      = errors.New("market not found")
	ErrAccountNotFound     = errors.New("account not found or inactive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNothingToClaim      = errors.New("nothing to claim")
	ErrUnsupportedModel    = errors.New("operation not supported for this pricing model")
	ErrQuantityOverflow    = errors.New("quantity exceeds storable range")
	ErrNameTaken           = errors.New("display name already taken")
	ErrMarketHasHoldings   = errors.New("market still has open holdings")
)

// IsUserError reports whether err is the caller's to fix. Everything else is a
// server-side failure.
func IsUserError(err error) bool {
	switch {
	case market.IsUserError(err),
		errors.Is(err, ErrMarketNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrNothingToClaim),
		errors.Is(err, ErrUnsupportedModel),
		errors.Is(err, ErrQuantityOverflow),
		errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrMarketHasHoldings),
		errors.Is(err, market.ErrEmptyWinningPool):
		return true
	}
	return false
}

// report logs err at a level matching its kind and returns it unchanged.
// Engine invariant violations go through DPanic so development builds stop on them.
func (l *Ledger) report(err error, op string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch {
	case errors.Is(err, market.ErrEngineInvariantViolation):
		l.logger.DPanic("engine invariant violation", fields...)
	case IsUserError(err):
		l.logger.Info("rejected", fields...)
	case errors.Is(err, ErrStaleState):
		l.logger.Warn("gave up after repeated stale commits", fields...)
	default:
		l.logger.Error("ledger failure", fields...)
	}
	return err
}
