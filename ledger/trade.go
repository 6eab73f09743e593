package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"binarymarket/handlers/feed"
	"binarymarket/handlers/math/market"
	"binarymarket/models"
)

// TradeResult is what a committed trade did.
type TradeResult struct {
	Quote    market.Quote
	Market   *models.Market
	Balance  uint64
	Position uint64
	Attempts int
}

// Quote prices a trade against the current state without committing anything.
func (l *Ledger) Quote(ctx context.Context, marketID int64, side market.Side, o market.Outcome, amount uint64) (market.Quote, *models.Market, error) {
	m, err := l.Market(ctx, marketID)
	if err != nil {
		return market.Quote{}, nil, err
	}
	q, err := quote(m, side, o, amount)
	if err != nil {
		return market.Quote{}, nil, l.report(err, "quote", zap.Int64("marketId", marketID), zap.String("side", string(side)))
	}
	return q, m, nil
}

func quote(m *models.Market, side market.Side, o market.Outcome, amount uint64) (market.Quote, error) {
	if m.PricingModel == models.PricingPool {
		return market.Quote{}, fmt.Errorf("%w: market %d uses the pool model", ErrUnsupportedModel, m.ID)
	}
	switch side {
	case market.Buy:
		return market.QuoteBuy(m.State(), o, amount)
	case market.Sell:
		return market.QuoteSell(m.State(), o, amount)
	}
	return market.Quote{}, fmt.Errorf("unknown side %q", side)
}

// Buy spends at most budget of the account's balance on outcome o.
func (l *Ledger) Buy(ctx context.Context, accountID, marketID int64, o market.Outcome, budget uint64) (*TradeResult, error) {
	return l.trade(ctx, accountID, marketID, market.Buy, o, budget)
}

// Sell returns shares of outcome o from the account's position to the market.
func (l *Ledger) Sell(ctx context.Context, accountID, marketID int64, o market.Outcome, shares uint64) (*TradeResult, error) {
	return l.trade(ctx, accountID, marketID, market.Sell, o, shares)
}

func (l *Ledger) trade(ctx context.Context, accountID, marketID int64, side market.Side, o market.Outcome, amount uint64) (*TradeResult, error) {
	fields := []zap.Field{
		zap.Int64("accountId", accountID),
		zap.Int64("marketId", marketID),
		zap.String("side", string(side)),
		zap.Stringer("outcome", o),
		zap.Uint64("amount", amount),
	}
	if _, err := l.Account(ctx, accountID); err != nil {
		return nil, l.report(err, "trade", fields...)
	}

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := l.Market(ctx, marketID)
		if err != nil {
			return nil, l.report(err, "trade", fields...)
		}
		q, err := quote(m, side, o, amount)
		if err != nil {
			return nil, l.report(err, "trade", fields...)
		}
		if side == market.Buy && q.SharesDelta == 0 {
			return nil, l.report(fmt.Errorf("%w: budget %d buys no whole share", market.ErrInsufficientBudget, amount), "trade", fields...)
		}
		if q.Next.QYes > maxStored || q.Next.QNo > maxStored {
			return nil, l.report(fmt.Errorf("%w: outstanding shares", ErrQuantityOverflow), "trade", fields...)
		}

		res := &TradeResult{Quote: q, Attempts: attempt}
		err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := casState(tx, m, q.Next); err != nil {
				return err
			}
			if side == market.Buy {
				return l.applyBuy(tx, accountID, m.ID, q, res)
			}
			return l.applySell(tx, accountID, m.ID, q, res)
		})
		if errors.Is(err, ErrStaleState) {
			l.logger.Debug("stale market state, requoting", append(fields, zap.Int("attempt", attempt))...)
			continue
		}
		if err != nil {
			return nil, l.report(err, "trade", fields...)
		}

		m.QYes, m.QNo = q.Next.QYes, q.Next.QNo
		m.Version++
		res.Market = m
		l.publish(m, feed.KindTrade)
		l.logger.Info("trade committed", append(fields,
			zap.Uint64("shares", q.SharesDelta),
			zap.Uint64("collateral", q.CollateralDelta),
			zap.Uint64("version", m.Version))...)
		return res, nil
	}
	return nil, l.report(fmt.Errorf("%w: %d attempts", ErrStaleState, l.maxAttempts), "trade", fields...)
}

// casState writes next over m's state only if nobody committed since m was read.
func casState(tx *gorm.DB, m *models.Market, next market.MarketState) error {
	res := tx.Model(&models.Market{}).
		Where("id = ? AND version = ? AND is_resolved = ?", m.ID, m.Version, false).
		Updates(map[string]any{
			"q_yes":   next.QYes,
			"q_no":    next.QNo,
			"version": gorm.Expr("version + ?", 1),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (l *Ledger) applyBuy(tx *gorm.DB, accountID, marketID int64, q market.Quote, res *TradeResult) error {
	debit := tx.Model(&models.Account{}).
		Where("id = ? AND is_active = ? AND balance >= ?", accountID, true, q.CollateralDelta).
		Update("balance", gorm.Expr("balance - ?", q.CollateralDelta))
	if debit.Error != nil {
		return debit.Error
	}
	if debit.RowsAffected == 0 {
		return fmt.Errorf("%w: need %d", ErrInsufficientBalance, q.CollateralDelta)
	}

	var pos models.Position
	err := tx.Where("account_id = ? AND market_id = ? AND outcome = ?", accountID, marketID, q.Outcome.String()).
		First(&pos).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pos = models.Position{AccountID: accountID, MarketID: marketID, Outcome: q.Outcome.String(), Shares: q.SharesDelta}
		if err := tx.Create(&pos).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if pos.Shares > maxStored-q.SharesDelta {
			return fmt.Errorf("%w: position", ErrQuantityOverflow)
		}
		if err := tx.Model(&pos).Update("shares", gorm.Expr("shares + ?", q.SharesDelta)).Error; err != nil {
			return err
		}
		pos.Shares += q.SharesDelta
	}
	res.Position = pos.Shares
	return readBalance(tx, accountID, res)
}

func (l *Ledger) applySell(tx *gorm.DB, accountID, marketID int64, q market.Quote, res *TradeResult) error {
	var pos models.Position
	err := tx.Where("account_id = ? AND market_id = ? AND outcome = ?", accountID, marketID, q.Outcome.String()).
		First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && pos.Shares < q.SharesDelta) {
		return fmt.Errorf("%w: account holds %d %s", market.ErrInsufficientShares, pos.Shares, q.Outcome)
	}
	if err != nil {
		return err
	}
	burn := tx.Model(&models.Position{}).
		Where("id = ? AND shares >= ?", pos.ID, q.SharesDelta).
		Update("shares", gorm.Expr("shares - ?", q.SharesDelta))
	if burn.Error != nil {
		return burn.Error
	}
	if burn.RowsAffected == 0 {
		return ErrStaleState
	}
	res.Position = pos.Shares - q.SharesDelta

	if err := credit(tx, accountID, q.CollateralDelta); err != nil {
		return err
	}
	return readBalance(tx, accountID, res)
}

func credit(tx *gorm.DB, accountID int64, amount uint64) error {
	if amount == 0 {
		return nil
	}
	acct, err := loadAccount(tx, accountID)
	if err != nil {
		return err
	}
	if amount > maxStored || acct.Balance > maxStored-amount {
		return fmt.Errorf("%w: balance", ErrQuantityOverflow)
	}
	return tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

func readBalance(tx *gorm.DB, accountID int64, res *TradeResult) error {
	var acct models.Account
	if err := tx.Select("balance").Where("id = ?", accountID).First(&acct).Error; err != nil {
		return err
	}
	res.Balance = acct.Balance
	return nil
}
