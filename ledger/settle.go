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

// Resolve freezes a market on outcome o. For pool markets the pool totals are
// snapshotted so later claims all divide by the same numbers.
func (l *Ledger) Resolve(ctx context.Context, marketID int64, o market.Outcome) (*models.Market, error) {
	fields := []zap.Field{zap.Int64("marketId", marketID), zap.Stringer("outcome", o)}

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		m, err := l.Market(ctx, marketID)
		if err != nil {
			return nil, l.report(err, "resolve", fields...)
		}
		now := l.now()
		updates := map[string]any{
			"is_resolved":                true,
			"resolution_result":          o.String(),
			"final_resolution_date_time": now,
			"version":                    gorm.Expr("version + ?", 1),
		}

		switch m.PricingModel {
		case models.PricingPool:
			p, err := m.Pool().Resolve(o)
			if err != nil {
				return nil, l.report(err, "resolve", fields...)
			}
			updates["total_at_resolution"] = p.TotalAtResolution
			updates["winning_pool_at_resolution"] = p.WinningPoolAtResolution
			m.TotalAtResolution, m.WinningPoolAtResolution = p.TotalAtResolution, p.WinningPoolAtResolution
		default:
			if _, err := m.State().Resolve(o); err != nil {
				return nil, l.report(err, "resolve", fields...)
			}
		}

		res := l.db.WithContext(ctx).Model(&models.Market{}).
			Where("id = ? AND version = ? AND is_resolved = ?", m.ID, m.Version, false).
			Updates(updates)
		if res.Error != nil {
			return nil, l.report(res.Error, "resolve", fields...)
		}
		if res.RowsAffected == 0 {
			l.logger.Debug("stale market state on resolve", append(fields, zap.Int("attempt", attempt))...)
			continue
		}

		m.IsResolved = true
		m.ResolutionResult = o.String()
		m.FinalResolutionDateTime = &now
		m.Version++
		l.publish(m, feed.KindResolution)
		l.logger.Info("market resolved", fields...)
		return m, nil
	}
	return nil, l.report(fmt.Errorf("%w: %d attempts", ErrStaleState, l.maxAttempts), "resolve", fields...)
}

// ClaimResult is what a claim paid out.
type ClaimResult struct {
	Payout  uint64
	Burned  []models.Position
	Tickets []models.PoolTicket
	Balance uint64
}

// Claim settles the account's holdings in a resolved market and credits the
// payout. LMSR positions are burned and pool tickets marked claimed in the same
// transaction, so a second claim finds nothing.
func (l *Ledger) Claim(ctx context.Context, accountID, marketID int64) (*ClaimResult, error) {
	fields := []zap.Field{zap.Int64("accountId", accountID), zap.Int64("marketId", marketID)}

	m, err := l.Market(ctx, marketID)
	if err != nil {
		return nil, l.report(err, "claim", fields...)
	}
	model, err := m.Settlement()
	if err != nil {
		return nil, l.report(err, "claim", fields...)
	}
	if _, err := model.Winner(); err != nil {
		return nil, l.report(err, "claim", fields...)
	}

	res := &ClaimResult{}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadAccount(tx, accountID); err != nil {
			return err
		}
		var err error
		if m.PricingModel == models.PricingPool {
			err = claimTickets(tx, model, accountID, marketID, res)
		} else {
			err = burnPositions(tx, model, accountID, marketID, res)
		}
		if err != nil {
			return err
		}
		if len(res.Burned) == 0 && len(res.Tickets) == 0 {
			return ErrNothingToClaim
		}
		if err := credit(tx, accountID, res.Payout); err != nil {
			return err
		}
		var acct models.Account
		if err := tx.Select("balance").Where("id = ?", accountID).First(&acct).Error; err != nil {
			return err
		}
		res.Balance = acct.Balance
		return nil
	})
	if err != nil {
		return nil, l.report(err, "claim", fields...)
	}
	l.logger.Info("claim settled", append(fields, zap.Uint64("payout", res.Payout))...)
	return res, nil
}

// ClaimTicket settles a single legacy pool ticket.
func (l *Ledger) ClaimTicket(ctx context.Context, accountID, ticketID int64) (*ClaimResult, error) {
	fields := []zap.Field{zap.Int64("accountId", accountID), zap.Int64("ticketId", ticketID)}

	var ticket models.PoolTicket
	err := l.db.WithContext(ctx).Where("id = ? AND account_id = ?", ticketID, accountID).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, l.report(fmt.Errorf("%w: ticket %d", ErrNothingToClaim, ticketID), "claim_ticket", fields...)
	}
	if err != nil {
		return nil, l.report(err, "claim_ticket", fields...)
	}
	m, err := l.Market(ctx, ticket.MarketID)
	if err != nil {
		return nil, l.report(err, "claim_ticket", fields...)
	}
	if m.PricingModel != models.PricingPool {
		return nil, l.report(fmt.Errorf("%w: tickets only exist in pool markets", ErrUnsupportedModel), "claim_ticket", fields...)
	}

	res := &ClaimResult{}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := settleTicket(tx, m.Pool(), ticket, res); err != nil {
			return err
		}
		if err := credit(tx, accountID, res.Payout); err != nil {
			return err
		}
		var acct models.Account
		if err := tx.Select("balance").Where("id = ?", accountID).First(&acct).Error; err != nil {
			return err
		}
		res.Balance = acct.Balance
		return nil
	})
	if err != nil {
		return nil, l.report(err, "claim_ticket", fields...)
	}
	return res, nil
}

func burnPositions(tx *gorm.DB, model market.Settleable, accountID, marketID int64, res *ClaimResult) error {
	var positions []models.Position
	if err := tx.Where("account_id = ? AND market_id = ? AND shares > 0", accountID, marketID).
		Find(&positions).Error; err != nil {
		return err
	}
	for _, p := range positions {
		pos, err := p.Engine()
		if err != nil {
			return err
		}
		payout, err := market.SettleClaim(model, pos.Outcome, pos.Shares)
		if err != nil {
			return err
		}
		// the shares guard makes a concurrent claim of the same row fail here
		burn := tx.Where("id = ? AND shares = ?", p.ID, p.Shares).Delete(&models.Position{})
		if burn.Error != nil {
			return burn.Error
		}
		if burn.RowsAffected == 0 {
			return ErrStaleState
		}
		if err := addPayout(res, payout); err != nil {
			return err
		}
		res.Burned = append(res.Burned, p)
	}
	return nil
}

func claimTickets(tx *gorm.DB, model market.Settleable, accountID, marketID int64, res *ClaimResult) error {
	var tickets []models.PoolTicket
	if err := tx.Where("account_id = ? AND market_id = ? AND claimed = ?", accountID, marketID, false).
		Find(&tickets).Error; err != nil {
		return err
	}
	pool, ok := model.(market.PoolState)
	if !ok {
		return fmt.Errorf("%w: expected pool settlement", ErrUnsupportedModel)
	}
	for _, t := range tickets {
		if err := settleTicket(tx, pool, t, res); err != nil {
			return err
		}
	}
	return nil
}

func settleTicket(tx *gorm.DB, pool market.PoolState, t models.PoolTicket, res *ClaimResult) error {
	ticket, err := t.Engine()
	if err != nil {
		return err
	}
	payout, err := market.SettleTicket(pool, ticket)
	if err != nil {
		return err
	}
	mark := tx.Model(&models.PoolTicket{}).
		Where("id = ? AND claimed = ?", t.ID, false).
		Update("claimed", true)
	if mark.Error != nil {
		return mark.Error
	}
	if mark.RowsAffected == 0 {
		return fmt.Errorf("%w: ticket %d already claimed", ErrNothingToClaim, t.ID)
	}
	if err := addPayout(res, payout); err != nil {
		return err
	}
	res.Tickets = append(res.Tickets, t)
	return nil
}

func addPayout(res *ClaimResult, payout uint64) error {
	if payout > maxStored || res.Payout > maxStored-payout {
		return fmt.Errorf("%w: payout", ErrQuantityOverflow)
	}
	res.Payout += payout
	return nil
}
