// Package ledger is the authoritative store of market state, balances and
// positions. It quotes trades with the market engine and commits them with a
// compare-and-swap on the market's version column, requoting on a lost race.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"binarymarket/handlers/feed"
	"binarymarket/handlers/math/market"
	"binarymarket/models"
)

// DefaultMaxAttempts is used when Options.MaxAttempts is not set.
const DefaultMaxAttempts = 5

// maxStored is the largest quantity the SQL backends hold in a BIGINT column.
const maxStored = math.MaxInt64

type Options struct {
	// MaxAttempts bounds requote-and-commit rounds per trade.
	MaxAttempts int
	// Publisher receives a tick after each committed trade or resolution.
	Publisher feed.Publisher
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Ledger serialises state changes per market through optimistic locking.
type Ledger struct {
	db          *gorm.DB
	logger      *zap.Logger
	maxAttempts int
	pub         feed.Publisher
	now         func() time.Time
}

func New(db *gorm.DB, logger *zap.Logger, opts Options) *Ledger {
	l := &Ledger{
		db:          db,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		pub:         opts.Publisher,
		now:         opts.Now,
	}
	if l.maxAttempts < 1 {
		l.maxAttempts = DefaultMaxAttempts
	}
	if l.pub == nil {
		l.pub = feed.Discard{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Market loads one market row.
func (l *Ledger) Market(ctx context.Context, id int64) (*models.Market, error) {
	return loadMarket(l.db.WithContext(ctx), id)
}

func loadMarket(db *gorm.DB, id int64) (*models.Market, error) {
	var m models.Market
	if err := db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrMarketNotFound, id)
		}
		return nil, err
	}
	return &m, nil
}

// MarketExists reports whether id names a market.
func (l *Ledger) MarketExists(id int64) (bool, error) {
	var count int64
	err := l.db.Model(&models.Market{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// State returns the LMSR state of a market together with the version it was read at.
func (l *Ledger) State(ctx context.Context, id int64) (market.MarketState, uint64, error) {
	m, err := l.Market(ctx, id)
	if err != nil {
		return market.MarketState{}, 0, err
	}
	if m.PricingModel == models.PricingPool {
		return market.MarketState{}, 0, fmt.Errorf("%w: market %d uses the pool model", ErrUnsupportedModel, id)
	}
	return m.State(), m.Version, nil
}

// ListMarkets returns markets newest first, optionally filtered by category
// and resolution status.
func (l *Ledger) ListMarkets(ctx context.Context, category string, resolved *bool, limit, offset int) ([]models.Market, error) {
	q := l.db.WithContext(ctx).Model(&models.Market{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if resolved != nil {
		q = q.Where("is_resolved = ?", *resolved)
	}
	var markets []models.Market
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&markets).Error
	return markets, err
}

// CreateMarket stores a new LMSR market in its zero state. Only the
// descriptive fields and B of m are used.
func (l *Ledger) CreateMarket(ctx context.Context, m *models.Market) error {
	if _, err := market.NewMarketState(m.B); err != nil {
		return l.report(err, "create_market", zap.Uint64("b", m.B))
	}
	if m.B > maxStored {
		return l.report(fmt.Errorf("%w: b=%d", ErrQuantityOverflow, m.B), "create_market")
	}
	m.ID = 0
	m.PricingModel = models.PricingLMSR
	m.QYes, m.QNo = 0, 0
	m.YesPool, m.NoPool = 0, 0
	m.TotalAtResolution, m.WinningPoolAtResolution = 0, 0
	m.Version = 0
	m.IsResolved = false
	m.ResolutionResult = ""
	m.FinalResolutionDateTime = nil

	if err := l.db.WithContext(ctx).Create(m).Error; err != nil {
		return l.report(err, "create_market")
	}
	l.logger.Info("market created", zap.Int64("marketId", m.ID), zap.Uint64("b", m.B))
	return nil
}

// ImportPoolMarket stores a legacy proportional-pool market with its tickets.
// Pool totals are recomputed from the tickets.
func (l *Ledger) ImportPoolMarket(ctx context.Context, m *models.Market, tickets []models.PoolTicket) error {
	var yes, no uint64
	for i, t := range tickets {
		o, err := market.ParseOutcome(t.Outcome)
		if err != nil {
			return l.report(err, "import_pool_market", zap.Int("ticket", i))
		}
		pool := &no
		if o == market.Yes {
			pool = &yes
		}
		if t.AmountPaid > maxStored || *pool > maxStored-t.AmountPaid {
			return l.report(fmt.Errorf("%w: pool total", ErrQuantityOverflow), "import_pool_market", zap.Int("ticket", i))
		}
		*pool += t.AmountPaid
	}

	m.ID = 0
	m.PricingModel = models.PricingPool
	m.B, m.QYes, m.QNo = 0, 0, 0
	m.YesPool, m.NoPool = yes, no
	m.Version = 0
	m.IsResolved = false
	m.ResolutionResult = ""

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		for i := range tickets {
			tickets[i].ID = 0
			tickets[i].MarketID = m.ID
			tickets[i].Claimed = false
		}
		if len(tickets) == 0 {
			return nil
		}
		return tx.Create(&tickets).Error
	})
	return l.report(err, "import_pool_market")
}

// DeleteMarket removes a market nobody holds anything in.
func (l *Ledger) DeleteMarket(ctx context.Context, id int64) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadMarket(tx, id); err != nil {
			return err
		}
		var held int64
		if err := tx.Model(&models.Position{}).Where("market_id = ? AND shares > 0", id).Count(&held).Error; err != nil {
			return err
		}
		var tickets int64
		if err := tx.Model(&models.PoolTicket{}).Where("market_id = ? AND claimed = ?", id, false).Count(&tickets).Error; err != nil {
			return err
		}
		if held > 0 || tickets > 0 {
			return fmt.Errorf("%w: %d positions, %d tickets", ErrMarketHasHoldings, held, tickets)
		}
		if err := tx.Where("market_id = ?", id).Delete(&models.Position{}).Error; err != nil {
			return err
		}
		if err := tx.Where("market_id = ?", id).Delete(&models.PoolTicket{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Market{}, id).Error
	})
	return l.report(err, "delete_market", zap.Int64("marketId", id))
}

// OpenAccount registers an account with a fresh API key. The key is returned
// once and only its hash is stored.
func (l *Ledger) OpenAccount(ctx context.Context, displayName string, startingBalance uint64) (*models.Account, string, error) {
	if startingBalance > maxStored {
		return nil, "", fmt.Errorf("%w: starting balance", ErrQuantityOverflow)
	}
	key, keyID, hash, err := models.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	acct := &models.Account{
		DisplayName: displayName,
		KeyID:       keyID,
		KeyHash:     hash,
		Balance:     startingBalance,
		IsActive:    true,
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Account{}).Where("LOWER(display_name) = ?", strings.ToLower(displayName)).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("%w: %s", ErrNameTaken, displayName)
		}
		return tx.Create(acct).Error
	})
	if err != nil {
		return nil, "", l.report(err, "open_account")
	}
	l.logger.Info("account opened", zap.Int64("accountId", acct.ID))
	return acct, key, nil
}

// Account loads an active account.
func (l *Ledger) Account(ctx context.Context, id int64) (*models.Account, error) {
	return loadAccount(l.db.WithContext(ctx), id)
}

func loadAccount(db *gorm.DB, id int64) (*models.Account, error) {
	var acct models.Account
	if err := db.Where("id = ? AND is_active = ?", id, true).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
		}
		return nil, err
	}
	return &acct, nil
}

// Positions returns an account's non-empty positions in a market.
func (l *Ledger) Positions(ctx context.Context, accountID, marketID int64) ([]models.Position, error) {
	var positions []models.Position
	err := l.db.WithContext(ctx).
		Where("account_id = ? AND market_id = ? AND shares > 0", accountID, marketID).
		Order("outcome DESC").
		Find(&positions).Error
	return positions, err
}

func (l *Ledger) publish(m *models.Market, kind feed.Kind) {
	yes, no := m.Chances()
	l.pub.Publish(feed.Tick{
		MarketID:   m.ID,
		Kind:       kind,
		PriceYes:   yes,
		PriceNo:    no,
		QYes:       m.QYes,
		QNo:        m.QNo,
		Version:    m.Version,
		Resolution: m.ResolutionResult,
		At:         l.now(),
	})
}
