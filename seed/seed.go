// Package seed fills an empty database with demo markets and trades.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"binarymarket/handlers/math/market"
	"binarymarket/ledger"
	"binarymarket/models"
)

var categories = []string{"crypto", "sports", "politics", "science", "general"}

// Result reports what Demo created.
type Result struct {
	Markets  []int64
	Accounts []int64
	APIKeys  []string
}

// Demo opens trader accounts and LMSR markets with some trading on them,
// plus one resolved legacy pool market. It does nothing if any market exists.
func Demo(ctx context.Context, db *gorm.DB, l *ledger.Ledger, liquidity, balance uint64, traders, markets int, logger *zap.Logger) (*Result, error) {
	var existing int64
	if err := db.WithContext(ctx).Model(&models.Market{}).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		logger.Info("skipping demo seed, markets already present", zap.Int64("markets", existing))
		return &Result{}, nil
	}

	gofakeit.Seed(time.Now().UnixNano())
	res := &Result{}

	for i := 0; i < traders; i++ {
		acct, key, err := openTrader(ctx, l, balance)
		if err != nil {
			return nil, fmt.Errorf("seed account: %w", err)
		}
		res.Accounts = append(res.Accounts, acct.ID)
		res.APIKeys = append(res.APIKeys, key)
	}

	for i := 0; i < markets; i++ {
		m := &models.Market{
			QuestionTitle:      question(),
			Description:        gofakeit.Paragraph(1, 3, 12, " "),
			Category:           categories[gofakeit.Number(0, len(categories)-1)],
			ResolutionDateTime: time.Now().Add(time.Duration(gofakeit.Number(24, 24*60)) * time.Hour),
			B:                  liquidity,
		}
		if len(res.Accounts) > 0 {
			m.CreatorAccountID = res.Accounts[0]
		}
		if err := l.CreateMarket(ctx, m); err != nil {
			return nil, fmt.Errorf("seed market: %w", err)
		}
		res.Markets = append(res.Markets, m.ID)

		for _, accountID := range res.Accounts {
			if balance == 0 {
				break
			}
			budget := uint64(gofakeit.Number(1, 20)) * (balance / 200)
			if budget == 0 {
				continue
			}
			o := market.Outcome(gofakeit.Bool())
			if _, err := l.Buy(ctx, accountID, m.ID, o, budget); err != nil && !ledger.IsUserError(err) {
				return nil, fmt.Errorf("seed trade: %w", err)
			}
		}
	}

	if len(res.Accounts) >= 2 {
		legacy := &models.Market{
			QuestionTitle:      question(),
			Description:        "Imported from the proportional pool format.",
			Category:           "general",
			ResolutionDateTime: time.Now().Add(-24 * time.Hour),
		}
		tickets := []models.PoolTicket{
			{AccountID: res.Accounts[0], Outcome: market.Yes.String(), AmountPaid: balance / 10},
			{AccountID: res.Accounts[1], Outcome: market.No.String(), AmountPaid: balance / 5},
		}
		if err := l.ImportPoolMarket(ctx, legacy, tickets); err != nil {
			return nil, fmt.Errorf("seed legacy market: %w", err)
		}
		if _, err := l.Resolve(ctx, legacy.ID, market.Yes); err != nil {
			return nil, fmt.Errorf("seed legacy resolve: %w", err)
		}
		res.Markets = append(res.Markets, legacy.ID)
	}

	logger.Info("seeded demo data", zap.Int("markets", len(res.Markets)), zap.Int("accounts", len(res.Accounts)))
	return res, nil
}

func openTrader(ctx context.Context, l *ledger.Ledger, balance uint64) (*models.Account, string, error) {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		name := fmt.Sprintf("%s%d", gofakeit.FirstName(), gofakeit.Number(100, 9999))
		var acct *models.Account
		var key string
		acct, key, err = l.OpenAccount(ctx, name, balance)
		if !errors.Is(err, ledger.ErrNameTaken) {
			return acct, key, err
		}
	}
	return nil, "", err
}

func question() string {
	switch gofakeit.Number(0, 2) {
	case 0:
		return fmt.Sprintf("Will %s %s the %s before %d?", gofakeit.Company(), gofakeit.HackerVerb(), gofakeit.HackerNoun(), time.Now().Year()+1)
	case 1:
		return fmt.Sprintf("Will %s %s finish the season in first place?", gofakeit.City(), gofakeit.Color())
	}
	return fmt.Sprintf("Will %s be acquired by %s?", gofakeit.Company(), gofakeit.Company())
}
