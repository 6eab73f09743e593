package ledger

import (
	"context"

	"binarymarket/handlers/math/market"
	"binarymarket/models"
)

// MaxHolders caps TopHolders.
const MaxHolders = 100

type holderRow struct {
	AccountID   int64
	DisplayName string
	YesShares   uint64
	NoShares    uint64
	TotalShares uint64
}

// TopHolders ranks the accounts holding the most shares in a market, with
// each account's YES and NO holdings side by side.
func (l *Ledger) TopHolders(ctx context.Context, marketID int64, limit int) ([]models.HolderEntry, error) {
	if limit <= 0 || limit > MaxHolders {
		limit = MaxHolders
	}
	if _, err := l.Market(ctx, marketID); err != nil {
		return nil, err
	}

	var rows []holderRow
	err := l.db.WithContext(ctx).
		Table("positions AS p").
		Select(`p.account_id AS account_id, a.display_name AS display_name,
			SUM(CASE WHEN p.outcome = ? THEN p.shares ELSE 0 END) AS yes_shares,
			SUM(CASE WHEN p.outcome = ? THEN p.shares ELSE 0 END) AS no_shares,
			SUM(p.shares) AS total_shares`, market.Yes.String(), market.No.String()).
		Joins("JOIN accounts a ON a.id = p.account_id").
		Where("p.market_id = ? AND p.shares > 0", marketID).
		Group("p.account_id, a.display_name").
		Order("total_shares DESC, account_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, l.report(err, "top_holders")
	}

	entries := make([]models.HolderEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.HolderEntry{
			Rank:        int64(i + 1),
			AccountID:   r.AccountID,
			DisplayName: r.DisplayName,
			Yes:         r.YesShares,
			No:          r.NoShares,
			Total:       r.TotalShares,
		}
	}
	return entries, nil
}
