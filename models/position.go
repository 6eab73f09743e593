package models

import (
	"time"

	"binarymarket/handlers/math/market"
)

// Position is an account's outcome-token holding in one LMSR market.
// Claiming burns it.
type Position struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	AccountID int64     `json:"accountId" gorm:"not null;uniqueIndex:idx_position_owner"`
	MarketID  int64     `json:"marketId" gorm:"not null;index;uniqueIndex:idx_position_owner"`
	Outcome   string    `json:"outcome" gorm:"not null;size:3;uniqueIndex:idx_position_owner"`
	Shares    uint64    `json:"shares" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Engine converts the row to the engine's Position.
func (p *Position) Engine() (market.Position, error) {
	o, err := market.ParseOutcome(p.Outcome)
	if err != nil {
		return market.Position{}, err
	}
	return market.Position{Outcome: o, Shares: p.Shares}, nil
}

// PoolTicket is a stake in a legacy proportional-pool market.
type PoolTicket struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	AccountID  int64     `json:"accountId" gorm:"not null;index"`
	MarketID   int64     `json:"marketId" gorm:"not null;index"`
	Outcome    string    `json:"outcome" gorm:"not null;size:3"`
	AmountPaid uint64    `json:"amountPaid" gorm:"not null"`
	Claimed    bool      `json:"claimed" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Engine converts the row to the engine's Ticket.
func (t *PoolTicket) Engine() (market.Ticket, error) {
	o, err := market.ParseOutcome(t.Outcome)
	if err != nil {
		return market.Ticket{}, err
	}
	return market.Ticket{Outcome: o, AmountPaid: t.AmountPaid}, nil
}

// HolderEntry is one row of a market's top-holders list: an account's YES and
// NO holdings side by side.
type HolderEntry struct {
	Rank        int64  `json:"rank"`
	AccountID   int64  `json:"accountId"`
	DisplayName string `json:"displayName"`
	Yes         uint64 `json:"yes"`
	No          uint64 `json:"no"`
	Total       uint64 `json:"total"`
}

// YesShare is the fraction of the holder's shares that are YES.
func (h HolderEntry) YesShare() float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(h.Yes) / float64(h.Total)
}
