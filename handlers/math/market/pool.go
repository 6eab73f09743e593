package market

import (
	"github.com/holiman/uint256"
)

// PoolState is a legacy proportional-pool market. Stakes go into a YES or NO
// pool and winners split the whole pot pro rata; there are no shares and no
// LMSR pricing.
type PoolState struct {
	YesPool    uint64   `json:"yesPool"`
	NoPool     uint64   `json:"noPool"`
	Resolution *Outcome `json:"resolution,omitempty"`
	// Snapshots taken at resolution. Payouts use these, not the live pools.
	TotalAtResolution       uint64 `json:"totalAtResolution"`
	WinningPoolAtResolution uint64 `json:"winningPoolAtResolution"`
}

// Ticket is a stake placed in a legacy pool market.
type Ticket struct {
	Outcome    Outcome `json:"outcome"`
	AmountPaid uint64  `json:"amountPaid"`
}

// Resolve freezes the pool and records the snapshots used for payouts.
func (p PoolState) Resolve(o Outcome) (PoolState, error) {
	if p.Resolution != nil {
		return p, ErrMarketResolved
	}
	p.Resolution = &o
	p.TotalAtResolution = p.YesPool + p.NoPool
	p.WinningPoolAtResolution = p.NoPool
	if o == Yes {
		p.WinningPoolAtResolution = p.YesPool
	}
	return p, nil
}

// Chances returns each pool's share of the total, 0.5/0.5 for an empty pot.
func (p PoolState) Chances() (yes, no float64) {
	total := float64(p.YesPool) + float64(p.NoPool)
	if total == 0 {
		return 0.5, 0.5
	}
	yes = float64(p.YesPool) / total
	return yes, 1 - yes
}

// SettleTicket returns stake * total / winning for a winning ticket.
func SettleTicket(p PoolState, t Ticket) (uint64, error) {
	return p.Payout(t.Outcome, t.AmountPaid)
}

// Winner implements Settleable.
func (p PoolState) Winner() (Outcome, error) {
	if p.Resolution == nil {
		return No, ErrMarketNotResolved
	}
	return *p.Resolution, nil
}

// Payout implements Settleable for pool stakes. The product is formed in 256
// bits so stake * total cannot overflow before the division.
func (p PoolState) Payout(o Outcome, stake uint64) (uint64, error) {
	winner, err := p.Winner()
	if err != nil {
		return 0, err
	}
	if o != winner {
		return 0, nil
	}
	if p.WinningPoolAtResolution == 0 {
		return 0, ErrEmptyWinningPool
	}
	v := new(uint256.Int).Mul(uint256.NewInt(stake), uint256.NewInt(p.TotalAtResolution))
	v.Div(v, uint256.NewInt(p.WinningPoolAtResolution))
	if !v.IsUint64() {
		// Only reachable when a stake exceeds the winning pool it belongs to.
		return 0, ErrEngineInvariantViolation
	}
	return v.Uint64(), nil
}
