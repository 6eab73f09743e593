package market

// Settleable is implemented by every pricing model a market can use. Settlement
// dispatches on it so the LMSR and legacy pool formats stay separate types.
type Settleable interface {
	// Winner returns the resolved outcome, or ErrMarketNotResolved.
	Winner() (Outcome, error)
	// Payout returns what a claim of amount on outcome o redeems for.
	Payout(o Outcome, amount uint64) (uint64, error)
}

// Settle returns the collateral a position redeems for in a resolved LMSR
// market: one unit per winning share, nothing for the losing side. It does not
// mark the position as claimed; burning it is the ledger's job.
func Settle(s MarketState, p Position) (uint64, error) {
	return s.Payout(p.Outcome, p.Shares)
}

// Winner implements Settleable.
func (s MarketState) Winner() (Outcome, error) {
	if s.Resolution == nil {
		return No, ErrMarketNotResolved
	}
	return *s.Resolution, nil
}

// Payout implements Settleable for outcome-token shares.
func (s MarketState) Payout(o Outcome, shares uint64) (uint64, error) {
	winner, err := s.Winner()
	if err != nil {
		return 0, err
	}
	if o != winner {
		return 0, nil
	}
	return shares, nil
}

// SettleClaim settles amount on outcome o against any pricing model.
func SettleClaim(m Settleable, o Outcome, amount uint64) (uint64, error) {
	return m.Payout(o, amount)
}
