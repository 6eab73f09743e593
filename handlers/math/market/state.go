// Package market holds the per-market state of a binary LMSR market and the
// pure functions that quote trades against it and settle positions once it
// resolves. Nothing here is stateful: every call takes a MarketState and
// returns a new one.
package market

import (
	"fmt"
	"strings"

	"binarymarket/handlers/math/probabilities/lmsr"
)

// Outcome is one side of a binary market.
type Outcome bool

const (
	Yes Outcome = true
	No  Outcome = false
)

func (o Outcome) String() string {
	if o {
		return "YES"
	}
	return "NO"
}

// MarshalText renders the outcome as "YES" or "NO".
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText accepts the same spellings as ParseOutcome.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome accepts "yes"/"no" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return Yes, nil
	case "NO":
		return No, nil
	}
	return No, fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}

// MarketState is the pricing state of one market.
type MarketState struct {
	QYes uint64 `json:"qYes"`
	QNo  uint64 `json:"qNo"`
	B    uint64 `json:"b"`
	// Resolution is nil while the market is open.
	Resolution *Outcome `json:"resolution,omitempty"`
}

// NewMarketState returns the zero state of a market with liquidity b.
func NewMarketState(b uint64) (MarketState, error) {
	if b == 0 {
		return MarketState{}, ErrInvalidLiquidityParameter
	}
	return MarketState{B: b}, nil
}

// Resolved reports whether the market has a final outcome.
func (s MarketState) Resolved() bool {
	return s.Resolution != nil
}

// Shares returns the outstanding share count for outcome o.
func (s MarketState) Shares(o Outcome) uint64 {
	if o == Yes {
		return s.QYes
	}
	return s.QNo
}

// withShares returns a copy of s with outcome o's counter set to q.
func (s MarketState) withShares(o Outcome, q uint64) MarketState {
	if o == Yes {
		s.QYes = q
	} else {
		s.QNo = q
	}
	return s
}

// Resolve freezes the market on outcome o. Resolution is one-way.
func (s MarketState) Resolve(o Outcome) (MarketState, error) {
	if s.Resolved() {
		return s, ErrMarketResolved
	}
	s.Resolution = &o
	return s, nil
}

// Price returns the instantaneous YES and NO prices. A state with b == 0
// never passes market creation, so it is reported as an even market.
func Price(s MarketState) (yes, no float64) {
	yes, no, err := lmsr.Prices(s.QYes, s.QNo, s.B)
	if err != nil {
		return 0.5, 0.5
	}
	return yes, no
}

// priceOf returns the price of outcome o.
func priceOf(s MarketState, o Outcome) float64 {
	yes, no := Price(s)
	if o == Yes {
		return yes
	}
	return no
}

// Position is a caller's holding of outcome shares in one market.
type Position struct {
	Outcome Outcome `json:"outcome"`
	Shares  uint64  `json:"shares"`
}

// Side tells a buy quote from a sell quote.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Quote is the result of pricing an order against a MarketState. It is only
// valid against the state it was computed from.
type Quote struct {
	Side    Side    `json:"side"`
	Outcome Outcome `json:"outcome"`
	// SharesDelta is the number of shares granted (buy) or returned (sell).
	SharesDelta uint64 `json:"sharesDelta"`
	// CollateralDelta is what the caller pays (buy) or receives (sell).
	CollateralDelta uint64 `json:"collateralDelta"`
	// PriceBefore and ResultingPrice are the traded outcome's price before and after.
	PriceBefore    float64     `json:"priceBefore"`
	ResultingPrice float64     `json:"resultingPrice"`
	Next           MarketState `json:"next"`
}

// AveragePrice is collateral per share for the quoted trade.
func (q Quote) AveragePrice() float64 {
	if q.SharesDelta == 0 {
		return 0
	}
	return float64(q.CollateralDelta) / float64(q.SharesDelta)
}
