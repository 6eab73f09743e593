package market

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"binarymarket/handlers/math/probabilities/lmsr"
)

func resolved(t *testing.T, s MarketState, o Outcome) MarketState {
	t.Helper()
	r, err := s.Resolve(o)
	require.NoError(t, err)
	return r
}

func TestBuyMovesPriceUp(t *testing.T) {
	s, err := NewMarketState(1_000_000)
	require.NoError(t, err)

	yesBefore, _ := Price(s)
	require.Equal(t, 0.5, yesBefore)

	q, err := QuoteBuy(s, Yes, 100_000)
	require.NoError(t, err)
	assert.Greater(t, q.SharesDelta, uint64(0))
	assert.LessOrEqual(t, q.CollateralDelta, uint64(100_000))
	assert.Greater(t, q.ResultingPrice, 0.5)

	yesAfter, _ := Price(q.Next)
	assert.Equal(t, q.ResultingPrice, yesAfter)
	assert.Equal(t, q.SharesDelta, q.Next.QYes)
	assert.Zero(t, q.Next.QNo)
}

func TestBuyThenSellRoundTripIsNearLossless(t *testing.T) {
	s, err := NewMarketState(100_000)
	require.NoError(t, err)

	buy, err := QuoteBuy(s, No, 50_000)
	require.NoError(t, err)
	require.Greater(t, buy.SharesDelta, uint64(50_000), "every share costs less than one unit")

	sell, err := QuoteSell(buy.Next, No, buy.SharesDelta)
	require.NoError(t, err)
	assert.Equal(t, s, sell.Next)
	assert.LessOrEqual(t, sell.CollateralDelta, uint64(50_000))
	assert.InDelta(t, 50_000, float64(sell.CollateralDelta), 3)
	assert.LessOrEqual(t, sell.CollateralDelta, buy.CollateralDelta)
}

func TestBuyGrantsLargestAffordable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.Uint64Range(1, 1<<32).Draw(t, "b")
		s := MarketState{
			QYes: rapid.Uint64Range(0, 1<<36).Draw(t, "qYes"),
			QNo:  rapid.Uint64Range(0, 1<<36).Draw(t, "qNo"),
			B:    b,
		}
		o := Outcome(rapid.Bool().Draw(t, "yes"))
		budget := rapid.Uint64Range(1, 1<<36).Draw(t, "budget")

		q, err := QuoteBuy(s, o, budget)
		if err != nil {
			t.Fatal(err)
		}
		held := s.Shares(o)
		spent := delta(t, s, o, held+q.SharesDelta)
		if spent > float64(budget) {
			t.Fatalf("granted %d shares costing %v over budget %d", q.SharesDelta, spent, budget)
		}
		if q.SharesDelta < math.MaxUint64-held {
			if more := delta(t, s, o, held+q.SharesDelta+1); more <= float64(budget) {
				t.Fatalf("%d shares affordable (%v <= %d) but only %d granted", q.SharesDelta+1, more, budget, q.SharesDelta)
			}
		}
		if q.CollateralDelta > budget {
			t.Fatalf("collateral %d over budget %d", q.CollateralDelta, budget)
		}
	})
}

func delta(t *rapid.T, s MarketState, o Outcome, q uint64) float64 {
	next := s.withShares(o, q)
	d, err := lmsr.CostDelta(s.B, s.QYes, s.QNo, next.QYes, next.QNo)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRoundTripNeverProfits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := MarketState{
			QYes: rapid.Uint64Range(0, 1<<32).Draw(t, "qYes"),
			QNo:  rapid.Uint64Range(0, 1<<32).Draw(t, "qNo"),
			B:    rapid.Uint64Range(1, 1<<32).Draw(t, "b"),
		}
		o := Outcome(rapid.Bool().Draw(t, "yes"))
		budget := rapid.Uint64Range(1, 1<<32).Draw(t, "budget")

		buy, err := QuoteBuy(s, o, budget)
		if err != nil {
			t.Fatal(err)
		}
		if buy.SharesDelta == 0 {
			return
		}
		sell, err := QuoteSell(buy.Next, o, buy.SharesDelta)
		if err != nil {
			t.Fatal(err)
		}
		if sell.CollateralDelta > budget || sell.CollateralDelta > buy.CollateralDelta {
			t.Fatalf("refund %d exceeds paid %d (budget %d)", sell.CollateralDelta, buy.CollateralDelta, budget)
		}
	})
}

func TestHugeLiquidityTrades(t *testing.T) {
	sell, err := QuoteSell(MarketState{QYes: 1, QNo: 23, B: 9_066_852_358_979_583}, No, 1)
	require.NoError(t, err)
	assert.Zero(t, sell.CollateralDelta, "half a unit rounds down")

	buy, err := QuoteBuy(MarketState{QNo: 657, B: math.MaxInt64}, No, 442)
	require.NoError(t, err)
	assert.InDelta(t, 884, float64(buy.SharesDelta), 1)
	assert.LessOrEqual(t, buy.CollateralDelta, uint64(442))
}

func TestNoInvariantViolationAcrossLiquidityRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := MarketState{
			QYes: rapid.Uint64Range(0, math.MaxInt64).Draw(t, "qYes"),
			QNo:  rapid.Uint64Range(0, math.MaxInt64).Draw(t, "qNo"),
			B:    rapid.Uint64Range(1, math.MaxInt64).Draw(t, "b"),
		}
		o := Outcome(rapid.Bool().Draw(t, "yes"))
		amount := rapid.Uint64Range(1, 1<<40).Draw(t, "amount")

		buy, err := QuoteBuy(s, o, amount)
		if err != nil {
			t.Fatalf("buy %d %s from %+v: %v", amount, o, s, err)
		}
		if buy.CollateralDelta > amount {
			t.Fatalf("collateral %d over budget %d", buy.CollateralDelta, amount)
		}

		held := s.Shares(o)
		if held == 0 {
			return
		}
		shares := min(amount, held)
		sell, err := QuoteSell(s, o, shares)
		if err != nil {
			t.Fatalf("sell %d %s from %+v: %v", shares, o, s, err)
		}
		if sell.CollateralDelta > shares {
			t.Fatalf("refund %d for %d shares", sell.CollateralDelta, shares)
		}
	})
}

func TestSellErrors(t *testing.T) {
	s := MarketState{QYes: 100, QNo: 50, B: 1_000}

	_, err := QuoteSell(s, No, 51)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = QuoteSell(s, Yes, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	q, err := QuoteSell(s, No, 50)
	require.NoError(t, err)
	assert.Zero(t, q.Next.QNo)
	assert.Equal(t, uint64(100), q.Next.QYes)
	assert.Less(t, q.ResultingPrice, q.PriceBefore)
	assert.LessOrEqual(t, q.CollateralDelta, uint64(50))

	_, err = QuoteSell(MarketState{QYes: 10}, Yes, 1)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)
}

func TestBuyErrors(t *testing.T) {
	_, err := QuoteBuy(MarketState{B: 10}, Yes, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = QuoteBuy(MarketState{}, Yes, 10)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)

	_, err = NewMarketState(0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)
}

func TestTradingResolvedMarket(t *testing.T) {
	s := resolved(t, MarketState{QYes: 300, QNo: 100, B: 1_000}, Yes)
	before := s

	_, err := QuoteBuy(s, Yes, 100)
	assert.ErrorIs(t, err, ErrMarketResolved)
	_, err = QuoteSell(s, Yes, 100)
	assert.ErrorIs(t, err, ErrMarketResolved)
	assert.Equal(t, before, s)

	_, err = s.Resolve(No)
	assert.ErrorIs(t, err, ErrMarketResolved)
}

func TestSettle(t *testing.T) {
	s := resolved(t, MarketState{QYes: 500, QNo: 500, B: 1_000}, Yes)

	payout, err := Settle(s, Position{Outcome: Yes, Shares: 500})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), payout)

	payout, err = Settle(s, Position{Outcome: No, Shares: 500})
	require.NoError(t, err)
	assert.Zero(t, payout)

	// settling twice gives the same answer; burning the position is not our job
	again, err := Settle(s, Position{Outcome: Yes, Shares: 500})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), again)
}

func TestSettleBeforeResolution(t *testing.T) {
	_, err := Settle(MarketState{QYes: 500, B: 1_000}, Position{Outcome: Yes, Shares: 500})
	assert.ErrorIs(t, err, ErrMarketNotResolved)
}

func TestSettlePool(t *testing.T) {
	p := PoolState{YesPool: 3_000, NoPool: 1_000}
	_, err := SettleTicket(p, Ticket{Outcome: Yes, AmountPaid: 300})
	assert.ErrorIs(t, err, ErrMarketNotResolved)

	p, err = p.Resolve(Yes)
	require.NoError(t, err)

	payout, err := SettleTicket(p, Ticket{Outcome: Yes, AmountPaid: 300})
	require.NoError(t, err)
	assert.Equal(t, uint64(400), payout)

	payout, err = SettleTicket(p, Ticket{Outcome: No, AmountPaid: 1_000})
	require.NoError(t, err)
	assert.Zero(t, payout)

	empty, err := PoolState{NoPool: 1_000}.Resolve(Yes)
	require.NoError(t, err)
	_, err = SettleTicket(empty, Ticket{Outcome: Yes, AmountPaid: 1})
	assert.ErrorIs(t, err, ErrEmptyWinningPool)
}

func TestSettleClaimDispatch(t *testing.T) {
	lmsrMarket := resolved(t, MarketState{QYes: 10, B: 10}, Yes)
	pool, err := PoolState{YesPool: 10, NoPool: 30}.Resolve(Yes)
	require.NoError(t, err)

	tests := []struct {
		name  string
		model Settleable
		want  uint64
	}{
		{"lmsr pays one per share", lmsrMarket, 10},
		{"pool pays pro rata", pool, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SettleClaim(tt.model, Yes, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPoolLargeStakesDoNotOverflow(t *testing.T) {
	p, err := PoolState{YesPool: math.MaxUint64 / 2, NoPool: math.MaxUint64 / 2}.Resolve(No)
	require.NoError(t, err)
	payout, err := SettleTicket(p, Ticket{Outcome: No, AmountPaid: math.MaxUint64 / 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64/2-1), payout)
}

func TestOutcomeJSON(t *testing.T) {
	s := resolved(t, MarketState{QYes: 1, QNo: 2, B: 3}, No)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qYes":1,"qNo":2,"b":3,"resolution":"NO"}`, string(raw))

	var back MarketState
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)

	_, err = ParseOutcome("maybe")
	assert.ErrorIs(t, err, ErrUnknownOutcome)
	o, err := ParseOutcome(" yes ")
	require.NoError(t, err)
	assert.Equal(t, Yes, o)
}
