package lmsr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCostAtZeroState(t *testing.T) {
	for _, b := range []uint64{1, 100, 100_000, 1_000_000, 1_000_000_000_000} {
		c, err := Cost(0, 0, b)
		require.NoError(t, err)
		assert.InEpsilon(t, float64(b)*math.Ln2, c, 1e-9, "b=%d", b)
	}
}

func TestCostZeroLiquidity(t *testing.T) {
	_, err := Cost(10, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)

	_, _, err = Prices(10, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)

	_, err = CostDelta(0, 0, 0, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)

	_, err = MaxLoss(0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)

	_, err = Ratio(1, 0)
	assert.ErrorIs(t, err, ErrInvalidLiquidityParameter)
}

func TestRatioAndSpread(t *testing.T) {
	r, err := Ratio(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.75, r)

	d, err := Spread(1<<62+1, 1<<62+3, 2)
	require.NoError(t, err)
	assert.Equal(t, -1.0, d, "counters cancel before scaling")

	d, err = Spread(math.MaxUint64, 0, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestCostMatchesNaiveFormula(t *testing.T) {
	tests := []struct {
		name      string
		qYes, qNo uint64
		b         uint64
	}{
		{"balanced", 500, 500, 1000},
		{"yes heavy", 3000, 100, 1000},
		{"no heavy", 0, 7_500, 2_500},
		{"deep market", 123_456, 98_765, 1_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := float64(tt.b)
			want := b * math.Log(math.Exp(float64(tt.qYes)/b)+math.Exp(float64(tt.qNo)/b))
			got, err := Cost(tt.qYes, tt.qNo, tt.b)
			require.NoError(t, err)
			assert.InEpsilon(t, want, got, 1e-9)
		})
	}
}

func TestCostLargeRatiosStayFinite(t *testing.T) {
	// q/b of 50 and far beyond would overflow a naive exp.
	for _, ratio := range []uint64{50, 710, 10_000, 1 << 30} {
		c, err := Cost(ratio*1000, 0, 1000)
		require.NoError(t, err)
		assert.False(t, math.IsInf(c, 0) || math.IsNaN(c), "ratio=%d", ratio)
		assert.GreaterOrEqual(t, c, float64(ratio*1000))

		yes, no, err := Prices(ratio*1000, 0, 1000)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(yes) || math.IsNaN(no))
		assert.Equal(t, 1.0, yes+no)
	}
}

func TestCostSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qYes := rapid.Uint64Range(0, 1<<40).Draw(t, "qYes")
		qNo := rapid.Uint64Range(0, 1<<40).Draw(t, "qNo")
		b := rapid.Uint64Range(1, 1<<40).Draw(t, "b")

		a, err := Cost(qYes, qNo, b)
		if err != nil {
			t.Fatal(err)
		}
		c, err := Cost(qNo, qYes, b)
		if err != nil {
			t.Fatal(err)
		}
		if a != c {
			t.Fatalf("cost(%d,%d)=%v but cost(%d,%d)=%v", qYes, qNo, a, qNo, qYes, c)
		}
	})
}

func TestCostMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qYes := rapid.Uint64Range(0, 1<<40).Draw(t, "qYes")
		qNo := rapid.Uint64Range(0, 1<<40).Draw(t, "qNo")
		b := rapid.Uint64Range(1, 1<<40).Draw(t, "b")
		k := rapid.Uint64Range(1, 1<<20).Draw(t, "k")

		base, _ := Cost(qYes, qNo, b)
		moreYes, _ := Cost(qYes+k, qNo, b)
		moreNo, _ := Cost(qYes, qNo+k, b)
		if moreYes < base || moreNo < base {
			t.Fatalf("cost decreased: base=%v yes+k=%v no+k=%v", base, moreYes, moreNo)
		}

		dYes, _ := CostDelta(b, qYes, qNo, qYes+k, qNo)
		dNo, _ := CostDelta(b, qYes, qNo, qYes, qNo+k)
		if dYes < 0 || dNo < 0 {
			t.Fatalf("negative delta: yes=%v no=%v", dYes, dNo)
		}
	})
}

func TestPricesSumToOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qYes := rapid.Uint64().Draw(t, "qYes")
		qNo := rapid.Uint64().Draw(t, "qNo")
		b := rapid.Uint64Range(1, math.MaxUint64).Draw(t, "b")

		yes, no, err := Prices(qYes, qNo, b)
		if err != nil {
			t.Fatal(err)
		}
		if yes+no != 1 {
			t.Fatalf("yes=%v no=%v sum=%v", yes, no, yes+no)
		}
		if yes < 0 || no < 0 || yes > 1 || no > 1 {
			t.Fatalf("price out of range: yes=%v no=%v", yes, no)
		}
	})
}

func TestPricesOpenInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.Uint64Range(1, 1<<32).Draw(t, "b")
		qNo := rapid.Uint64Range(0, 1<<32).Draw(t, "qNo")
		// keep |qYes-qNo|/b within 30 so the dearer side stays below 1 in float64
		gap := rapid.Uint64Range(0, 30*b).Draw(t, "gap")

		yes, no, err := Prices(qNo+gap, qNo, b)
		if err != nil {
			t.Fatal(err)
		}
		if !(yes > 0 && yes < 1 && no > 0 && no < 1) {
			t.Fatalf("prices not in (0,1): yes=%v no=%v", yes, no)
		}
	})
}

func TestPricesAgreeWithLogPrices(t *testing.T) {
	yes, no, err := Prices(1_500, 400, 1_000)
	require.NoError(t, err)
	lYes, lNo, err := LogPrices(1_500, 400, 1_000)
	require.NoError(t, err)
	assert.InEpsilon(t, yes, math.Exp(lYes), 1e-12)
	assert.InEpsilon(t, no, math.Exp(lNo), 1e-12)
	assert.Greater(t, yes, 0.5)
}

func TestSharesForCostInvertsCostDelta(t *testing.T) {
	tests := []struct {
		name      string
		qYes, qNo uint64
		b         uint64
		cost      float64
		yes       bool
	}{
		{"small buy", 0, 0, 1_000_000, 1_000, true},
		{"large buy", 0, 0, 100_000, 5_000_000, true},
		{"cheap side", 0, 2_000_000, 100_000, 50_000, true},
		{"no side", 40_000, 10_000, 100_000, 75_000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SharesForCost(tt.qYes, tt.qNo, tt.b, tt.cost, tt.yes)
			require.NoError(t, err)
			require.Greater(t, shares, 0.0)

			n := uint64(math.Floor(shares))
			toYes, toNo := tt.qYes, tt.qNo
			if tt.yes {
				toYes += n
			} else {
				toNo += n
			}
			spent, err := CostDelta(tt.b, tt.qYes, tt.qNo, toYes, toNo)
			require.NoError(t, err)
			assert.LessOrEqual(t, spent, tt.cost*(1+1e-9))
			assert.InDelta(t, tt.cost, spent, 1.0)
		})
	}
}

func TestCostDeltaKeepsPrecisionAtHugeLiquidity(t *testing.T) {
	tests := []struct {
		name                         string
		b                            uint64
		fromYes, fromNo, toYes, toNo uint64
		want                         float64
	}{
		// one NO share from a near-balanced book is worth about half a unit
		{"single share", 9_066_852_358_979_583, 1, 22, 1, 23, 0.5},
		{"small buy at max b", math.MaxInt64, 0, 657, 0, 1_099, 221},
		{"balanced at max uint64", math.MaxUint64, 0, 0, 1_000, 0, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CostDelta(tt.b, tt.fromYes, tt.fromNo, tt.toYes, tt.toNo)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)

			back, err := CostDelta(tt.b, tt.toYes, tt.toNo, tt.fromYes, tt.fromNo)
			require.NoError(t, err)
			assert.InDelta(t, -tt.want, back, 1e-3)
		})
	}
}

func TestCostDeltaSignAcrossLiquidityRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.Uint64Range(1, math.MaxInt64).Draw(t, "b")
		qYes := rapid.Uint64Range(0, math.MaxInt64).Draw(t, "qYes")
		qNo := rapid.Uint64Range(0, math.MaxInt64).Draw(t, "qNo")
		k := rapid.Uint64Range(1, 1<<40).Draw(t, "k")

		up, err := CostDelta(b, qYes, qNo, qYes, qNo+k)
		if err != nil {
			t.Fatal(err)
		}
		down, err := CostDelta(b, qYes, qNo+k, qYes, qNo)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(up) || up < 0 || down > 0 {
			t.Fatalf("adding %d NO: up=%v down=%v", k, up, down)
		}
		// each marginal share costs between 0 and 1
		if up > float64(k)*(1+1e-9) {
			t.Fatalf("%d shares cost %v", k, up)
		}
	})
}

func TestMaxLoss(t *testing.T) {
	loss, err := MaxLoss(1_000)
	require.NoError(t, err)
	c, _ := Cost(0, 0, 1_000)
	assert.Equal(t, c, loss)
}

func TestLogSumExp(t *testing.T) {
	assert.InEpsilon(t, math.Log(math.Exp(1)+math.Exp(2)), LogSumExp(1, 2), 1e-12)
	assert.InEpsilon(t, 1000+math.Ln2, LogSumExp(1000, 1000), 1e-12)
	assert.True(t, math.IsInf(LogSumExp(math.Inf(-1), math.Inf(-1)), -1))
}
