package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.500", FormatAmount(1_500_000_000, 3))
	assert.Equal(t, "0.000000001", FormatAmount(1, 9))
	assert.Equal(t, "18446744073.709551615", FormatAmount(math.MaxUint64, 9))
	assert.Equal(t, "0.000", FormatAmount(0, 3))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		err  error
	}{
		{"1", 1_000_000_000, nil},
		{"0.25", 250_000_000, nil},
		{"0.000000001", 1, nil},
		{"18446744073.709551615", math.MaxUint64, nil},
		{"-1", 0, ErrNegativeAmount},
		{"0.0000000001", 0, ErrTooPrecise},
		{"18446744073.709551616", 0, ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAmount("abc")
	assert.Error(t, err)
}

func TestFormatPrices(t *testing.T) {
	assert.Equal(t, "62.5%", FormatPercent(0.625, 1))
	assert.Equal(t, "50¢", FormatCents(0.5, 0))
	assert.Equal(t, "100¢", FormatCents(1.2, 0))
	assert.Equal(t, "0.0¢", FormatCents(-0.1, 1))
	assert.Equal(t, "—", FormatCents(math.NaN(), 0))
	assert.Equal(t, "—", FormatPercent(math.Inf(1), 1))
}
