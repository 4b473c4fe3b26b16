package swap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinimumOutScenario(t *testing.T) {
	// 4000000 B units at 50 bps: floor(4000000 * 9950 / 10000) = 3980000
	out := MinimumOut(big.NewInt(4000000), 50)
	require.Equal(t, "3980000", out.String())
}

func TestMinimumOutFloors(t *testing.T) {
	// floor(999 * 9999 / 10000) = 998
	out := MinimumOut(big.NewInt(999), 1)
	require.Equal(t, "998", out.String())
}

func TestMinimumOutAbsentQuote(t *testing.T) {
	require.Zero(t, MinimumOut(nil, 50).Sign())
	require.Zero(t, MinimumOut(big.NewInt(0), 50).Sign())
	require.Zero(t, MinimumOut(big.NewInt(-5), 50).Sign())
}

func TestMinimumOutClampsTolerance(t *testing.T) {
	require.Equal(t, "1000", MinimumOut(big.NewInt(1000), -10).String())
	require.Zero(t, MinimumOut(big.NewInt(1000), 20000).Sign())
}

func TestMinimumOutMonotonicInTolerance(t *testing.T) {
	quote := big.NewInt(123456789)
	prev := MinimumOut(quote, 0)
	for bps := int64(1); bps <= 10000; bps += 97 {
		cur := MinimumOut(quote, bps)
		require.LessOrEqual(t, cur.Cmp(prev), 0, "minimumOut must not increase with tolerance")
		prev = cur
	}
}

func TestMinimumOutMonotonicInQuote(t *testing.T) {
	prev := MinimumOut(big.NewInt(0), 50)
	for q := int64(1); q < 1_000_000; q += 9973 {
		cur := MinimumOut(big.NewInt(q), 50)
		require.GreaterOrEqual(t, cur.Cmp(prev), 0, "minimumOut must not decrease with quote")
		prev = cur
	}
}

func TestToleranceBpsTruncates(t *testing.T) {
	tests := []struct {
		percent float64
		want    int64
	}{
		{0.5, 50},
		{1.0, 100},
		{0.125, 12},
		{0.999, 99},
		{0, 0},
		{-1, 0},
		{150, 10000},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ToleranceBps(tt.percent), "percent=%v", tt.percent)
	}
}
