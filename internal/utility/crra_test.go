package utility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRRA_NegativeConsumptionIsSentinel(t *testing.T) {
	for _, rho := range []float64{0, 0.5, 1, 2, 3.7} {
		for _, c := range []float64{-1e-12, -0.5, -3, -1e9} {
			require.Equal(t, Sentinel, CRRA(c, rho), "c=%v rho=%v", c, rho)
		}
	}
}

func TestCRRA_LinearWhenRhoZero(t *testing.T) {
	for _, c := range []float64{0, 0.25, 1, 17.5} {
		require.Equal(t, c, CRRA(c, 0))
	}
}

func TestCRRA_LogWhenRhoOne(t *testing.T) {
	for _, c := range []float64{0.1, 1, math.E, 42} {
		require.InDelta(t, math.Log(c), CRRA(c, 1), 1e-12)
	}
	require.Equal(t, Sentinel, CRRA(0, 1))
}

func TestCRRA_GeneralCase(t *testing.T) {
	cases := []struct {
		c, rho float64
	}{
		{0.5, 2},
		{2, 2},
		{1.3, 0.5},
		{0.9, 4},
		{3, 1.5},
	}
	for _, tc := range cases {
		want := math.Pow(tc.c, 1-tc.rho) / (1 - tc.rho)
		require.InDelta(t, want, CRRA(tc.c, tc.rho), 1e-12, "c=%v rho=%v", tc.c, tc.rho)
	}
}

func TestCRRA_ZeroConsumption(t *testing.T) {
	// 0^(1-rho) diverges for rho > 1.
	require.Equal(t, Sentinel, CRRA(0, 2))
	require.Equal(t, 0.0, CRRA(0, 0.5))
}

func TestCRRA_NonFiniteConsumption(t *testing.T) {
	require.Equal(t, Sentinel, CRRA(math.NaN(), 2))
	require.Equal(t, Sentinel, CRRA(math.Inf(1), 0.5))
	require.Equal(t, Sentinel, CRRA(math.Inf(-1), 0))
	require.True(t, IsSentinel(CRRA(-1, 2)))
	require.False(t, IsSentinel(CRRA(1, 2)))
}
