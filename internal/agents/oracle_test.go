package agents

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateResponse(t *testing.T) {
	require.NoError(t, ValidateResponse(NewPoint(0.1, 0.2, 0.3)))
	require.ErrorIs(t, ValidateResponse(NewPoint(math.NaN(), 0, 0)), ErrMalformedResponse)
	require.ErrorIs(t, ValidateResponse(NewPoint(0, math.Inf(-1), 0)), ErrMalformedResponse)
}

func TestIdentityAndConstantOracles(t *testing.T) {
	ctx := context.Background()
	p := NewPoint(0.4, 0.6, 0.01)

	got, err := IdentityOracle{}.BestResponse(ctx, p)
	require.NoError(t, err)
	require.Equal(t, p, got)

	got, err = ConstantOracle{}.BestResponse(ctx, p)
	require.NoError(t, err)
	require.Equal(t, Point{}, got)
}

func TestNoiseOracle_DeterministicAndInDomain(t *testing.T) {
	ctx := context.Background()
	d := DeriveDomain(1.0, 0.3, 0.1)
	a := NewNoiseOracle(42, d)
	b := NewNoiseOracle(42, d)

	for _, p := range []Point{{0.1, 0, 0}, {0.8, 0.5, 0.07}, {1.5, 1, 0.15}} {
		ra, err := a.BestResponse(ctx, p)
		require.NoError(t, err)
		rb, err := b.BestResponse(ctx, p)
		require.NoError(t, err)

		require.Equal(t, ra, rb)
		require.True(t, d.Contains(ra), "response %v outside domain", ra)
	}
}

func TestGridOracle_StaysOnLatticeAndIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := Structural{R: 1.5, Beta: 0.5, Lambda: 0.3, Phi: 1.1, Eta: 0.1}
	params := Params{Rho: 2, Q: 0.5}
	d := DeriveDomain(1.2, s.Lambda, s.Eta)
	o := NewGridOracle(params, d, s, 4)

	cp := NewPoint(0.8, 0.5, 0.05)
	r1, err := o.BestResponse(ctx, cp)
	require.NoError(t, err)
	r2, err := o.BestResponse(ctx, cp)
	require.NoError(t, err)

	require.Equal(t, r1, r2)
	require.True(t, d.Contains(r1))
	for i, b := range d {
		k := (r1[i] - b.Lower) / b.Width() * 4
		require.InDelta(t, math.Round(k), k, 1e-9, "%s not on lattice", StateVar(i))
	}
}

func TestGridOracle_MaximizesObjective(t *testing.T) {
	d := Domain{{0, 1}, {0, 1}, {0, 1}}
	target := NewPoint(0.5, 0.25, 1)
	o := &GridOracle{
		Params: Params{Rho: 0, Q: 0},
		Domain: d,
		Steps:  4,
		Objective: func(own, _ *Economics, _ Structural, _ Params) float64 {
			// C1A and C2AB reconstruct y; DH - C1A reconstructs b.
			y := own.C2AB
			b := own.DH - own.C1A
			return -math.Abs(y-target[Y]) - math.Abs(b-target[B])
		},
	}

	got, err := o.BestResponse(context.Background(), Point{})
	require.NoError(t, err)
	require.InDelta(t, target[Y], got[Y], 1e-12)
	require.InDelta(t, target[B], got[B], 1e-12)
	// d1 does not affect the score, so the first lattice value wins.
	require.Equal(t, 0.0, got[D1])
}

func TestGridOracle_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewGridOracle(Params{Rho: 2, Q: 0.5}, DeriveDomain(1.0, 0.3, 0.1), Structural{R: 1.5, Beta: 0.5, Lambda: 0.3, Phi: 1, Eta: 0.1}, 3)
	_, err := o.BestResponse(ctx, Point{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExpectedWelfare_PenalizesInfeasibleChoices(t *testing.T) {
	s := Structural{R: 1.5, Beta: 0.5, Lambda: 0.3, Phi: 1.1, Eta: 0.1}
	params := Params{Rho: 2, Q: 0.5}
	cp := ComputeEconomics(NewPoint(0.8, 0.5, 0.05), params, s)

	feasible := ComputeEconomics(NewPoint(0.5, 0.5, 0.02), params, s)
	// Promising more early consumption than liquid holdings can cover drives
	// late consumption negative.
	infeasible := ComputeEconomics(NewPoint(1.5, 0, 0.1), params, s)

	require.Greater(t, ExpectedWelfare(feasible, cp, s, params), ExpectedWelfare(infeasible, cp, s, params))
}
