package agents

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveDomain_BUpperBelowCap(t *testing.T) {
	// d1_upper = min(1.0/0.4, 1.5) = 1.5, eta·d1_upper = 0.15.
	d := DeriveDomain(1.0, 0.3, 0.1)

	require.Equal(t, Bounds{Lower: 0.1, Upper: 1.5}, d[D1])
	require.Equal(t, Bounds{Lower: 0, Upper: 1}, d[Y])
	require.InDelta(t, 0.15, d[B].Upper, 1e-12)
	require.Equal(t, 0.0, d[B].Lower)
}

func TestDeriveDomain_BUpperCapped(t *testing.T) {
	// d1_upper = min(1.3/1.3, 1.5) = 1.0, eta·d1_upper = 1.2 > 1.
	d := DeriveDomain(1.3, 0.1, 1.2)

	require.InDelta(t, 1.0, d[D1].Upper, 1e-12)
	require.Equal(t, 1.0, d[B].Upper)
}

func TestDeriveDomain_D1UpperFromRatio(t *testing.T) {
	d := DeriveDomain(0.5, 0.4, 0.1)
	require.InDelta(t, 1.0, d[D1].Upper, 1e-12)
	require.InDelta(t, 0.1, d[B].Upper, 1e-12)
}

func TestDomain_Validate(t *testing.T) {
	d := DeriveDomain(1.0, 0.3, 0.1)
	require.NoError(t, d.Validate())

	d[Y] = Bounds{Lower: 0.8, Upper: 0.2}
	require.ErrorIs(t, d.Validate(), ErrInvalidDomain)

	d[Y] = Bounds{Lower: 0, Upper: math.Inf(1)}
	require.ErrorIs(t, d.Validate(), ErrInvalidDomain)
}

func TestDomain_Clamp(t *testing.T) {
	d := Domain{{0, 1}, {0, 1}, {0, 0.5}}
	require.Equal(t, NewPoint(1, 0, 0.5), d.Clamp(NewPoint(2, -1, 0.7)))
	require.True(t, d.Contains(NewPoint(0.3, 0.3, 0.3)))
	require.False(t, d.Contains(NewPoint(0.3, 0.3, 0.6)))
}

func TestPoint_Within(t *testing.T) {
	p := NewPoint(0.5, 0.5, 0.1)
	require.True(t, p.Within(NewPoint(0.505, 0.495, 0.1), 0.01))
	require.False(t, p.Within(NewPoint(0.5, 0.5, 0.12), 0.01))
	require.False(t, p.Within(NewPoint(0.5, 0.5, 0.1), 0))
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, Params{Rho: 0, Q: 0}.Validate())
	require.NoError(t, Params{Rho: 3, Q: 1}.Validate())
	require.ErrorIs(t, Params{Rho: -0.1, Q: 0.5}.Validate(), ErrInvalidParams)
	require.ErrorIs(t, Params{Rho: 1, Q: 1.5}.Validate(), ErrInvalidParams)
	require.ErrorIs(t, Params{Rho: math.NaN(), Q: 0.5}.Validate(), ErrInvalidParams)
}

func TestNewAgent(t *testing.T) {
	d := DeriveDomain(1.0, 0.3, 0.1)
	a, err := NewAgent("A", Params{Rho: 2, Q: 0.5}, d, IdentityOracle{})
	require.NoError(t, err)
	require.Equal(t, d.Lower(), a.Point)

	_, err = NewAgent("", Params{Rho: 2, Q: 0.5}, d, nil)
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewAgent("B", Params{Rho: -1, Q: 0.5}, d, nil)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestAgent_CloneIsIndependent(t *testing.T) {
	a, err := NewAgent("A", Params{Rho: 2, Q: 0.5}, DeriveDomain(1.0, 0.3, 0.1), IdentityOracle{})
	require.NoError(t, err)

	c := a.Clone()
	c.SetPoint(NewPoint(1, 1, 0.1))
	require.NotEqual(t, a.Point, c.Point)
	require.Equal(t, a.Oracle, c.Oracle)
}

func TestPoint_Accessors(t *testing.T) {
	p := NewPoint(0.9, 0.4, 0.05)
	require.Equal(t, 0.9, p.D1())
	require.Equal(t, 0.4, p.Y())
	require.Equal(t, 0.05, p.B())
}

func TestSpawner_SequentialIDs(t *testing.T) {
	d := DeriveDomain(1.0, 0.3, 0.1)
	calls := 0
	sp := NewSpawner(Params{Rho: 2, Q: 0.5}, d, func(id AgentID, _ Params, _ Domain) (BestResponder, error) {
		calls++
		return IdentityOracle{}, nil
	})

	pop, err := sp.SpawnPopulation(3)
	require.NoError(t, err)
	require.Len(t, pop, 3)
	require.Equal(t, AgentID("0"), pop[0].ID)
	require.Equal(t, AgentID("2"), pop[2].ID)
	require.Equal(t, 3, calls)
}

func TestSpawner_OracleError(t *testing.T) {
	boom := errors.New("boom")
	sp := NewSpawner(Params{Rho: 2, Q: 0.5}, DeriveDomain(1.0, 0.3, 0.1), func(AgentID, Params, Domain) (BestResponder, error) {
		return nil, boom
	})
	_, err := sp.SpawnPopulation(2)
	require.ErrorIs(t, err, boom)
}

func TestBestResponseFunc(t *testing.T) {
	f := BestResponseFunc(func(_ context.Context, p Point) (Point, error) {
		p[D1] += 1
		return p, nil
	})
	got, err := f.BestResponse(context.Background(), NewPoint(0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, NewPoint(1, 0, 0), got)
}
