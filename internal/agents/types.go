// Package agents provides the two-agent data model, the ancillary economics
// each agent derives from its portfolio choice, and the best-response oracles.
package agents

import (
	"fmt"
	"math"
)

// AgentID is an opaque label, unique within an interacting pair.
type AgentID string

// StateVar indexes one of the three portfolio choice variables.
type StateVar uint8

const (
	D1 StateVar = iota // Early-withdrawal payment promised to depositors
	Y                  // Share of the portfolio held as liquid storage
	B                  // Interbank position
)

// NumStateVars is the number of state variables every agent carries.
const NumStateVars = 3

// StateVarNames lists the variable names in sweep order.
var StateVarNames = [NumStateVars]string{"d1", "y", "b"}

// String returns the short name of the variable.
func (v StateVar) String() string {
	if int(v) < NumStateVars {
		return StateVarNames[v]
	}
	return fmt.Sprintf("StateVar(%d)", uint8(v))
}

// Point is a concrete choice of (d1, y, b).
type Point [NumStateVars]float64

// NewPoint builds a point from its three coordinates.
func NewPoint(d1, y, b float64) Point {
	return Point{d1, y, b}
}

// D1 returns the d1 coordinate.
func (p Point) D1() float64 { return p[D1] }

// Y returns the y coordinate.
func (p Point) Y() float64 { return p[Y] }

// B returns the b coordinate.
func (p Point) B() float64 { return p[B] }

// Finite reports whether every coordinate is a finite number.
func (p Point) Finite() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Within reports whether every coordinate of p lies strictly closer than
// tol to the matching coordinate of q.
func (p Point) Within(q Point, tol float64) bool {
	for i := range p {
		if math.Abs(p[i]-q[i]) >= tol {
			return false
		}
	}
	return true
}

func (p Point) String() string {
	return fmt.Sprintf("(d1=%.4f, y=%.4f, b=%.4f)", p[D1], p[Y], p[B])
}

// Bounds is a closed interval [Lower, Upper].
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Width returns Upper - Lower.
func (b Bounds) Width() float64 {
	return b.Upper - b.Lower
}

// Contains reports whether v lies inside the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Domain holds the search range of each state variable.
type Domain [NumStateVars]Bounds

// Validate checks that every interval is finite and ordered.
func (d Domain) Validate() error {
	for i, b := range d {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) {
			return fmt.Errorf("%w: %s bounds are not finite", ErrInvalidDomain, StateVar(i))
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("%w: %s lower %.4f above upper %.4f", ErrInvalidDomain, StateVar(i), b.Lower, b.Upper)
		}
	}
	return nil
}

// Contains reports whether p lies inside the domain.
func (d Domain) Contains(p Point) bool {
	for i, b := range d {
		if !b.Contains(p[i]) {
			return false
		}
	}
	return true
}

// Clamp projects p onto the domain.
func (d Domain) Clamp(p Point) Point {
	for i, b := range d {
		p[i] = math.Max(b.Lower, math.Min(b.Upper, p[i]))
	}
	return p
}

// Lower returns the point made of every lower bound.
func (d Domain) Lower() Point {
	var p Point
	for i, b := range d {
		p[i] = b.Lower
	}
	return p
}

// Fixed lower bounds of the agent domains.
const (
	D1Lower = 0.1
	YLower  = 0.0
	YUpper  = 1.0
	BLower  = 0.0
	D1Cap   = 1.5
)

// DeriveDomain returns the search domain implied by the model parameters:
//
//	d1 ∈ [0.1, min(RG/(lambda+eta), 1.5)]
//	y  ∈ [0, 1]
//	b  ∈ [0, min(eta·d1_upper, 1)]
func DeriveDomain(rg, lambda, eta float64) Domain {
	d1Upper := math.Min(rg/(lambda+eta), D1Cap)
	bUpper := math.Min(eta*d1Upper, YUpper)
	return Domain{
		D1: {Lower: D1Lower, Upper: d1Upper},
		Y:  {Lower: YLower, Upper: YUpper},
		B:  {Lower: BLower, Upper: bUpper},
	}
}

// Params holds an agent's preference parameters.
type Params struct {
	Rho float64 `json:"rho" yaml:"rho"` // Relative risk aversion, >= 0
	Q   float64 `json:"q" yaml:"q"`     // Probability weight, in [0, 1]
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.Rho) || p.Rho < 0 {
		return fmt.Errorf("%w: rho %v must be >= 0", ErrInvalidParams, p.Rho)
	}
	if math.IsNaN(p.Q) || p.Q < 0 || p.Q > 1 {
		return fmt.Errorf("%w: q %v must lie in [0, 1]", ErrInvalidParams, p.Q)
	}
	return nil
}

// Agent is one side of the interaction. Domain is read when the search grid
// is built; Point is the current trial choice written by the search.
type Agent struct {
	ID     AgentID `json:"id"`
	Params Params  `json:"params"`
	Domain Domain  `json:"domain"`
	Point  Point   `json:"point"`

	// Economics is recomputed from Point by ComputeAncillaryVariables and
	// must not be read before that call.
	Economics *Economics `json:"-"`

	Oracle BestResponder `json:"-"`
}

// NewAgent validates its inputs and returns an agent positioned at the
// lower corner of its domain.
func NewAgent(id AgentID, params Params, domain Domain, oracle BestResponder) (*Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty agent id", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	if err := domain.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	return &Agent{
		ID:     id,
		Params: params,
		Domain: domain,
		Point:  domain.Lower(),
		Oracle: oracle,
	}, nil
}

// SetPoint overwrites the current trial choice and invalidates the
// previously derived economics.
func (a *Agent) SetPoint(p Point) {
	a.Point = p
	a.Economics = nil
}

// Clone returns an independent copy sharing the oracle.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Economics = nil
	return &c
}

func (a *Agent) String() string {
	return fmt.Sprintf("agent %s rho=%.3f q=%.3f at %s", a.ID, a.Params.Rho, a.Params.Q, a.Point)
}
