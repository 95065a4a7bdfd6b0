// Best-response oracles. The equilibrium search treats these as black boxes
// mapping a counterpart's choice to this agent's optimal choice.
package agents

import (
	"context"
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// BestResponder maps the counterpart's point to this agent's optimal point.
// Implementations must be deterministic, and safe for concurrent use when
// the search runs with more than one worker.
type BestResponder interface {
	BestResponse(ctx context.Context, counterpart Point) (Point, error)
}

// BestResponseFunc adapts a plain function to BestResponder.
type BestResponseFunc func(ctx context.Context, counterpart Point) (Point, error)

// BestResponse calls f.
func (f BestResponseFunc) BestResponse(ctx context.Context, counterpart Point) (Point, error) {
	return f(ctx, counterpart)
}

// ValidateResponse rejects points the search cannot make progress with.
func ValidateResponse(p Point) error {
	if !p.Finite() {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, [NumStateVars]float64(p))
	}
	return nil
}

// IdentityOracle answers with the counterpart's own point.
type IdentityOracle struct{}

// BestResponse returns counterpart unchanged.
func (IdentityOracle) BestResponse(_ context.Context, counterpart Point) (Point, error) {
	return counterpart, nil
}

// ConstantOracle answers with the same point regardless of input.
type ConstantOracle struct {
	Point Point
}

// BestResponse returns o.Point.
func (o ConstantOracle) BestResponse(_ context.Context, _ Point) (Point, error) {
	return o.Point, nil
}

// NoiseOracle answers with a deterministic pseudo-random point inside Domain.
// The response field is smooth simplex noise, so nearby inputs get nearby
// answers and the same seed always reproduces the same field.
type NoiseOracle struct {
	Domain    Domain
	Frequency float64
	noise     opensimplex.Noise
}

// NewNoiseOracle creates a noise oracle over domain.
func NewNoiseOracle(seed int64, domain Domain) *NoiseOracle {
	return &NoiseOracle{
		Domain:    domain,
		Frequency: 1.7,
		noise:     opensimplex.NewNormalized(seed),
	}
}

// BestResponse samples one independent noise layer per state variable.
func (o *NoiseOracle) BestResponse(_ context.Context, counterpart Point) (Point, error) {
	var out Point
	f := o.Frequency
	for i, b := range o.Domain {
		// Offset each layer so the three coordinates are decorrelated.
		off := 31.0 * float64(i+1)
		n := o.noise.Eval3(counterpart[D1]*f+off, counterpart[Y]*f-off, counterpart[B]*f+off/2)
		out[i] = b.Lower + n*b.Width()
	}
	return o.Domain.Clamp(out), nil
}

// Objective scores an agent's own economics against its counterpart's.
type Objective func(own, counterpart *Economics, s Structural, params Params) float64

// ExpectedWelfare is the depositor's expected utility. The high and low
// liquidity-shock regions are equally likely; in region L the counterpart
// defaults on the interbank position with probability q·theta_H of the
// counterpart.
func ExpectedWelfare(own, counterpart *Economics, s Structural, params Params) float64 {
	lH, lL := s.LambdaH(), s.LambdaL()

	wH := lH*own.UDH + (1-lH)*((1-own.ThetaH)*own.UHG+own.ThetaH*own.UHB)
	wLN := lL*own.UDLN + (1-lL)*((1-own.ThetaLN)*own.ULGN+own.ThetaLN*own.ULBN)
	wLD := lL*own.UDLD + (1-lL)*((1-own.ThetaL)*own.ULGD+own.ThetaL*own.ULBD)

	pDefault := params.Q * counterpart.ThetaH
	return 0.5*wH + 0.5*(pDefault*wLD+(1-pDefault)*wLN)
}

// GridOracle searches a lattice over its own domain for the point that
// maximizes Objective given the counterpart's point. Ties keep the first
// point in sweep order.
type GridOracle struct {
	Params     Params
	Domain     Domain
	Structural Structural
	Steps      int
	Objective  Objective
}

// NewGridOracle creates a grid oracle scored by ExpectedWelfare.
func NewGridOracle(params Params, domain Domain, s Structural, steps int) *GridOracle {
	return &GridOracle{
		Params:     params,
		Domain:     domain,
		Structural: s,
		Steps:      steps,
		Objective:  ExpectedWelfare,
	}
}

// BestResponse evaluates every grid point of the own domain.
func (o *GridOracle) BestResponse(ctx context.Context, counterpart Point) (Point, error) {
	steps := o.Steps
	if steps < 1 {
		steps = 1
	}
	objective := o.Objective
	if objective == nil {
		objective = ExpectedWelfare
	}

	// The counterpart is assumed to share this agent's preferences.
	cp := ComputeEconomics(counterpart, o.Params, o.Structural)

	best := o.Domain.Lower()
	bestScore := math.Inf(-1)

	var cand Point
	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return Point{}, err
		}
		cand[D1] = latticeValue(o.Domain[D1], i, steps)
		for j := 0; j <= steps; j++ {
			cand[Y] = latticeValue(o.Domain[Y], j, steps)
			for k := 0; k <= steps; k++ {
				cand[B] = latticeValue(o.Domain[B], k, steps)

				score := objective(ComputeEconomics(cand, o.Params, o.Structural), cp, o.Structural, o.Params)
				if score > bestScore {
					best, bestScore = cand, score
				}
			}
		}
	}
	return best, nil
}

func latticeValue(b Bounds, i, steps int) float64 {
	if i == steps {
		return b.Upper
	}
	return b.Lower + float64(i)*b.Width()/float64(steps)
}
