// Ancillary economics: consumption and utility under each shock scenario,
// and the run and default thresholds derived from them.
package agents

import (
	"math"

	"github.com/talgya/infocontagion/internal/utility"
)

// Structural holds the model-level parameters shared by both agents.
type Structural struct {
	R      float64 `json:"R" yaml:"R"`           // Long-asset return in the good state
	Beta   float64 `json:"beta" yaml:"beta"`     // Liquidation value of the long asset
	Lambda float64 `json:"lambda" yaml:"lambda"` // Mean liquidity-shock intensity
	Phi    float64 `json:"phi" yaml:"phi"`       // Interbank repayment factor
	Eta    float64 `json:"eta" yaml:"eta"`       // Spread of the aggregate liquidity shock
}

// LambdaH returns the high aggregate liquidity-shock intensity.
func (s Structural) LambdaH() float64 { return s.Lambda + s.Eta }

// LambdaL returns the low aggregate liquidity-shock intensity.
func (s Structural) LambdaL() float64 { return s.Lambda - s.Eta }

// Threshold upper bounds.
const (
	ThetaMax   = 0.5
	ThetaCEMax = 1.0
)

// Economics holds every quantity derived from one (d1, y, b) choice.
// Prefixes: C is consumption, U its utility, D a payout to early withdrawers.
type Economics struct {
	// Autarky.
	C1A, C2AB, C2AG float64
	U1A, U2AB, U2AG float64
	ThetaA          float64

	// Competitive insurance.
	DCE, C2Gce, C2Bce  float64
	UDce, U2Gce, U2Bce float64
	ThetaCE            float64

	// Region H: high liquidity shock.
	DH, CHB, CHG       float64
	UHB, UHG, UDH, UD1 float64
	ThetaH             float64

	// Region L: low liquidity shock, with (D) and without (N) counterpart default.
	DLN, DLD                 float64
	CLGN, CLGD, CLBN, CLBD   float64
	ULGN, ULGD, ULBN, ULBD   float64
	UDLN, UDLD               float64
	ThetaL, ThetaLN, ThetaLD float64

	// Pure common shock.
	DC, CGc, CBc  float64
	UDc, UGc, UBc float64
	Theta         float64
}

// Thresholds returns the threshold variables keyed by name.
func (e *Economics) Thresholds() map[string]float64 {
	return map[string]float64{
		"theta":    e.Theta,
		"theta_A":  e.ThetaA,
		"theta_CE": e.ThetaCE,
		"theta_H":  e.ThetaH,
		"theta_L":  e.ThetaL,
		"theta_LN": e.ThetaLN,
		"theta_LD": e.ThetaLD,
	}
}

// ComputeAncillaryVariables derives the agent's economics from its current
// Point, stores the result on the agent and returns it. Domain, Point and
// Params are left untouched.
func (a *Agent) ComputeAncillaryVariables(s Structural) *Economics {
	e := ComputeEconomics(a.Point, a.Params, s)
	a.Economics = e
	return e
}

// ComputeEconomics derives the ancillary variables for point p.
func ComputeEconomics(p Point, params Params, s Structural) *Economics {
	d1, y, b := p.D1(), p.Y(), p.B()
	R, beta, lamb, phi := s.R, s.Beta, s.Lambda, s.Phi
	u := func(c float64) float64 { return utility.CRRA(c, params.Rho) }

	e := &Economics{}

	// Autarky and competitive equilibrium.
	e.C1A = y + (1-y)*beta
	e.C2AB = y
	e.C2AG = y + (1-y)*R
	e.U1A = u(e.C1A)
	e.U2AB = u(e.C2AB)
	e.U2AG = u(e.C2AG)
	e.ThetaA = threshold(e.U1A-e.U2AB, e.U2AG-e.U2AB, ThetaMax)

	e.DCE = y + (1-y)*beta
	e.C2Gce = (y - lamb*d1 + (1-y)*R) / (1 - lamb)
	e.C2Bce = (y - lamb*d1) / (1 - lamb)
	e.UDce = u(e.DCE)
	e.U2Gce = u(e.C2Gce)
	e.U2Bce = u(e.C2Bce)
	e.ThetaCE = threshold(e.UDce-e.U2Bce, e.U2Gce-e.U2Bce, ThetaCEMax)

	// Region H.
	lH, lL := s.LambdaH(), s.LambdaL()

	e.DH = y + beta*(1-y) + b
	e.CHB = (y - lH*d1 - (phi-1)*b) / (1 - lH)
	e.CHG = (R*(1-y) + y - lH*d1 - (phi-1)*b) / (1 - lH)
	e.UHB = u(e.CHB)
	e.UHG = u(e.CHG)
	e.UDH = u(e.DH)
	e.UD1 = u(d1)

	// Region L.
	e.DLN = y + beta*(1-y) + b*(beta*phi-1)
	e.DLD = y + beta*(1-y) - b
	e.CLGN = (R*(1-y) + y - lL*d1 + (phi-1)*b) / (1 - lL)
	e.CLGD = (R*(1-y) + y - lL*d1 - b) / (1 - lL)
	e.CLBN = (y - lL*d1 + (phi-1)*b) / (1 - lL)
	e.CLBD = (y - lL*d1 - b) / (1 - lL)
	e.ULGN = u(e.CLGN)
	e.ULGD = u(e.CLGD)
	e.ULBN = u(e.CLBN)
	e.ULBD = u(e.CLBD)
	e.UDLN = u(e.DLN)
	e.UDLD = u(e.DLD)

	e.ThetaH = threshold(e.UDH-e.UHB, e.UHG-e.UHB, ThetaMax)
	e.ThetaL = e.mixedThreshold(params.Q * e.ThetaH)
	e.ThetaLN = threshold(e.UDLN-e.ULBN, e.ULGN-e.ULBN, ThetaMax)
	e.ThetaLD = e.mixedThreshold(params.Q)

	// Pure common shock.
	e.DC = y + (1-y)*beta
	e.CGc = ((1-y)*R + y - lamb*d1) / (1 - lamb)
	e.CBc = (y - lamb*d1) / (1 - lamb)
	e.UDc = u(e.DC)
	e.UGc = u(e.CGc)
	e.UBc = u(e.CBc)
	e.Theta = threshold(e.UDc-e.UBc, e.UGc-e.UBc, ThetaMax)

	return e
}

// mixedThreshold weights the default (D) and no-default (N) region-L
// scenarios by w and 1-w respectively.
func (e *Economics) mixedThreshold(w float64) float64 {
	num := w*(e.UDLD-e.ULBD) + (1-w)*(e.UDLN-e.ULBN)
	den := w*(e.ULGD-e.ULBD) + (1-w)*(e.ULGN-e.ULBN)
	return threshold(num, den, ThetaMax)
}

// threshold returns num/den clamped to [0, hi]. A zero denominator or a
// non-finite ratio yields 0.
func threshold(num, den, hi float64) float64 {
	v := 0.0
	if den != 0 {
		v = num / den
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
	}
	if v < 0 {
		v = 0
	}
	if v > hi {
		v = hi
	}
	return v
}
