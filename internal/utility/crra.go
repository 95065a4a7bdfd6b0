// Package utility provides the CRRA utility function used to rank consumption
// outcomes, together with the sentinel that stands in for minus infinity.
package utility

import "math"

// Sentinel is the utility assigned to infeasible or undefined consumption.
// It is finite so that utility differences and ratios keep a total order,
// and every comparison in the model uses this same value.
const Sentinel = -1e14

// CRRA returns the constant relative risk aversion utility of consumption c
// for risk aversion rho:
//
//	c < 0      → Sentinel
//	rho == 0   → c
//	rho == 1   → ln(c)            (Sentinel when c == 0)
//	otherwise  → c^(1-rho)/(1-rho) (Sentinel when undefined)
//
// CRRA never panics and always returns a finite value.
func CRRA(c, rho float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return Sentinel
	}

	var u float64
	switch rho {
	case 0:
		u = c
	case 1:
		if c == 0 {
			return Sentinel
		}
		u = math.Log(c)
	default:
		// rho > 1 gives negative utility for c < 1.
		u = math.Pow(c, 1-rho) / (1 - rho)
	}

	if math.IsNaN(u) || math.IsInf(u, 0) {
		return Sentinel
	}
	return u
}

// IsSentinel reports whether u is the infeasible-consumption sentinel.
func IsSentinel(u float64) bool {
	return u == Sentinel
}
