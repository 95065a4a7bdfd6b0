package engine

import "errors"

var (
	// ErrNoOracle is returned when an agent has no best-response capability.
	ErrNoOracle = errors.New("agent has no best-response oracle")

	// ErrTooFewAgents is returned when fewer than two agents are available.
	ErrTooFewAgents = errors.New("equilibrium search needs two agents")

	// ErrNotRun is returned when results are requested before DoUpdate.
	ErrNotRun = errors.New("equilibrium search has not run")
)
