package agents

import "errors"

var (
	// ErrInvalidParams is returned when an agent's preference parameters are out of range.
	ErrInvalidParams = errors.New("invalid agent parameters")

	// ErrInvalidDomain is returned when a state-variable interval is unordered or not finite.
	ErrInvalidDomain = errors.New("invalid agent domain")

	// ErrMalformedResponse is returned when an oracle answers with a non-numeric point.
	ErrMalformedResponse = errors.New("malformed best response")
)
