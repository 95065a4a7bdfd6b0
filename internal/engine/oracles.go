package engine

import (
	"fmt"

	"github.com/talgya/infocontagion/internal/agents"
	"github.com/talgya/infocontagion/internal/config"
)

// OracleFactoryFor returns the factory for the oracle kind named in cfg.
// Noise oracles get a distinct seed per agent.
func OracleFactoryFor(cfg *config.Config) agents.OracleFactory {
	oc := cfg.Oracle
	s := cfg.Structural()

	return func(id agents.AgentID, params agents.Params, domain agents.Domain) (agents.BestResponder, error) {
		switch oc.Kind {
		case config.OracleIdentity:
			return agents.IdentityOracle{}, nil
		case config.OracleConstant:
			return agents.ConstantOracle{Point: agents.Point(oc.Point)}, nil
		case config.OracleNoise:
			return agents.NewNoiseOracle(oc.Seed+seedOffset(id), domain), nil
		case config.OracleGrid:
			return agents.NewGridOracle(params, domain, s, oc.Steps), nil
		default:
			return nil, fmt.Errorf("%w: unknown oracle %q", config.ErrInvalidConfig, oc.Kind)
		}
	}
}

func seedOffset(id agents.AgentID) int64 {
	var h int64
	for _, c := range id {
		h = h*31 + int64(c)
	}
	return h
}
