// Agent spawning: builds the interacting population from shared
// preferences and the derived search domain.
package agents

import (
	"fmt"
	"strconv"
)

// OracleFactory supplies the best-response capability for a new agent.
type OracleFactory func(id AgentID, params Params, domain Domain) (BestResponder, error)

// Spawner creates agents with sequential identifiers.
type Spawner struct {
	params  Params
	domain  Domain
	oracles OracleFactory
	nextID  int
}

// NewSpawner creates a spawner; every agent it issues shares params and domain.
func NewSpawner(params Params, domain Domain, oracles OracleFactory) *Spawner {
	return &Spawner{
		params:  params,
		domain:  domain,
		oracles: oracles,
	}
}

// SpawnPopulation creates count agents labelled "0", "1", ...
func (s *Spawner) SpawnPopulation(count int) ([]*Agent, error) {
	population := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		a, err := s.spawnOne()
		if err != nil {
			return nil, err
		}
		population = append(population, a)
	}
	return population, nil
}

func (s *Spawner) spawnOne() (*Agent, error) {
	id := AgentID(strconv.Itoa(s.nextID))
	s.nextID++

	var oracle BestResponder
	if s.oracles != nil {
		var err error
		oracle, err = s.oracles(id, s.params, s.domain)
		if err != nil {
			return nil, fmt.Errorf("oracle for agent %s: %w", id, err)
		}
	}
	return NewAgent(id, s.params, s.domain, oracle)
}
