// Model ties configuration, agents and the equilibrium search together.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/infocontagion/internal/agents"
	"github.com/talgya/infocontagion/internal/config"
)

// Model holds the agent population and the outcome of the last search.
type Model struct {
	Config *config.Config
	Agents []*agents.Agent
	Search *Search

	// Steps is the per-variable step count of the last DoUpdate.
	Steps float64

	oracles agents.OracleFactory
	result  *Result
}

// NewModel creates a model. A nil factory selects the oracle named in the
// configuration.
func NewModel(cfg *config.Config, oracles agents.OracleFactory) *Model {
	if oracles == nil {
		oracles = OracleFactoryFor(cfg)
	}
	return &Model{
		Config:  cfg,
		Search:  NewSearch(0),
		oracles: oracles,
	}
}

// InitializeAgents builds num_agents agents sharing rho, q and the domain
// derived from RG, lambda and eta.
func (m *Model) InitializeAgents() error {
	if err := m.Config.Validate(); err != nil {
		return err
	}

	domain := m.Config.Domain()
	spawner := agents.NewSpawner(m.Config.AgentParams(), domain, m.oracles)
	population, err := spawner.SpawnPopulation(m.Config.NumAgents)
	if err != nil {
		return fmt.Errorf("initialize agents: %w", err)
	}
	m.Agents = population

	slog.Info("agents initialized",
		"count", len(m.Agents),
		"rho", m.Config.Rho,
		"d1", fmt.Sprintf("[%.4f, %.4f]", domain[agents.D1].Lower, domain[agents.D1].Upper),
		"y", fmt.Sprintf("[%.4f, %.4f]", domain[agents.Y].Lower, domain[agents.Y].Upper),
		"b", fmt.Sprintf("[%.4f, %.4f]", domain[agents.B].Lower, domain[agents.B].Upper),
	)
	return nil
}

// DoUpdate searches for equilibria between the first two agents. Only the
// first agent's domain is swept.
func (m *Model) DoUpdate(ctx context.Context) (*Result, error) {
	if len(m.Agents) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrTooFewAgents, len(m.Agents))
	}
	agentA, agentB := m.Agents[0], m.Agents[1]

	m.Steps = StepsPerStateVariable(m.Config.NumSweeps)
	m.Search.Steps = m.Steps
	m.Search.Precision = m.Config.Precision
	m.Search.Workers = m.Config.Workers
	m.Search.MaxEvaluations = m.Config.MaxEvaluations

	if m.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Config.Timeout)
		defer cancel()
	}

	res, err := m.Search.Compute(ctx, agentA, agentB)
	if res != nil {
		m.result = res
	}
	if err != nil {
		return res, fmt.Errorf("compute equilibrium: %w", err)
	}
	return res, nil
}

// Result returns the outcome of the last DoUpdate. The boolean is false if
// the search has not run yet.
func (m *Model) Result() (*Result, bool) {
	return m.result, m.result != nil
}

// Economics derives the ancillary variables of the agent at index i for the
// given point without moving the agent.
func (m *Model) Economics(i int, p agents.Point) (*agents.Economics, error) {
	if i < 0 || i >= len(m.Agents) {
		return nil, fmt.Errorf("agent index %d out of range [0, %d)", i, len(m.Agents))
	}
	scratch := m.Agents[i].Clone()
	scratch.SetPoint(p)
	return scratch.ComputeAncillaryVariables(m.Config.Structural()), nil
}
