// Package config loads and validates the model configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/infocontagion/internal/agents"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError names the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Oracle kinds.
const (
	OracleIdentity = "identity"
	OracleConstant = "constant"
	OracleNoise    = "noise"
	OracleGrid     = "grid"
)

// OracleConfig selects the best-response capability given to every agent.
type OracleConfig struct {
	Kind  string     `yaml:"kind" json:"kind"`
	Steps int        `yaml:"steps" json:"steps"` // Lattice steps per variable (grid)
	Seed  int64      `yaml:"seed" json:"seed"`   // Noise seed (noise)
	Point [3]float64 `yaml:"point" json:"point"` // Fixed answer (constant)
}

// Config holds the model parameters and search settings.
type Config struct {
	NumAgents int      `yaml:"num_agents" json:"num_agents"`
	Rho       float64  `yaml:"rho" json:"rho"`
	Q         float64  `yaml:"q" json:"q"`
	RG        float64  `yaml:"RG" json:"RG"`
	R         *float64 `yaml:"R,omitempty" json:"R,omitempty"` // Unset means RG
	Beta      float64  `yaml:"beta" json:"beta"`
	Lambda    float64  `yaml:"lambda" json:"lambda"`
	Eta       float64  `yaml:"eta" json:"eta"`
	Phi       float64  `yaml:"phi" json:"phi"`

	NumSweeps      float64       `yaml:"num_sweeps" json:"num_sweeps"`
	Precision      float64       `yaml:"precision" json:"precision"`
	Workers        int           `yaml:"workers" json:"workers"`
	MaxEvaluations int           `yaml:"max_evaluations" json:"max_evaluations"` // 0 = unlimited
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`                 // 0 = none

	Oracle OracleConfig `yaml:"oracle" json:"oracle"`
}

// Default returns a configuration that validates as-is.
func Default() *Config {
	return &Config{
		NumAgents: 2,
		Rho:       2.0,
		Q:         0.5,
		RG:        1.5,
		Beta:      0.5,
		Lambda:    0.3,
		Eta:       0.1,
		Phi:       1.0,
		NumSweeps: 27,
		Precision: 0.01,
		Workers:   1,
		Oracle:    OracleConfig{Kind: OracleGrid, Steps: 4},
	}
}

// Load reads a YAML file on top of Default, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overrides optionally replaces loaded values. A nil pointer keeps the
// loaded value.
type Overrides struct {
	NumSweeps      *float64
	Workers        *int
	MaxEvaluations *int
	Timeout        *time.Duration
	OracleKind     *string
}

// Apply writes the non-nil overrides into cfg and revalidates it.
func (o Overrides) Apply(cfg *Config) error {
	if o.NumSweeps != nil {
		cfg.NumSweeps = *o.NumSweeps
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if o.MaxEvaluations != nil {
		cfg.MaxEvaluations = *o.MaxEvaluations
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.OracleKind != nil {
		cfg.Oracle.Kind = *o.OracleKind
	}
	return cfg.Validate()
}

func (c *Config) applyEnv() error {
	floats := map[string]*float64{
		"INFOCONTAGION_RHO":        &c.Rho,
		"INFOCONTAGION_RG":         &c.RG,
		"INFOCONTAGION_LAMBDA":     &c.Lambda,
		"INFOCONTAGION_ETA":        &c.Eta,
		"INFOCONTAGION_NUM_SWEEPS": &c.NumSweeps,
	}
	for key, dst := range floats {
		s := os.Getenv(key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, s)
		}
		*dst = v
	}

	if s := os.Getenv("INFOCONTAGION_WORKERS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: INFOCONTAGION_WORKERS=%q is not an integer", ErrInvalidConfig, s)
		}
		c.Workers = v
	}
	return nil
}

// Validate rejects configurations the search cannot start from.
func (c *Config) Validate() error {
	if c.NumAgents < 2 {
		return invalid("num_agents", "need at least 2 agents, got %d", c.NumAgents)
	}
	if bad(c.Rho) || c.Rho < 0 {
		return invalid("rho", "must be >= 0, got %v", c.Rho)
	}
	if bad(c.Q) || c.Q < 0 || c.Q > 1 {
		return invalid("q", "must lie in [0, 1], got %v", c.Q)
	}
	if bad(c.RG) || c.RG <= 0 {
		return invalid("RG", "must be > 0, got %v", c.RG)
	}
	if c.R != nil && (bad(*c.R) || *c.R < 0) {
		return invalid("R", "must be >= 0, got %v", *c.R)
	}
	if bad(c.Beta) || c.Beta < 0 || c.Beta > 1 {
		return invalid("beta", "must lie in [0, 1], got %v", c.Beta)
	}
	if bad(c.Eta) || c.Eta < 0 {
		return invalid("eta", "must be >= 0, got %v", c.Eta)
	}
	// lambda±eta outside [0, 1) degrades inside the economics, not here.
	if bad(c.Lambda) || c.Lambda+c.Eta <= 0 {
		return invalid("lambda", "lambda+eta must be positive to bound d1, got lambda=%v eta=%v", c.Lambda, c.Eta)
	}
	if bad(c.Phi) || c.Phi < 0 {
		return invalid("phi", "must be >= 0, got %v", c.Phi)
	}
	if bad(c.NumSweeps) || c.NumSweeps < 1 {
		return invalid("num_sweeps", "must be >= 1, got %v", c.NumSweeps)
	}
	if bad(c.Precision) || c.Precision <= 0 {
		return invalid("precision", "must be > 0, got %v", c.Precision)
	}
	if c.Workers < 1 {
		return invalid("workers", "must be >= 1, got %d", c.Workers)
	}
	if c.MaxEvaluations < 0 {
		return invalid("max_evaluations", "must be >= 0, got %d", c.MaxEvaluations)
	}
	if c.Timeout < 0 {
		return invalid("timeout", "must be >= 0, got %s", c.Timeout)
	}

	switch c.Oracle.Kind {
	case OracleIdentity, OracleConstant, OracleNoise:
	case OracleGrid:
		if c.Oracle.Steps < 1 {
			return invalid("oracle.steps", "must be >= 1, got %d", c.Oracle.Steps)
		}
	default:
		return invalid("oracle.kind", "unknown oracle %q", c.Oracle.Kind)
	}
	return nil
}

// Structural returns the parameters shared by the agents' economics. An
// unset R falls back to RG; an explicit R of 0 is kept.
func (c *Config) Structural() agents.Structural {
	r := c.RG
	if c.R != nil {
		r = *c.R
	}
	return agents.Structural{R: r, Beta: c.Beta, Lambda: c.Lambda, Phi: c.Phi, Eta: c.Eta}
}

// AgentParams returns the preference parameters every agent starts with.
func (c *Config) AgentParams() agents.Params {
	return agents.Params{Rho: c.Rho, Q: c.Q}
}

// Domain returns the search domain derived from RG, lambda and eta.
func (c *Config) Domain() agents.Domain {
	return agents.DeriveDomain(c.RG, c.Lambda, c.Eta)
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
