// Package engine provides the fixed-point equilibrium search and the model
// runner that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/infocontagion/internal/agents"
)

// DefaultPrecision is the per-coordinate tolerance of the fixed-point test.
const DefaultPrecision = 0.01

// stepEpsilon absorbs the error of math.Pow when num_sweeps is a perfect cube.
const stepEpsilon = 1e-9

// StepsPerStateVariable spreads numSweeps evenly over the state variables:
// numSweeps^(1/3).
func StepsPerStateVariable(numSweeps float64) float64 {
	return math.Pow(numSweeps, 1.0/agents.NumStateVars)
}

// Equilibrium is an accepted fixed point: A's trial, B's best response to it,
// and A's best response to B.
type Equilibrium struct {
	Seq       int          `json:"seq"`   // Position among accepted records
	Index     [3]int       `json:"index"` // Grid indices (d1, y, b)
	Trial     agents.Point `json:"trial"`
	ResponseB agents.Point `json:"response_b"`
	ResponseA agents.Point `json:"response_a"`
}

// Evaluation is reported for every grid point visited.
type Evaluation struct {
	Index     [3]int
	Trial     agents.Point
	ResponseB agents.Point
	ResponseA agents.Point
	Accepted  bool
}

// Result is the outcome of one sweep. Equilibria are in sweep order: d1
// outermost, then y, then b.
type Result struct {
	Equilibria []Equilibrium `json:"equilibria"`
	GridPoints int           `json:"grid_points"`
	Evaluated  int           `json:"evaluated"`
	Truncated  bool          `json:"truncated"` // Budget or context ended the sweep early
	Elapsed    time.Duration `json:"elapsed"`
}

// Found reports whether at least one equilibrium was accepted.
func (r *Result) Found() bool {
	return r != nil && len(r.Equilibria) > 0
}

// Search sweeps agent A's domain looking for mutual best responses.
type Search struct {
	Steps          float64 // Steps per state variable
	Precision      float64 // Fixed-point tolerance
	Workers        int     // Goroutines sharing the outer d1 loop
	MaxEvaluations int     // 0 = unlimited

	// Hooks. With more than one worker OnEvaluate runs under a lock in
	// completion order; OnEquilibrium always runs in sweep order.
	OnEvaluate    func(Evaluation)
	OnEquilibrium func(Equilibrium)
}

// NewSearch creates a sequential search with the default precision.
func NewSearch(steps float64) *Search {
	return &Search{
		Steps:     steps,
		Precision: DefaultPrecision,
		Workers:   1,
	}
}

// axis is the lattice along one state variable.
type axis struct {
	lower, upper float64
	steps, step  float64
	n            int
}

func newAxis(b agents.Bounds, steps float64) axis {
	if b.Width() == 0 || steps <= 0 {
		return axis{lower: b.Lower, upper: b.Upper, n: 1}
	}
	return axis{
		lower: b.Lower,
		upper: b.Upper,
		steps: steps,
		step:  b.Width() / steps,
		n:     int(math.Floor(steps+stepEpsilon)) + 1,
	}
}

func (a axis) value(i int) float64 {
	if a.n > 1 && math.Abs(float64(i)-a.steps) < stepEpsilon {
		return a.upper
	}
	return a.lower + float64(i)*a.step
}

type grid [agents.NumStateVars]axis

func newGrid(d agents.Domain, steps float64) grid {
	var g grid
	for i, b := range d {
		g[i] = newAxis(b, steps)
	}
	return g
}

func (g grid) size() int {
	return g[agents.D1].n * g[agents.Y].n * g[agents.B].n
}

// flat maps grid indices to their position in sweep order.
func (g grid) flat(i, j, k int) int {
	return (i*g[agents.Y].n+j)*g[agents.B].n + k
}

// Compute runs the sweep. A nil error with no equilibria means no fixed
// point exists on the grid. On error the returned Result still holds what
// was collected before the failure.
func (s *Search) Compute(ctx context.Context, a, b *agents.Agent) (*Result, error) {
	if a.Oracle == nil || b.Oracle == nil {
		return nil, ErrNoOracle
	}
	if err := a.Domain.Validate(); err != nil {
		return nil, err
	}

	precision := s.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	g := newGrid(a.Domain, s.Steps)
	limit := g.size()
	res := &Result{GridPoints: limit}
	if s.MaxEvaluations > 0 && s.MaxEvaluations < limit {
		limit = s.MaxEvaluations
		res.Truncated = true
	}

	slog.Info("equilibrium search started",
		"agent_a", a.ID,
		"agent_b", b.ID,
		"steps", fmt.Sprintf("%.4f", s.Steps),
		"grid_points", humanize.Comma(int64(res.GridPoints)),
		"budget", humanize.Comma(int64(limit)),
		"workers", workers,
	)
	start := time.Now()

	sw := &sweeper{search: s, grid: g, limit: limit, precision: precision}
	var err error
	if workers == 1 {
		err = sw.sequential(ctx, a, b, res)
	} else {
		err = sw.parallel(ctx, a, b, workers, res)
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Truncated = true
		return res, err
	}

	slog.Info("equilibrium search finished",
		"evaluated", humanize.Comma(int64(res.Evaluated)),
		"equilibria", len(res.Equilibria),
		"truncated", res.Truncated,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

type sweeper struct {
	search    *Search
	grid      grid
	limit     int
	precision float64

	mu sync.Mutex // serializes OnEvaluate across workers
}

// row holds the outcome of one d1 slice.
type row struct {
	evaluated  int
	equilibria []Equilibrium
}

func (sw *sweeper) sequential(ctx context.Context, a, b *agents.Agent, res *Result) error {
	for i := 0; i < sw.grid[agents.D1].n; i++ {
		r, err := sw.sweepRow(ctx, a, b, i)
		first := len(res.Equilibria)
		sw.merge(res, r)
		for _, e := range res.Equilibria[first:] {
			sw.emit(e)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (sw *sweeper) parallel(ctx context.Context, a, b *agents.Agent, workers int, res *Result) error {
	rows := make([]row, sw.grid[agents.D1].n)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range rows {
		eg.Go(func() error {
			// Each slice mutates its own copies of the agents.
			r, err := sw.sweepRow(egCtx, a.Clone(), b.Clone(), i)
			rows[i] = r
			return err
		})
	}
	err := eg.Wait()

	for _, r := range rows {
		sw.merge(res, r)
	}
	for _, e := range res.Equilibria {
		sw.emit(e)
	}
	return err
}

func (sw *sweeper) merge(res *Result, r row) {
	res.Evaluated += r.evaluated
	for _, e := range r.equilibria {
		e.Seq = len(res.Equilibria)
		res.Equilibria = append(res.Equilibria, e)
	}
}

func (sw *sweeper) emit(e Equilibrium) {
	slog.Debug("equilibrium accepted", "seq", e.Seq, "trial", e.Trial.String(), "response_b", e.ResponseB.String())
	if sw.search.OnEquilibrium != nil {
		sw.search.OnEquilibrium(e)
	}
}

// sweepRow visits every (y, b) point for d1 index i.
func (sw *sweeper) sweepRow(ctx context.Context, a, b *agents.Agent, i int) (row, error) {
	var r row
	g := sw.grid
	for j := 0; j < g[agents.Y].n; j++ {
		for k := 0; k < g[agents.B].n; k++ {
			if g.flat(i, j, k) >= sw.limit {
				return r, nil
			}
			if err := ctx.Err(); err != nil {
				return r, err
			}

			trial := agents.NewPoint(g[agents.D1].value(i), g[agents.Y].value(j), g[agents.B].value(k))
			ev, err := sw.evaluate(ctx, a, b, [3]int{i, j, k}, trial)
			if err != nil {
				return r, err
			}
			r.evaluated++

			if sw.search.OnEvaluate != nil {
				sw.mu.Lock()
				sw.search.OnEvaluate(ev)
				sw.mu.Unlock()
			}
			if !ev.Accepted {
				continue
			}

			r.equilibria = append(r.equilibria, Equilibrium{
				Index:     ev.Index,
				Trial:     ev.Trial,
				ResponseB: ev.ResponseB,
				ResponseA: ev.ResponseA,
			})
		}
	}
	return r, nil
}

// evaluate runs one best-response round trip from trial.
func (sw *sweeper) evaluate(ctx context.Context, a, b *agents.Agent, idx [3]int, trial agents.Point) (Evaluation, error) {
	a.SetPoint(trial)

	retB, err := b.Oracle.BestResponse(ctx, trial)
	if err != nil {
		return Evaluation{}, fmt.Errorf("agent %s best response to %s: %w", b.ID, trial, err)
	}
	if err := agents.ValidateResponse(retB); err != nil {
		return Evaluation{}, fmt.Errorf("agent %s best response to %s: %w", b.ID, trial, err)
	}
	b.SetPoint(retB)

	retA, err := a.Oracle.BestResponse(ctx, retB)
	if err != nil {
		return Evaluation{}, fmt.Errorf("agent %s best response to %s: %w", a.ID, retB, err)
	}
	if err := agents.ValidateResponse(retA); err != nil {
		return Evaluation{}, fmt.Errorf("agent %s best response to %s: %w", a.ID, retB, err)
	}

	return Evaluation{
		Index:     idx,
		Trial:     trial,
		ResponseB: retB,
		ResponseA: retA,
		Accepted:  retA.Within(trial, sw.precision),
	}, nil
}
