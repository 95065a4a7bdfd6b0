// Package persistence provides SQLite-based storage for equilibrium runs.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/infocontagion/internal/agents"
	"github.com/talgya/infocontagion/internal/config"
	"github.com/talgya/infocontagion/internal/engine"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		num_sweeps REAL NOT NULL,
		steps REAL NOT NULL,
		precision REAL NOT NULL,
		grid_points INTEGER NOT NULL,
		evaluated INTEGER NOT NULL,
		equilibria INTEGER NOT NULL,
		truncated INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		run_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		rho REAL NOT NULL,
		q REAL NOT NULL,
		domain_json TEXT NOT NULL,
		PRIMARY KEY (run_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS equilibria (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		i_d1 INTEGER NOT NULL,
		i_y INTEGER NOT NULL,
		i_b INTEGER NOT NULL,
		d1_a REAL NOT NULL,
		y_a REAL NOT NULL,
		b_a REAL NOT NULL,
		d1_b REAL NOT NULL,
		y_b REAL NOT NULL,
		b_b REAL NOT NULL,
		d1_ra REAL NOT NULL,
		y_ra REAL NOT NULL,
		b_ra REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one completed (or cut short) equilibrium search.
type Run struct {
	ID        string
	StartedAt time.Time
	Config    *config.Config
	Agents    []*agents.Agent
	Steps     float64
	Result    *engine.Result
}

// NewRun stamps a run with a fresh ID.
func NewRun(cfg *config.Config, population []*agents.Agent, steps float64, res *engine.Result) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    cfg,
		Agents:    population,
		Steps:     steps,
		Result:    res,
	}
}

// RunSummary is a row of the runs table.
type RunSummary struct {
	ID         string  `db:"id" json:"id"`
	StartedAt  int64   `db:"started_at" json:"started_at"`
	NumSweeps  float64 `db:"num_sweeps" json:"num_sweeps"`
	Steps      float64 `db:"steps" json:"steps"`
	Precision  float64 `db:"precision" json:"precision"`
	GridPoints int     `db:"grid_points" json:"grid_points"`
	Evaluated  int     `db:"evaluated" json:"evaluated"`
	Equilibria int     `db:"equilibria" json:"equilibria"`
	Truncated  bool    `db:"truncated" json:"truncated"`
	ElapsedMS  int64   `db:"elapsed_ms" json:"elapsed_ms"`
	ConfigJSON string  `db:"config_json" json:"-"`
}

// Started returns StartedAt as a time.
func (r RunSummary) Started() time.Time {
	return time.UnixMilli(r.StartedAt).UTC()
}

// SaveRun writes the run, its agents and its equilibria in one transaction.
func (db *DB) SaveRun(run Run) error {
	if run.Result == nil {
		return engine.ErrNotRun
	}

	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res := run.Result
	truncated := 0
	if res.Truncated {
		truncated = 1
	}
	_, err = tx.Exec(`INSERT INTO runs
		(id, started_at, num_sweeps, steps, precision, grid_points, evaluated,
		 equilibria, truncated, elapsed_ms, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Config.NumSweeps, run.Steps, run.Config.Precision,
		res.GridPoints, res.Evaluated, len(res.Equilibria), truncated,
		res.Elapsed.Milliseconds(), string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for _, a := range run.Agents {
		domainJSON, err := json.Marshal(a.Domain)
		if err != nil {
			return fmt.Errorf("marshal domain of agent %s: %w", a.ID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO agents (run_id, agent_id, rho, q, domain_json) VALUES (?, ?, ?, ?, ?)",
			run.ID, string(a.ID), a.Params.Rho, a.Params.Q, string(domainJSON),
		)
		if err != nil {
			return fmt.Errorf("insert agent %s: %w", a.ID, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO equilibria
		(run_id, seq, i_d1, i_y, i_b, d1_a, y_a, b_a, d1_b, y_b, b_b, d1_ra, y_ra, b_ra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range res.Equilibria {
		_, err := stmt.Exec(
			run.ID, e.Seq, e.Index[0], e.Index[1], e.Index[2],
			e.Trial[agents.D1], e.Trial[agents.Y], e.Trial[agents.B],
			e.ResponseB[agents.D1], e.ResponseB[agents.Y], e.ResponseB[agents.B],
			e.ResponseA[agents.D1], e.ResponseA[agents.Y], e.ResponseA[agents.B],
		)
		if err != nil {
			return fmt.Errorf("insert equilibrium %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run saved", "id", run.ID, "equilibria", len(res.Equilibria))
	return nil
}

type equilibriumRow struct {
	Seq  int     `db:"seq"`
	ID1  int     `db:"i_d1"`
	IY   int     `db:"i_y"`
	IB   int     `db:"i_b"`
	D1A  float64 `db:"d1_a"`
	YA   float64 `db:"y_a"`
	BA   float64 `db:"b_a"`
	D1B  float64 `db:"d1_b"`
	YB   float64 `db:"y_b"`
	BB   float64 `db:"b_b"`
	D1RA float64 `db:"d1_ra"`
	YRA  float64 `db:"y_ra"`
	BRA  float64 `db:"b_ra"`
}

// LoadEquilibria returns a run's records in sweep order.
func (db *DB) LoadEquilibria(runID string) ([]engine.Equilibrium, error) {
	var rows []equilibriumRow
	err := db.conn.Select(&rows, `SELECT seq, i_d1, i_y, i_b, d1_a, y_a, b_a, d1_b, y_b, b_b, d1_ra, y_ra, b_ra
		FROM equilibria WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load equilibria %s: %w", runID, err)
	}

	out := make([]engine.Equilibrium, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.Equilibrium{
			Seq:       r.Seq,
			Index:     [3]int{r.ID1, r.IY, r.IB},
			Trial:     agents.NewPoint(r.D1A, r.YA, r.BA),
			ResponseB: agents.NewPoint(r.D1B, r.YB, r.BB),
			ResponseA: agents.NewPoint(r.D1RA, r.YRA, r.BRA),
		})
	}
	return out, nil
}

// GetRun returns a run summary by ID.
func (db *DB) GetRun(runID string) (RunSummary, error) {
	var r RunSummary
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", runID)
	return r, err
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}
