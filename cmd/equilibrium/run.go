package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/infocontagion/internal/config"
	"github.com/talgya/infocontagion/internal/engine"
	"github.com/talgya/infocontagion/internal/persistence"
)

func runCmd() *cobra.Command {
	var (
		format  string
		noSave  bool
		sweeps  float64
		workers int
		budget  int
		timeout time.Duration
		oracle  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the equilibrium search once and print accepted records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var ov config.Overrides
			if cmd.Flags().Changed("sweeps") {
				ov.NumSweeps = &sweeps
			}
			if cmd.Flags().Changed("workers") {
				ov.Workers = &workers
			}
			if cmd.Flags().Changed("max-evaluations") {
				ov.MaxEvaluations = &budget
			}
			if cmd.Flags().Changed("timeout") {
				ov.Timeout = &timeout
			}
			if cmd.Flags().Changed("oracle") {
				ov.OracleKind = &oracle
			}
			if err := ov.Apply(cfg); err != nil {
				return fmt.Errorf("apply overrides: %w", err)
			}

			return runOnce(cmd.Context(), cfg, format, !noSave, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or csv")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	cmd.Flags().Float64Var(&sweeps, "sweeps", 0, "override num_sweeps")
	cmd.Flags().IntVar(&workers, "workers", 1, "override worker count")
	cmd.Flags().IntVar(&budget, "max-evaluations", 0, "override evaluation budget (0 = unlimited)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override search deadline")
	cmd.Flags().StringVar(&oracle, "oracle", "", "override oracle kind: identity, constant, noise or grid")
	return cmd
}

func runOnce(ctx context.Context, cfg *config.Config, format string, save bool, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Agents ────────────────────────────────────────────────────────
	model := engine.NewModel(cfg, nil)
	if err := model.InitializeAgents(); err != nil {
		slog.Error("failed to initialize agents", "error", err)
		return err
	}

	// ── Search ────────────────────────────────────────────────────────
	res, searchErr := model.DoUpdate(ctx)
	if searchErr != nil && res == nil {
		slog.Error("equilibrium search failed", "error", searchErr)
		return searchErr
	}
	if searchErr != nil {
		slog.Warn("equilibrium search stopped early",
			"error", searchErr,
			"evaluated", humanize.Comma(int64(res.Evaluated)),
			"collected", len(res.Equilibria),
		)
	}

	// ── Persistence ───────────────────────────────────────────────────
	if save {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err := persistence.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			return err
		}
		defer db.Close()

		run := persistence.NewRun(cfg, model.Agents, model.Steps, res)
		if err := db.SaveRun(run); err != nil {
			slog.Error("save failed", "error", err)
			return err
		}
		if err := db.SaveMeta("last_run", run.ID); err != nil {
			slog.Warn("failed to record last run", "error", err)
		}
	}

	if err := printEquilibria(out, res.Equilibria, format); err != nil {
		return err
	}
	if len(res.Equilibria) == 0 {
		fmt.Fprintf(errOut, "No equilibrium among %s evaluated grid points.\n", humanize.Comma(int64(res.Evaluated)))
	}
	return searchErr
}

func printEquilibria(w io.Writer, eqs []engine.Equilibrium, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if eqs == nil {
			eqs = []engine.Equilibrium{}
		}
		return enc.Encode(eqs)

	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"seq", "d1_a", "y_a", "b_a", "d1_b", "y_b", "b_b", "d1_ra", "y_ra", "b_ra"})
		for _, e := range eqs {
			rec := []string{strconv.Itoa(e.Seq)}
			for _, p := range [][3]float64{e.Trial, e.ResponseB, e.ResponseA} {
				for _, v := range p {
					rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
				}
			}
			cw.Write(rec)
		}
		cw.Flush()
		return cw.Error()

	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tD1_A\tY_A\tB_A\tD1_B\tY_B\tB_B\tD1_RA\tY_RA\tB_RA")
		for _, e := range eqs {
			fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
				e.Seq,
				e.Trial[0], e.Trial[1], e.Trial[2],
				e.ResponseB[0], e.ResponseB[1], e.ResponseB[2],
				e.ResponseA[0], e.ResponseA[1], e.ResponseA[2],
			)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
