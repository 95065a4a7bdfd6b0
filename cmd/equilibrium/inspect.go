package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/infocontagion/internal/agents"
	"github.com/talgya/infocontagion/internal/engine"
	"github.com/talgya/infocontagion/internal/persistence"
)

func boundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bounds",
		Short: "Print the search domain and grid derived from the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := cfg.Domain()
			steps := engine.StepsPerStateVariable(cfg.NumSweeps)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VAR\tLOWER\tUPPER\tWIDTH")
			for v := agents.StateVar(0); v < agents.NumStateVars; v++ {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n", v, d[v].Lower, d[v].Upper, d[v].Width())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nsteps per variable: %.4f (num_sweeps %s)\n",
				steps, humanize.Ftoa(cfg.NumSweeps))
			return nil
		},
	}
}

func economicsCmd() *cobra.Command {
	var (
		point  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "economics",
		Short: "Print the ancillary variables of one portfolio choice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := parsePoint(point)
			if err != nil {
				return err
			}

			model := engine.NewModel(cfg, nil)
			if err := model.InitializeAgents(); err != nil {
				return err
			}
			e, err := model.Economics(0, p)
			if err != nil {
				return err
			}
			if !cfg.Domain().Contains(p) {
				slog.Warn("point lies outside the search domain", "point", p.String())
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(e)
			}

			th := e.Thresholds()
			names := make([]string, 0, len(th))
			for k := range th {
				names = append(names, k)
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "point\t%s\n", p)
			fmt.Fprintf(tw, "D_H / D_LN / D_LD\t%.4f / %.4f / %.4f\n", e.DH, e.DLN, e.DLD)
			fmt.Fprintf(tw, "D_A / D_CE / D_c\t%.4f / %.4f / %.4f\n", e.C1A, e.DCE, e.DC)
			for _, k := range names {
				fmt.Fprintf(tw, "%s\t%.4f\n", k, th[k])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&point, "point", "p", "", "portfolio choice as d1,y,b")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output every variable as JSON")
	cmd.MarkFlagRequired("point")
	return cmd
}

func parsePoint(s string) (agents.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != agents.NumStateVars {
		return agents.Point{}, fmt.Errorf("point %q: want d1,y,b", s)
	}
	var p agents.Point
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return agents.Point{}, fmt.Errorf("parse %s: %w", agents.StateVar(i), err)
		}
		p[i] = v
	}
	return p, nil
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.RecentRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No runs stored.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSWEEPS\tEVALUATED\tEQUILIBRIA\tTRUNCATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
					r.ID, humanize.Time(r.Started()), humanize.Ftoa(r.NumSweeps),
					humanize.Comma(int64(r.Evaluated)), r.Equilibria, r.Truncated)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func showCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored run's equilibria (defaults to the last run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			var id string
			if len(args) == 1 {
				id = args[0]
			} else if id, err = db.GetMeta("last_run"); err != nil {
				return fmt.Errorf("no last run recorded: %w", err)
			}

			summary, err := db.GetRun(id)
			if err != nil {
				return fmt.Errorf("get run %s: %w", id, err)
			}
			eqs, err := db.LoadEquilibria(id)
			if err != nil {
				return err
			}
			slog.Info("run loaded",
				"id", summary.ID,
				"started", humanize.Time(summary.Started()),
				"evaluated", humanize.Comma(int64(summary.Evaluated)),
				"truncated", summary.Truncated,
			)
			return printEquilibria(cmd.OutOrStdout(), eqs, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or csv")
	return cmd
}
