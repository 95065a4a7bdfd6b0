// Command equilibrium searches for mutual best responses between two
// banking agents over a discretized portfolio space.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/infocontagion/internal/config"
)

var (
	cfgPath  string
	dbPath   string
	logLevel string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "equilibrium",
		Short:         "Two-agent bank-run equilibrium search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "model config file (YAML)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "data/equilibria.db", "SQLite database for results")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	cmd.AddCommand(runCmd())
	cmd.AddCommand(boundsCmd())
	cmd.AddCommand(economicsCmd())
	cmd.AddCommand(runsCmd())
	cmd.AddCommand(showCmd())
	return cmd
}

func setupLogging(level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	// Logs go to stderr so stdout carries only results.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the config named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", cfgPath, err)
	}
	return cfg, nil
}
