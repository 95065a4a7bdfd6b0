package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/infocontagion/internal/agents"
	"github.com/talgya/infocontagion/internal/config"
	"github.com/talgya/infocontagion/internal/engine"
)

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("0.9, 0.4,0.05")
	require.NoError(t, err)
	require.Equal(t, agents.NewPoint(0.9, 0.4, 0.05), p)

	_, err = parsePoint("0.9,0.4")
	require.Error(t, err)
	_, err = parsePoint("0.9,x,0.1")
	require.Error(t, err)
}

func sampleEquilibria() []engine.Equilibrium {
	p := agents.NewPoint(0.5, 0.25, 0)
	return []engine.Equilibrium{{Seq: 3, Index: [3]int{1, 1, 0}, Trial: p, ResponseB: p, ResponseA: p}}
}

func TestPrintEquilibria_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEquilibria(&buf, sampleEquilibria(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "seq,d1_a,y_a,b_a,d1_b,y_b,b_b,d1_ra,y_ra,b_ra", lines[0])
	require.Equal(t, "3,0.5,0.25,0,0.5,0.25,0,0.5,0.25,0", lines[1])
}

func TestPrintEquilibria_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEquilibria(&buf, nil, "json"))

	var out []engine.Equilibrium
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestPrintEquilibria_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEquilibria(&buf, sampleEquilibria(), "table"))
	require.Contains(t, buf.String(), "SEQ")
	require.Contains(t, buf.String(), "0.2500")

	require.Error(t, printEquilibria(&buf, nil, "xml"))
}

func TestRunOnce_ReportsEmptyResultOnErrorWriter(t *testing.T) {
	cfg := config.Default()
	cfg.NumSweeps = 8
	cfg.Oracle = config.OracleConfig{Kind: config.OracleConstant}

	var out, errOut bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cfg, "csv", false, &out, &errOut))
	require.Equal(t, "seq,d1_a,y_a,b_a,d1_b,y_b,b_b,d1_ra,y_ra,b_ra\n", out.String())
	require.Contains(t, errOut.String(), "No equilibrium among 27 evaluated grid points.")
}

func TestLoadConfig_ReturnsError(t *testing.T) {
	prev := cfgPath
	t.Cleanup(func() { cfgPath = prev })

	cfgPath = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := loadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "absent.yaml")
}
