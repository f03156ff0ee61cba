package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwbsim/internal/cosmo"
	"github.com/gwpop/gwbsim/internal/population"
	"github.com/gwpop/gwbsim/internal/store"
)

// writePopulation derives and writes a small extended population table: three
// detached double white dwarfs whose emission drifts through the observed
// window.
func writePopulation(t *testing.T, path string) {
	t.Helper()
	raws := []population.Raw{
		{T0: 100, A: 1, M1: 0.6, M2: 0.6},
		{T0: 250, A: 0.5, M1: 0.8, M2: 0.4},
		{T0: 50, A: 0.8, M1: 0.7, M2: 0.5},
	}
	records := make([]population.Record, len(raws))
	for i, raw := range raws {
		rec, err := population.Derive(raw)
		require.NoError(t, err)
		records[i] = rec
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, population.WriteDerived(f, raws, records))
	require.NoError(t, f.Close())
}

func writeConfig(t *testing.T, dir, popPath string) string {
	t.Helper()
	cfg := fmt.Sprintf(`frequency_bins: 5
log_f_low: -5
log_f_high: -2
integration_bins: 3
max_z: 2
mode: redshift
population_table: %s
sfh:
  variant: constant
workers: 1
`, popPath)
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "population.csv")
	writePopulation(t, popPath)
	cfgPath := writeConfig(t, dir, popPath)
	outPath := filepath.Join(dir, "spectrum.csv")

	out, err := execute(t, "run", "--config", cfgPath, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run complete.")
	assert.Contains(t, out, "3 rows")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6) // header + 5 bins
	assert.Equal(t, []string{"f", "Om"}, rows[0])

	var total float64
	for _, row := range rows[1:] {
		om, err := strconv.ParseFloat(row[1], 64)
		require.NoError(t, err)
		total += om
	}
	assert.Greater(t, total, 0.0, "expected a non-zero accumulated spectrum")
}

func TestRun_JSONSummary(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "population.csv")
	writePopulation(t, popPath)
	cfgPath := writeConfig(t, dir, popPath)

	out, err := execute(t, "--format", "json", "run", "--config", cfgPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data payload: %v", resp.Data)
	assert.EqualValues(t, 3, data["rows_total"])
	passes, ok := data["passes"].([]any)
	require.True(t, ok)
	assert.Len(t, passes, 3)
}

func TestRun_PersistExportAndList(t *testing.T) {
	dir := t.TempDir()
	popPath := filepath.Join(dir, "population.csv")
	writePopulation(t, popPath)
	cfgPath := writeConfig(t, dir, popPath)
	dbPath := filepath.Join(dir, "results.db")

	_, err := execute(t, "run", "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	infos, err := st.Runs(context.Background())
	require.NoError(t, st.Close())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	runID := infos[0].ID
	assert.True(t, infos[0].HasCompleted)
	assert.Equal(t, "merger", infos[0].CompletedPass.String())
	assert.Equal(t, 3, infos[0].RowsTotal)

	// Spectrum export of a stored pass.
	specPath := filepath.Join(dir, "exported.csv")
	_, err = execute(t, "export", "--db", dbPath, "--run", runID, "-o", specPath)
	require.NoError(t, err)
	spec, err := os.ReadFile(specPath)
	require.NoError(t, err)
	assert.Contains(t, string(spec), "f,Om")

	// Breakdown export rebuilds the grids from the stored config snapshot.
	cellsPath := filepath.Join(dir, "cells.csv")
	_, err = execute(t, "export", "--db", dbPath, "--run", runID, "--pass", "bulk", "--breakdown", "-o", cellsPath)
	require.NoError(t, err)
	cells, err := os.ReadFile(cellsPath)
	require.NoError(t, err)
	assert.Contains(t, string(cells), "z,freq_0")

	out, err := execute(t, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "merger")
}

func TestRun_ResumeRequiresDB(t *testing.T) {
	_, err := execute(t, "run", "--config", "whatever.yaml", "--resume", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume requires --db")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreprocess_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.csv")
	raw := "t0,a,m1,m2\n100,1,0.6,0.6\n100,1,0,0.6\n250,0.5,0.8,0.4\n"
	require.NoError(t, os.WriteFile(rawPath, []byte(raw), 0o644))

	outPath := filepath.Join(dir, "population.csv")
	out, err := execute(t, "preprocess", rawPath, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Derived 2 of 3 rows (1 rejected)")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	res, err := population.LoadDerived(f)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Zero(t, res.Rejected)
}

func TestAgeTable_EndToEnd(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "ages.csv")

	out, err := execute(t, "agetable", "--max-z", "2", "--samples", "50", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "50 rows")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	ai, err := cosmo.LoadAgeTable(f)
	require.NoError(t, err)
	z, err := ai.Z(cosmo.Planck18().Age(1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, z, 0.01)
}
