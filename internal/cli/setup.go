package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/cosmo"
	"github.com/gwpop/gwbsim/internal/grid"
	"github.com/gwpop/gwbsim/internal/sfh"
)

// defaultAgeSamples is the resolution of a synthesized age table.
const defaultAgeSamples = 1000

// pipeline holds the assembled read-only components of a run: cosmology, age
// table, both grids, and the representative star-formation model.
type pipeline struct {
	cfg   config.Run
	model cosmo.Model
	ages  *cosmo.AgeInterpolator
	fgrid *grid.FrequencyGrid
	igrid *grid.IntegrationGrid
	rep   *sfh.Representative
}

// buildPipeline assembles everything that is fixed before the population is
// loaded. Failures here are configuration problems and fatal.
func buildPipeline(cfg config.Run) (*pipeline, error) {
	model := cosmo.Planck18()

	var (
		ages *cosmo.AgeInterpolator
		err  error
	)
	if cfg.AgeTable != "" {
		f, err := os.Open(cfg.AgeTable)
		if err != nil {
			return nil, fmt.Errorf("open age table: %w", err)
		}
		ages, err = cosmo.LoadAgeTable(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		slog.Debug("age table loaded", "path", cfg.AgeTable)
	} else {
		ages, err = cosmo.GenerateAgeTable(model, cfg.MaxZ, defaultAgeSamples)
		if err != nil {
			return nil, err
		}
		slog.Debug("age table synthesized", "max_z", cfg.MaxZ, "samples", defaultAgeSamples)
	}

	fgrid, err := grid.NewFrequencyGrid(cfg.LogFLow, cfg.LogFHigh, cfg.FrequencyBins)
	if err != nil {
		return nil, err
	}

	var igrid *grid.IntegrationGrid
	switch cfg.Mode {
	case config.ModeRedshift:
		igrid, err = grid.NewRedshiftGrid(model, cfg.MaxZ, cfg.IntegrationBins)
	case config.ModeTime:
		igrid, err = grid.NewTimeGrid(model, ages, cfg.MaxZ, cfg.IntegrationBins)
	default:
		err = &config.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if err != nil {
		return nil, err
	}

	sfModel, err := sfh.FromConfig(cfg.SFH)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:   cfg,
		model: model,
		ages:  ages,
		fgrid: fgrid,
		igrid: igrid,
		rep:   sfh.NewRepresentative(sfModel, ages, cfg.MaxZ),
	}, nil
}

// setupLogging installs the process-wide text logger at the level implied by
// the verbose flag.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
