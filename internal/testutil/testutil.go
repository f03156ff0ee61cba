// Package testutil provides shared builders for engine and store tests:
// physically consistent population records and fully assembled pipelines
// over small grids.
package testutil

import (
	"testing"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/cosmo"
	"github.com/gwpop/gwbsim/internal/grid"
	"github.com/gwpop/gwbsim/internal/gw"
	"github.com/gwpop/gwbsim/internal/population"
	"github.com/gwpop/gwbsim/internal/sfh"
)

// ageSamples keeps generated test tables cheap but smooth.
const ageSamples = 400

// Record builds a population record whose evolution coefficient and
// coalescence time are derived from the chirp mass, so the closed-form
// invariants hold exactly.
func Record(t *testing.T, t0, nu0, nuMax, chirpMass float64) population.Record {
	t.Helper()
	k := gw.EvolutionCoefficient(chirpMass)
	dtMax, err := gw.TimeToEvolve(2*nu0, 2*nuMax, k)
	if err != nil {
		t.Fatalf("building record: %v", err)
	}
	return population.Record{
		T0:        t0,
		Nu0:       nu0,
		NuMax:     nuMax,
		ChirpMass: chirpMass,
		K:         k,
		DtMax:     dtMax,
	}
}

// Pipeline bundles the fixed components an engine needs.
type Pipeline struct {
	Cfg   config.Run
	Model cosmo.Model
	Ages  *cosmo.AgeInterpolator
	FGrid *grid.FrequencyGrid
	IGrid *grid.IntegrationGrid
	Rep   *sfh.Representative
}

// NewPipeline assembles grids, age table, and the representative
// star-formation model from a validated configuration. Any failure is fatal
// to the test.
func NewPipeline(t *testing.T, cfg config.Run) *Pipeline {
	t.Helper()

	model := cosmo.Planck18()
	ages, err := cosmo.GenerateAgeTable(model, cfg.MaxZ, ageSamples)
	if err != nil {
		t.Fatalf("generating age table: %v", err)
	}

	fgrid, err := grid.NewFrequencyGrid(cfg.LogFLow, cfg.LogFHigh, cfg.FrequencyBins)
	if err != nil {
		t.Fatalf("building frequency grid: %v", err)
	}

	var igrid *grid.IntegrationGrid
	switch cfg.Mode {
	case config.ModeTime:
		igrid, err = grid.NewTimeGrid(model, ages, cfg.MaxZ, cfg.IntegrationBins)
	default:
		igrid, err = grid.NewRedshiftGrid(model, cfg.MaxZ, cfg.IntegrationBins)
	}
	if err != nil {
		t.Fatalf("building integration grid: %v", err)
	}

	sfModel, err := sfh.FromConfig(cfg.SFH)
	if err != nil {
		t.Fatalf("building SFH model: %v", err)
	}

	return &Pipeline{
		Cfg:   cfg,
		Model: model,
		Ages:  ages,
		FGrid: fgrid,
		IGrid: igrid,
		Rep:   sfh.NewRepresentative(sfModel, ages, cfg.MaxZ),
	}
}
