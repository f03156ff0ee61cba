package grid

import (
	"fmt"

	"github.com/gwpop/gwbsim/internal/config"
	"github.com/gwpop/gwbsim/internal/cosmo"
)

// Slice is one cell of the outer integration axis. In redshift mode the
// weight is the comoving shell width; in time mode it is the fixed slice
// duration held on the grid.
type Slice struct {
	Index int

	// Z is the redshift at the slice center. In time mode it is derived
	// from the slice's universe age through the age interpolator.
	Z float64

	// ZLow, ZHigh are the slice edges in the native coordinate: redshift in
	// redshift mode, lookback time (Myr) in time mode.
	ZLow, ZHigh float64

	// WidthMpc is the comoving shell width (redshift mode only).
	WidthMpc float64

	// AgeMyr is the age of the universe at the slice center.
	AgeMyr float64

	// ElapsedMyr is the time since the earliest epoch considered (maxZ).
	ElapsedMyr float64

	// ComovingMpc is the comoving distance to the slice center, used by the
	// expected-system-count diagnostic.
	ComovingMpc float64
}

// IntegrationGrid is the outer integration axis of a run.
type IntegrationGrid struct {
	Mode   string // config.ModeRedshift or config.ModeTime
	Slices []Slice

	// DurationMyr is the fixed slice duration (time mode only).
	DurationMyr float64
}

// Len returns the number of slices.
func (g *IntegrationGrid) Len() int { return len(g.Slices) }

// NewRedshiftGrid builds n linearly spaced redshift shells from 0 to maxZ.
// Slice centers interleave between edges on the same linear refinement.
func NewRedshiftGrid(m cosmo.Model, maxZ float64, n int) (*IntegrationGrid, error) {
	if n < 1 {
		return nil, &config.ConfigError{Field: "integration_bins", Reason: fmt.Sprintf("must be >= 1, got %d", n)}
	}
	if maxZ <= 0 {
		return nil, &config.ConfigError{Field: "max_z", Reason: fmt.Sprintf("must be > 0, got %g", maxZ)}
	}

	step := maxZ / float64(2*n)
	lookbackMax := m.LookbackTime(maxZ)
	g := &IntegrationGrid{Mode: config.ModeRedshift, Slices: make([]Slice, n)}

	// Comoving distances at the shell edges; adjacent differences give the
	// shell widths.
	edges := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = m.ComovingDistance(float64(2*i) * step)
	}
	for i := 0; i < n; i++ {
		z := float64(2*i+1) * step
		g.Slices[i] = Slice{
			Index:       i,
			Z:           z,
			ZLow:        float64(2*i) * step,
			ZHigh:       float64(2*i+2) * step,
			WidthMpc:    edges[i+1] - edges[i],
			AgeMyr:      m.Age(z),
			ElapsedMyr:  lookbackMax - m.LookbackTime(z),
			ComovingMpc: m.ComovingDistance(z),
		}
	}
	return g, nil
}

// NewTimeGrid builds n linearly spaced lookback-time slices from 0 to the
// lookback time at maxZ. Slice centers are converted to redshifts through
// the age interpolator.
func NewTimeGrid(m cosmo.Model, ages *cosmo.AgeInterpolator, maxZ float64, n int) (*IntegrationGrid, error) {
	if n < 1 {
		return nil, &config.ConfigError{Field: "integration_bins", Reason: fmt.Sprintf("must be >= 1, got %d", n)}
	}
	if maxZ <= 0 {
		return nil, &config.ConfigError{Field: "max_z", Reason: fmt.Sprintf("must be > 0, got %g", maxZ)}
	}

	t0 := m.LookbackTime(maxZ)
	step := t0 / float64(2*n)
	age0 := m.Age(0)
	g := &IntegrationGrid{
		Mode:        config.ModeTime,
		Slices:      make([]Slice, n),
		DurationMyr: t0 / float64(n),
	}
	for i := 0; i < n; i++ {
		t := float64(2*i+1) * step
		age := age0 - t
		z, err := ages.Z(age)
		if err != nil {
			return nil, fmt.Errorf("grid: slice %d at lookback %.1f Myr: %w", i, t, err)
		}
		g.Slices[i] = Slice{
			Index:       i,
			Z:           z,
			ZLow:        float64(2*i) * step,
			ZHigh:       float64(2*i+2) * step,
			AgeMyr:      age,
			ElapsedMyr:  t0 - t,
			ComovingMpc: m.ComovingDistance(z),
		}
	}
	return g, nil
}
