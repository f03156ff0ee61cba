// Package population loads, derives, and filters the compact-binary
// population table consumed by the contribution engine.
//
// The raw table (t0, a, m1, m2) comes from population synthesis; the derived
// columns (nu0, M_ch, K, nu_max, Dt_max) are produced by Derive or read back
// from a previously written extended table. Records are immutable once
// loaded.
package population

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is the sentinel wrapped by every *DataError.
var ErrInvalidRecord = errors.New("population: invalid record")

// DataError reports a population row that violates a physical invariant.
// Such rows are rejected and counted during loading; they never abort a run.
type DataError struct {
	Row    int // 1-based data row number
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("population: row %d: %s", e.Row, e.Reason)
}

func (e *DataError) Unwrap() error { return ErrInvalidRecord }

// Record is one binary system of the population table. All fields are set
// once at load time and never mutated.
type Record struct {
	// T0 is the formation time in Myr since the earliest epoch considered
	// (delay between star formation and binary formation).
	T0 float64

	// Nu0 is the initial orbital frequency in Hz.
	Nu0 float64

	// NuMax is the orbital frequency at minimum separation in Hz.
	NuMax float64

	// ChirpMass is in solar masses.
	ChirpMass float64

	// K is the GW-driven evolution coefficient, dnu/dt = K nu^(11/3).
	K float64

	// DtMax is the total time to evolve from Nu0 to NuMax in Myr.
	DtMax float64
}

// check validates the record invariants: 0 <= Nu0 <= NuMax, K > 0, T0 >= 0,
// DtMax >= 0.
func (r Record) check(row int) error {
	switch {
	case r.K <= 0:
		return &DataError{Row: row, Reason: fmt.Sprintf("non-positive evolution coefficient %g", r.K)}
	case r.Nu0 < 0 || r.Nu0 > r.NuMax:
		return &DataError{Row: row, Reason: fmt.Sprintf("frequency range [%g, %g] violates 0 <= nu0 <= nu_max", r.Nu0, r.NuMax)}
	case r.T0 < 0:
		return &DataError{Row: row, Reason: fmt.Sprintf("negative formation time %g", r.T0)}
	case r.DtMax < 0:
		return &DataError{Row: row, Reason: fmt.Sprintf("negative coalescence time %g", r.DtMax)}
	}
	return nil
}
