// Package engine implements the three-pass contribution pipeline that
// accumulates the gravitational-wave-background energy-density spectrum.
//
// A run executes the passes in a fixed order:
//
//	Bulk   — binaries whose redshifted frequency range strictly contains a
//	         whole bin; parallel over frequency bins.
//	Birth  — binaries whose redshifted initial frequency falls inside a bin;
//	         parallel over binaries with private accumulators.
//	Merger — binaries whose redshifted maximum (or horizon-truncated)
//	         frequency falls inside a bin; parallel over binaries.
//
// The ordering is a hard dependency: Birth extends the spectrum produced by
// Bulk, and Merger extends the spectrum produced by Birth. Within a pass the
// decomposition is side-effect free per cell, so summation order only moves
// floating-point rounding below any physically meaningful digit.
//
// Numerical failures (age lookups outside the interpolation table, frequency
// evolution past a coalescence budget) skip the offending cell and increment
// a per-pass counter; they never abort the pass.
package engine
