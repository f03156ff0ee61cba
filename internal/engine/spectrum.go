package engine

import "fmt"

// Spectrum is the accumulated Omega_GW value per frequency bin. It is
// created zero-filled before the Bulk pass and mutated additively, in place,
// by each pass; the array after the Merger pass is the deliverable.
type Spectrum struct {
	// Freqs holds the bin-center frequencies in Hz.
	Freqs []float64

	// Omega holds the accumulated Omega_GW per bin.
	Omega []float64
}

// NewSpectrum returns a zero-filled spectrum over the given bin centers.
func NewSpectrum(freqs []float64) *Spectrum {
	f := make([]float64, len(freqs))
	copy(f, freqs)
	return &Spectrum{Freqs: f, Omega: make([]float64, len(freqs))}
}

// Clone returns an independent copy.
func (s *Spectrum) Clone() *Spectrum {
	c := NewSpectrum(s.Freqs)
	copy(c.Omega, s.Omega)
	return c
}

// Len returns the number of bins.
func (s *Spectrum) Len() int { return len(s.Omega) }

// addInto accumulates a worker-private delta array into the spectrum.
func (s *Spectrum) addInto(delta []float64) error {
	if len(delta) != len(s.Omega) {
		return fmt.Errorf("engine: delta length %d != spectrum length %d", len(delta), len(s.Omega))
	}
	for i, d := range delta {
		s.Omega[i] += d
	}
	return nil
}

// Cell is one (slice, bin) entry of a pass breakdown: the Omega contribution
// of the cell and the estimated number of contributing systems.
type Cell struct {
	Omega   float64
	Systems float64
}

// Breakdown is the per-pass diagnostic matrix indexed by (integration slice,
// frequency bin). It is written once per pass and never read back by a later
// pass.
type Breakdown struct {
	NSlices int
	NBins   int
	Cells   []Cell // row-major: slice*NBins + bin
}

// NewBreakdown allocates a zeroed matrix.
func NewBreakdown(nSlices, nBins int) *Breakdown {
	return &Breakdown{
		NSlices: nSlices,
		NBins:   nBins,
		Cells:   make([]Cell, nSlices*nBins),
	}
}

// Add accumulates into one cell.
func (b *Breakdown) Add(slice, bin int, omega, systems float64) {
	c := &b.Cells[slice*b.NBins+bin]
	c.Omega += omega
	c.Systems += systems
}

// At returns one cell.
func (b *Breakdown) At(slice, bin int) Cell {
	return b.Cells[slice*b.NBins+bin]
}

// merge folds a worker-private breakdown into the shared one.
func (b *Breakdown) merge(other *Breakdown) {
	for i := range b.Cells {
		b.Cells[i].Omega += other.Cells[i].Omega
		b.Cells[i].Systems += other.Cells[i].Systems
	}
}
