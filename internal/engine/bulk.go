package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gwpop/gwbsim/internal/gw"
)

// runBulk accumulates the contribution of binaries that sweep across an
// entire frequency bin: at slice redshift z a binary contributes to bin
// [low, high) when its emitted range [2*nu0, 2*numax] contains the whole
// redshifted bin [low*(1+z), high*(1+z)].
//
// The decomposition is by frequency bin: each worker owns a disjoint set of
// spectrum entries and breakdown columns, so no accumulator locking is
// needed.
func (e *Engine) runBulk(ctx context.Context) error {
	spectrum := NewSpectrum(e.fgrid.Centers)
	breakdown := NewBreakdown(e.igrid.Len(), e.fgrid.Len())
	stats := &PassStats{Pass: PassBulk}

	var numErrs, cells atomic.Int64
	bins := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range bins {
				n, c := e.bulkBin(b, spectrum, breakdown)
				numErrs.Add(n)
				cells.Add(c)
			}
		}()
	}

	for b := 0; b < e.fgrid.Len(); b++ {
		select {
		case <-ctx.Done():
			close(bins)
			wg.Wait()
			return ctx.Err()
		case bins <- b:
		}
	}
	close(bins)
	wg.Wait()

	stats.NumericalErrors = numErrs.Load()
	stats.Contributions = cells.Load()
	e.spectra[PassBulk] = spectrum
	e.breakdowns[PassBulk] = breakdown
	e.stats[PassBulk] = stats
	return nil
}

// bulkBin accumulates every integration slice of one frequency bin. Returns
// the numerical-error and contributing-cell counts.
func (e *Engine) bulkBin(b int, spectrum *Spectrum, breakdown *Breakdown) (numErrs, cells int64) {
	bin := e.fgrid.Bin(b)
	pref := e.cfg.BulkPrefactor()
	sysPref := fourPi / e.cfg.Normalization.Mass * systemCountScale

	for _, s := range e.igrid.Slices {
		zp := 1 + s.Z
		lowE := bin.Low * zp
		highE := bin.High * zp

		var zfac, sysTau float64
		for _, r := range e.records {
			if 2*r.Nu0 > lowE || 2*r.NuMax < highE {
				continue
			}
			// Formation lies tau(birth -> upper edge) + T0 before the slice
			// epoch; the slice must be old enough for that.
			tauEdge, err := gw.TimeToEvolve(2*r.Nu0, highE, r.K)
			if err != nil {
				numErrs++
				continue
			}
			sinceZAMS := tauEdge + r.T0
			if sinceZAMS >= s.ElapsedMyr {
				continue
			}
			psi, err := e.rep.RateAt(s.AgeMyr, sinceZAMS)
			if err != nil {
				numErrs++
				continue
			}
			// Residence time inside the redshifted bin weights the expected
			// system count.
			res, err := gw.TimeToEvolve(lowE, highE, r.K)
			if err != nil {
				numErrs++
				continue
			}
			zfac += psi * math.Pow(r.ChirpMass, 5.0/3.0)
			sysTau += psi * res
		}
		if zfac == 0 && sysTau == 0 {
			continue
		}
		omega := pref * bin.Factor * zfac * e.bulkWeight(s)
		systems := sysPref * sysTau * s.ComovingMpc * s.ComovingMpc * e.volumeWeight(s)
		spectrum.Omega[b] += omega
		breakdown.Add(s.Index, b, omega, systems)
		cells++
	}
	return numErrs, cells
}
