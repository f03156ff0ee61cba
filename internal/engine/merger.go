package engine

import (
	"context"
	"log/slog"
	"math"

	"github.com/gwpop/gwbsim/internal/grid"
	"github.com/gwpop/gwbsim/internal/gw"
	"github.com/gwpop/gwbsim/internal/population"
)

// runMerger extends the bulk+birth spectrum with the partial bin each binary
// merges in: the sweep from the redshifted lower bin edge up to the contact
// frequency, or up to wherever the binary has had time to evolve, whichever
// comes first.
func (e *Engine) runMerger(ctx context.Context) error {
	return e.runBinaryPass(ctx, PassMerger, e.mergerBinary)
}

// mergerBinary walks the slices in ascending redshift. Looking further back
// in time only shortens the evolution window, so once the binary fails to
// reach contact within a slice's window it never reaches it in any later
// slice; the reachable flag flips at most once and is never reset.
func (e *Engine) mergerBinary(r population.Record, delta []float64, bd *Breakdown) (numErrs, cells int64) {
	pref := e.cfg.BirthMergerPrefactor()
	sysPref := fourPi / e.cfg.Normalization.Mass * systemCountScale
	mch53 := math.Pow(r.ChirpMass, 5.0/3.0)

	reachable := true
	for _, s := range e.igrid.Slices {
		zp := 1 + s.Z
		if 2*r.NuMax/zp > e.fgrid.HighestEdge() {
			continue
		}
		evolve := s.ElapsedMyr - r.T0
		if evolve <= 0 {
			continue
		}

		var (
			bin              grid.FrequencyBin
			freqFac, psi     float64
			sysTime, nuUpper float64
		)
		if reachable && r.DtMax < evolve {
			// Contact is reached within the window: the merger lands at the
			// redshifted contact frequency.
			b, ok := e.fgrid.FindBin(2 * r.NuMax / zp)
			if !ok {
				continue
			}
			bin = e.fgrid.Bin(b)
			if 2*r.Nu0/zp >= bin.Low {
				// The birth sweep already covers this cell.
				continue
			}
			p, err := e.rep.RateAt(s.AgeMyr, r.DtMax)
			if err != nil {
				numErrs++
				continue
			}
			res, err := gw.TimeToEvolve(bin.Low*zp, 2*r.NuMax, r.K)
			if err != nil {
				numErrs++
				continue
			}
			psi, sysTime, nuUpper = p, res, r.NuMax
		} else {
			reachable = false

			// Contact is out of reach: the sweep stops at the frequency
			// reached after the whole window, capped at contact.
			nuB, err := gw.FrequencyAfter(r.Nu0, evolve, r.K)
			if err != nil {
				numErrs++
				continue
			}
			nuB = math.Min(nuB, r.NuMax)
			b, ok := e.fgrid.FindBin(2 * nuB / zp)
			if !ok {
				continue
			}
			bin = e.fgrid.Bin(b)
			if 2*r.Nu0/zp >= bin.Low {
				// The birth sweep already covers this cell.
				continue
			}
			tau, err := gw.TimeToEvolve(2*r.Nu0, bin.Low*zp, r.K)
			if err != nil {
				numErrs++
				continue
			}
			p, err := e.rep.RateAt(s.AgeMyr, tau)
			if err != nil {
				numErrs++
				continue
			}
			if e.cfg.Debug {
				// The window should split into (birth -> lower edge) plus
				// (lower edge -> stopping frequency) up to interpolation
				// error.
				rest, err := gw.TimeToEvolve(bin.Low*zp, 2*nuB, r.K)
				if err == nil && math.Abs(evolve-(tau+rest)) > 0.01*evolve {
					slog.Warn("merger window split mismatch",
						"slice", s.Index, "evolve_myr", evolve, "tau_myr", tau, "rest_myr", rest)
				}
			}
			psi, sysTime, nuUpper = p, evolve-tau, nuB
		}

		freqFac = (math.Pow(nuUpper, 2.0/3.0) - math.Pow(bin.Low*zp/2, 2.0/3.0)) / (bin.High - bin.Low)
		omega := pref * bin.Center * mch53 * freqFac * psi / zp * e.birthMergerWeight(s)
		systems := sysPref * psi * sysTime * s.ComovingMpc * s.ComovingMpc * e.volumeWeight(s)
		delta[bin.Index] += omega
		bd.Add(s.Index, bin.Index, omega, systems)
		cells++
	}
	return numErrs, cells
}
