package engine

import (
	"context"
	"errors"
	"math"

	"github.com/gwpop/gwbsim/internal/gw"
	"github.com/gwpop/gwbsim/internal/population"
)

// runBirth extends the bulk spectrum with the partial bin each binary is
// born into: the sweep from the birth frequency up to the redshifted upper
// bin edge, or up to wherever the binary has had time to evolve since
// formation, whichever comes first.
func (e *Engine) runBirth(ctx context.Context) error {
	return e.runBinaryPass(ctx, PassBirth, e.birthBinary)
}

func (e *Engine) birthBinary(r population.Record, delta []float64, bd *Breakdown) (numErrs, cells int64) {
	pref := e.cfg.BirthMergerPrefactor()
	sysPref := fourPi / e.cfg.Normalization.Mass * systemCountScale
	mch53 := math.Pow(r.ChirpMass, 5.0/3.0)

	for _, s := range e.igrid.Slices {
		if r.T0 >= s.ElapsedMyr {
			continue
		}
		zp := 1 + s.Z
		b, ok := e.fgrid.FindBin(2 * r.Nu0 / zp)
		if !ok {
			continue
		}
		bin := e.fgrid.Bin(b)

		// The SFRD is evaluated at the formation epoch: the binary is born
		// in this slice, T0 after its progenitor formed.
		psi, err := e.rep.RateAt(s.AgeMyr, r.T0)
		if err != nil {
			numErrs++
			continue
		}

		tauToEdge, err := gw.TimeToEvolve(2*r.Nu0, bin.High*zp, r.K)
		if err != nil {
			numErrs++
			continue
		}

		maxEvolve := s.ElapsedMyr - r.T0
		var tauInBin, freqFac float64
		if tauToEdge >= maxEvolve {
			// The binary has not yet reached the upper bin edge: the sweep
			// stops at the frequency reached after its whole lifetime so
			// far, capped at contact.
			tauInBin = maxEvolve
			nuUpp, err := gw.FrequencyAfter(r.Nu0, maxEvolve, r.K)
			if err != nil {
				if !errors.Is(err, gw.ErrPastCoalescence) {
					numErrs++
					continue
				}
				nuUpp = r.NuMax
			}
			nuUpp = math.Min(nuUpp, r.NuMax)
			freqFac = (math.Pow(nuUpp, 2.0/3.0) - math.Pow(r.Nu0, 2.0/3.0)) / (bin.High - bin.Low)
		} else {
			tauInBin = tauToEdge
			freqFac = (math.Pow(bin.High*zp/2, 2.0/3.0) - math.Pow(r.Nu0, 2.0/3.0)) / (bin.High - bin.Low)
		}

		omega := pref * bin.Center * mch53 * freqFac * psi / zp * e.birthMergerWeight(s)
		systems := sysPref * psi * tauInBin * s.ComovingMpc * s.ComovingMpc * e.volumeWeight(s)
		delta[b] += omega
		bd.Add(s.Index, b, omega, systems)
		cells++
	}
	return numErrs, cells
}
