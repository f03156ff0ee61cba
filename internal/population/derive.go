package population

import (
	"fmt"
	"math"

	"github.com/gwpop/gwbsim/internal/gw"
)

// Raw is one row of the population-synthesis output before derivation.
type Raw struct {
	T0 float64 // formation time, Myr
	A  float64 // initial separation, solar radii
	M1 float64 // primary mass, solar masses
	M2 float64 // secondary mass, solar masses
}

// wdRadius is the Eggleton (1986) fit for the radius of a white dwarf of
// mass m (solar masses), in solar radii.
func wdRadius(m float64) float64 {
	x := m / 1.44
	core := 0.0114 * math.Sqrt(math.Pow(x, -2.0/3.0)-math.Pow(x, 2.0/3.0))
	env := math.Pow(1+3.5*math.Pow(m/0.00057, -2.0/3.0)+0.00057/m, -2.0/3.0)
	return core * env
}

// minSeparation is the smallest separation, in solar radii, at which neither
// white dwarf overflows its Roche lobe (Eggleton lobe approximation).
func minSeparation(m1, m2 float64) float64 {
	r1 := wdRadius(m1)
	r2 := wdRadius(m2)
	q := m2 / m1
	aPrimary := r1 * (0.6 + math.Pow(q, 2.0/3.0)*math.Log(1+math.Pow(q, -1.0/3.0))) / 0.49
	aSecondary := r2 * (0.6 + math.Pow(q, -2.0/3.0)*math.Log(1+math.Pow(q, 1.0/3.0))) / 0.49
	return math.Max(aPrimary, aSecondary)
}

// keplerFrequency is the orbital frequency, in Hz, of a binary with
// separation a (solar radii) and component masses m1, m2 (solar masses).
func keplerFrequency(a, m1, m2 float64) float64 {
	sep := a * gw.SolarRadius
	return math.Sqrt(gw.GravConst * gw.SolarMass * (m1 + m2) / (4 * math.Pi * math.Pi * sep * sep * sep))
}

// Derive computes the evolution columns for one raw row.
func Derive(raw Raw) (Record, error) {
	if raw.M1 <= 0 || raw.M2 <= 0 {
		return Record{}, fmt.Errorf("population: non-positive component mass (%g, %g)", raw.M1, raw.M2)
	}
	if raw.A <= 0 {
		return Record{}, fmt.Errorf("population: non-positive separation %g", raw.A)
	}
	mch := gw.ChirpMass(raw.M1, raw.M2)
	rec := Record{
		T0:        raw.T0,
		Nu0:       keplerFrequency(raw.A, raw.M1, raw.M2),
		NuMax:     keplerFrequency(minSeparation(raw.M1, raw.M2), raw.M1, raw.M2),
		ChirpMass: mch,
		K:         gw.EvolutionCoefficient(mch),
	}
	if rec.Nu0 > rec.NuMax {
		// Born at contact or tighter; treated as instantly merged.
		rec.Nu0 = rec.NuMax
	}
	dt, err := gw.TimeToEvolve(2*rec.Nu0, 2*rec.NuMax, rec.K)
	if err != nil {
		return Record{}, fmt.Errorf("population: coalescence time: %w", err)
	}
	rec.DtMax = dt
	return rec, nil
}
