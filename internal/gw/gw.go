// Package gw contains the closed-form relations for gravitational-wave-driven
// orbital decay of a circular compact binary.
//
// Conventions: nu denotes ORBITAL frequency, f denotes GW frequency, and
// f = 2*nu throughout. The evolution coefficient K encodes the chirp mass
// dependence of the inspiral rate, dnu/dt = K * nu^(11/3) with nu in Hz and
// t in seconds. Durations cross package boundaries in Myr.
package gw

import (
	"errors"
	"fmt"
	"math"
)

// Physical constants (SI).
const (
	// GravConst is the Newtonian constant of gravitation in m^3 kg^-1 s^-2.
	GravConst = 6.6743e-11

	// SpeedOfLight is c in m/s.
	SpeedOfLight = 2.99792458e8

	// SolarMass is one solar mass in kg.
	SolarMass = 1.98892e30

	// SolarRadius is one solar radius in m.
	SolarRadius = 6.957e8

	// SecondsPerMyr converts Myr to seconds (Julian megayear).
	SecondsPerMyr = 3.15576e13
)

// tauCoeff is (3/8) * 2^(8/3), the exact coefficient of the inspiral time
// written in terms of GW frequencies rather than orbital frequencies.
var tauCoeff = (3.0 / 8.0) * math.Pow(2, 8.0/3.0)

// ErrPastCoalescence reports that a requested evolution time exceeds the
// remaining coalescence budget of the binary. Callers must treat the binary
// as already merged rather than evolve it further.
var ErrPastCoalescence = errors.New("gw: evolution time exceeds coalescence budget")

// CoalescenceError carries the parameters of a FrequencyAfter call that ran
// past the binary's coalescence budget. It wraps ErrPastCoalescence so
// callers can match with errors.Is.
type CoalescenceError struct {
	NuFrom    float64 // starting orbital frequency, Hz
	EvolveMyr float64 // requested evolution time, Myr
	BudgetMyr float64 // remaining coalescence budget, Myr
}

func (e *CoalescenceError) Error() string {
	return fmt.Sprintf("gw: cannot evolve %.4g Myr from nu=%.4g Hz: coalescence after %.4g Myr",
		e.EvolveMyr, e.NuFrom, e.BudgetMyr)
}

func (e *CoalescenceError) Unwrap() error { return ErrPastCoalescence }

// EvolutionCoefficient computes K for a binary of the given chirp mass in
// solar masses: K = (96/5) (2*pi)^(8/3) (G M)^(5/3) / c^5.
func EvolutionCoefficient(chirpMass float64) float64 {
	gm := GravConst * chirpMass * SolarMass
	return (96.0 / 5.0) * math.Pow(2*math.Pi, 8.0/3.0) * math.Pow(gm, 5.0/3.0) / math.Pow(SpeedOfLight, 5)
}

// ChirpMass computes (m1*m2)^(3/5) / (m1+m2)^(1/5) in solar masses.
func ChirpMass(m1, m2 float64) float64 {
	return math.Pow(m1*m2, 3.0/5.0) / math.Pow(m1+m2, 1.0/5.0)
}

// TimeToEvolve returns the time, in Myr, for a binary with evolution
// coefficient K to sweep from GW frequency fFrom to fTo.
//
// Requires 0 < fFrom <= fTo and K > 0. The result is non-negative and finite
// for valid inputs.
func TimeToEvolve(fFrom, fTo, K float64) (float64, error) {
	if K <= 0 {
		return 0, fmt.Errorf("gw: non-positive evolution coefficient %g", K)
	}
	if fFrom <= 0 || fTo < fFrom {
		return 0, fmt.Errorf("gw: invalid frequency range [%g, %g]", fFrom, fTo)
	}
	tau := tauCoeff * (math.Pow(fFrom, -8.0/3.0) - math.Pow(fTo, -8.0/3.0)) / K
	return tau / SecondsPerMyr, nil
}

// CoalescenceBudget returns the time, in Myr, until formal coalescence
// (nu -> infinity) for a binary at orbital frequency nuFrom.
func CoalescenceBudget(nuFrom, K float64) float64 {
	return (3.0 / (8.0 * K)) * math.Pow(nuFrom, -8.0/3.0) / SecondsPerMyr
}

// FrequencyAfter returns the ORBITAL frequency reached after evolving for
// evolveMyr from orbital frequency nuFrom.
//
// The inverse of the inspiral law is only defined while the binary survives:
// if evolveMyr meets or exceeds the coalescence budget the call fails with a
// *CoalescenceError and the caller must treat the binary as merged.
func FrequencyAfter(nuFrom, evolveMyr, K float64) (float64, error) {
	if K <= 0 {
		return 0, fmt.Errorf("gw: non-positive evolution coefficient %g", K)
	}
	if nuFrom <= 0 {
		return 0, fmt.Errorf("gw: non-positive orbital frequency %g", nuFrom)
	}
	rem := math.Pow(nuFrom, -8.0/3.0) - (8.0/3.0)*K*evolveMyr*SecondsPerMyr
	if rem <= 0 {
		return 0, &CoalescenceError{
			NuFrom:    nuFrom,
			EvolveMyr: evolveMyr,
			BudgetMyr: CoalescenceBudget(nuFrom, K),
		}
	}
	return math.Pow(rem, -3.0/8.0), nil
}
