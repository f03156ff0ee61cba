// Package cosmo provides the flat Lambda-CDM background cosmology used to
// weight binary populations over cosmic history: comoving distances, lookback
// times, ages, and a monotone age-to-redshift interpolator.
//
// Distances are in Mpc, times in Myr, redshifts dimensionless.
package cosmo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// SpeedOfLightMpcMyr is c expressed in Mpc/Myr.
const SpeedOfLightMpcMyr = 0.30660139

// mpcInKm is one megaparsec in kilometres.
const mpcInKm = 3.0856775814913673e19

// quadNodes is the fixed Gauss-Legendre order for the background integrals.
// The integrands are smooth; 128 nodes leaves the quadrature error far below
// the precision of the physical inputs.
const quadNodes = 128

// Model is a flat Lambda-CDM cosmology. The zero value is not usable; use
// Planck18 or NewModel.
type Model struct {
	H0     float64 // Hubble constant, km/s/Mpc
	OmegaM float64 // matter density parameter
	OmegaL float64 // dark-energy density parameter (1 - OmegaM, flat)
}

// Planck18 returns the Planck 2018 flat Lambda-CDM parameters.
func Planck18() Model {
	return NewModel(67.66, 0.30966)
}

// NewModel builds a flat model from H0 (km/s/Mpc) and the matter density.
func NewModel(h0, omegaM float64) Model {
	return Model{H0: h0, OmegaM: omegaM, OmegaL: 1 - omegaM}
}

// HubbleTimeMyr returns 1/H0 in Myr.
func (m Model) HubbleTimeMyr() float64 {
	seconds := mpcInKm / m.H0
	return seconds / 3.15576e13
}

// HubbleDistanceMpc returns c/H0 in Mpc.
func (m Model) HubbleDistanceMpc() float64 {
	return m.HubbleTimeMyr() * SpeedOfLightMpcMyr
}

// efunc is E(z) = H(z)/H0 for a flat matter + Lambda universe.
func (m Model) efunc(z float64) float64 {
	zp := 1 + z
	return math.Sqrt(m.OmegaM*zp*zp*zp + m.OmegaL)
}

// ComovingDistance returns the line-of-sight comoving distance to redshift z
// in Mpc.
func (m Model) ComovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}
	integral := quad.Fixed(func(x float64) float64 {
		return 1 / m.efunc(x)
	}, 0, z, quadNodes, nil, 0)
	return m.HubbleDistanceMpc() * integral
}

// LookbackTime returns the lookback time to redshift z in Myr.
func (m Model) LookbackTime(z float64) float64 {
	if z <= 0 {
		return 0
	}
	integral := quad.Fixed(func(x float64) float64 {
		return 1 / ((1 + x) * m.efunc(x))
	}, 0, z, quadNodes, nil, 0)
	return m.HubbleTimeMyr() * integral
}

// Age returns the age of the universe at redshift z in Myr.
//
// The integral is taken over scale factor a = 1/(1+z), where the integrand
// 1/sqrt(OmegaM/a + OmegaL*a^2) stays finite at a -> 0.
func (m Model) Age(z float64) float64 {
	a := 1 / (1 + z)
	integral := quad.Fixed(func(x float64) float64 {
		return 1 / math.Sqrt(m.OmegaM/x+m.OmegaL*x*x)
	}, 0, a, quadNodes, nil, 0)
	return m.HubbleTimeMyr() * integral
}

// ZAtAge inverts Age by bisection. Age is strictly decreasing in z, so the
// root is unique. Returns an error if ageMyr lies outside (Age(zMax), Age(0)].
func (m Model) ZAtAge(ageMyr, zMax float64) (float64, error) {
	lo, hi := 0.0, zMax
	ageLo, ageHi := m.Age(hi), m.Age(lo) // ageLo < ageHi
	if ageMyr < ageLo || ageMyr > ageHi {
		return 0, fmt.Errorf("cosmo: age %.1f Myr outside [%.1f, %.1f] for z in [0, %g]",
			ageMyr, ageLo, ageHi, zMax)
	}
	for i := 0; i < 80; i++ {
		mid := 0.5 * (lo + hi)
		if m.Age(mid) > ageMyr {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), nil
}
