package sfh

import (
	"sync/atomic"

	"github.com/gwpop/gwbsim/internal/cosmo"
)

// Representative evaluates "the star-formation rate at the epoch a binary
// was formed, deltaT before the current observation epoch": it converts
// age - deltaT into a redshift through the age table and queries the model
// there.
//
// A derived redshift above MaxZ is reported through a counter but the rate is
// still used; an age outside the interpolation domain is a hard lookup error
// that the caller counts and skips.
//
// Thread-safety: RateAt is safe for concurrent use; the counter is atomic
// and the underlying model and interpolator are read-only.
type Representative struct {
	Model Model
	Ages  *cosmo.AgeInterpolator
	MaxZ  float64

	overMaxZ atomic.Int64
}

// NewRepresentative wires a model to an age interpolator.
func NewRepresentative(m Model, ages *cosmo.AgeInterpolator, maxZ float64) *Representative {
	return &Representative{Model: m, Ages: ages, MaxZ: maxZ}
}

// RateAt returns the SFRD at the epoch whose universe age is
// ageMyr - deltaTMyr.
func (r *Representative) RateAt(ageMyr, deltaTMyr float64) (float64, error) {
	z, err := r.Ages.Z(ageMyr - deltaTMyr)
	if err != nil {
		return 0, err
	}
	if z > r.MaxZ {
		r.overMaxZ.Add(1)
	}
	return r.Model.Rate(z), nil
}

// OverMaxZCount reports how many lookups resolved to a redshift above MaxZ.
func (r *Representative) OverMaxZCount() int64 { return r.overMaxZ.Load() }
