package cosmo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanck18_AgeOfUniverse(t *testing.T) {
	// Planck 2018 age of the universe: 13.79 Gyr.
	m := Planck18()
	assert.InEpsilon(t, 13790.0, m.Age(0), 0.01)
}

func TestPlanck18_HubbleDistance(t *testing.T) {
	m := Planck18()
	// c/H0 = 299792.458 / 67.66 km/s -> Mpc
	assert.InEpsilon(t, 299792.458/67.66, m.HubbleDistanceMpc(), 1e-3)
}

func TestComovingDistance_Planck18Reference(t *testing.T) {
	// Reference values from the published Planck18 cosmology tables.
	m := Planck18()
	assert.InEpsilon(t, 3395.9, m.ComovingDistance(1), 0.005)
	assert.Zero(t, m.ComovingDistance(0))
	assert.Zero(t, m.ComovingDistance(-1))
}

func TestLookbackTime_Planck18Reference(t *testing.T) {
	m := Planck18()
	assert.InEpsilon(t, 7935.0, m.LookbackTime(1), 0.005)
	assert.Zero(t, m.LookbackTime(0))
}

func TestAge_ConsistentWithLookback(t *testing.T) {
	// Age(z) + LookbackTime(z) must equal the present age at every z.
	m := Planck18()
	total := m.Age(0)
	for _, z := range []float64{0.1, 0.5, 1, 2, 4, 8} {
		assert.InEpsilon(t, total, m.Age(z)+m.LookbackTime(z), 1e-6, "z=%g", z)
	}
}

func TestAge_DecreasesWithRedshift(t *testing.T) {
	m := Planck18()
	prev := m.Age(0)
	for _, z := range []float64{0.5, 1, 2, 4, 8} {
		age := m.Age(z)
		assert.Less(t, age, prev, "z=%g", z)
		prev = age
	}
}

func TestZAtAge_InvertsAge(t *testing.T) {
	m := Planck18()
	for _, z := range []float64{0.01, 0.5, 1.7, 5, 7.9} {
		got, err := m.ZAtAge(m.Age(z), 8)
		require.NoError(t, err, "z=%g", z)
		assert.InDelta(t, z, got, 1e-6, "z=%g", z)
	}
}

func TestZAtAge_OutsideRange(t *testing.T) {
	m := Planck18()
	_, err := m.ZAtAge(m.Age(10), 8)
	assert.Error(t, err)

	_, err = m.ZAtAge(m.Age(0)+1, 8)
	assert.Error(t, err)
}
