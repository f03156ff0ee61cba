package sfh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwbsim/internal/cosmo"
)

func testAges(t *testing.T) *cosmo.AgeInterpolator {
	t.Helper()
	ai, err := cosmo.GenerateAgeTable(cosmo.Planck18(), 8, 400)
	if err != nil {
		t.Fatalf("generating age table: %v", err)
	}
	return ai
}

func TestRepresentative_EvaluatesAtFormationEpoch(t *testing.T) {
	m := cosmo.Planck18()
	rep := NewRepresentative(MadauDickinson(), testAges(t), 8)

	// With no delay the rate is just the SFRD at the slice redshift.
	age := m.Age(1)
	got, err := rep.RateAt(age, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, MadauDickinson().Rate(1), got, 0.02)

	// A delay pushes the formation epoch to higher redshift, where the
	// Madau-Dickinson rate (below its peak) is larger.
	delayed, err := rep.RateAt(age, 1000)
	require.NoError(t, err)
	assert.Greater(t, delayed, got)
}

func TestRepresentative_CountsOverMaxZ(t *testing.T) {
	rep := NewRepresentative(Constant{Value: 0.01}, testAges(t), 2)
	m := cosmo.Planck18()

	assert.Zero(t, rep.OverMaxZCount())

	// Formation epoch beyond maxZ: counted but still evaluated.
	got, err := rep.RateAt(m.Age(5), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.01, got)
	assert.Equal(t, int64(1), rep.OverMaxZCount())
}

func TestRepresentative_PropagatesDomainError(t *testing.T) {
	rep := NewRepresentative(Constant{Value: 0.01}, testAges(t), 8)

	// A delay reaching past the table start is a lookup error.
	_, err := rep.RateAt(cosmo.Planck18().Age(0.5), 1e5)
	require.Error(t, err)
	assert.ErrorIs(t, err, cosmo.ErrAgeOutOfDomain)
}
