package cosmo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAgeTable_RoundTrip(t *testing.T) {
	m := Planck18()
	ai, err := GenerateAgeTable(m, 8, 500)
	require.NoError(t, err)

	// Interpolated redshifts must invert Age to well below a redshift slice.
	for _, z := range []float64{0.05, 0.4, 1.3, 3, 6.5} {
		got, err := ai.Z(m.Age(z))
		require.NoError(t, err, "z=%g", z)
		assert.InDelta(t, z, got, 0.01, "z=%g", z)
	}
}

func TestAgeInterpolator_DomainError(t *testing.T) {
	ai, err := NewAgeInterpolator(
		[]float64{1000, 2000, 3000},
		[]float64{5, 2, 1},
	)
	require.NoError(t, err)

	_, err = ai.Z(500)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgeOutOfDomain)

	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 500.0, derr.AgeMyr)
	assert.Equal(t, 1000.0, derr.MinMyr)
	assert.Equal(t, 3000.0, derr.MaxMyr)
}

func TestAgeInterpolator_ClampsWithinTolerance(t *testing.T) {
	ai, err := NewAgeInterpolator(
		[]float64{1000, 2000, 3000},
		[]float64{5, 2, 1},
	)
	require.NoError(t, err)

	// Marginally outside the table is clamped to the endpoint.
	z, err := ai.Z(1000 - 0.5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, z)

	z, err = ai.Z(3000 + 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, z)

	// Beyond the tolerance fails.
	_, err = ai.Z(3000 + 2)
	assert.ErrorIs(t, err, ErrAgeOutOfDomain)
}

func TestNewAgeInterpolator_RejectsBadTables(t *testing.T) {
	_, err := NewAgeInterpolator([]float64{1000}, []float64{5})
	assert.Error(t, err)

	_, err = NewAgeInterpolator([]float64{1000, 1000}, []float64{5, 4})
	assert.Error(t, err)

	_, err = NewAgeInterpolator([]float64{1000, 2000}, []float64{5})
	assert.Error(t, err)
}

func TestLoadAgeTable_ParsesCSV(t *testing.T) {
	in := "age_myr,z\n1000,5\n2000,2\n3000,1\n"
	ai, err := LoadAgeTable(strings.NewReader(in))
	require.NoError(t, err)

	z, err := ai.Z(1500)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, z, 1e-12)
}

func TestLoadAgeTable_RejectsGarbage(t *testing.T) {
	_, err := LoadAgeTable(strings.NewReader("age_myr,z\n1000,abc\n2000,2\n"))
	assert.Error(t, err)

	_, err = LoadAgeTable(strings.NewReader("age_myr,z\n"))
	assert.Error(t, err)
}

func TestWriteAgeTable_ReadBack(t *testing.T) {
	ages := []float64{700.5, 1800, 9000}
	zs := []float64{7.25, 3.5, 0.4}

	var buf bytes.Buffer
	require.NoError(t, WriteAgeTable(&buf, ages, zs))

	ai, err := LoadAgeTable(&buf)
	require.NoError(t, err)
	z, err := ai.Z(1800)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, z, 1e-9)
}
