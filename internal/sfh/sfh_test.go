package sfh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwbsim/internal/config"
)

func TestMadauDickinson_ReferenceValues(t *testing.T) {
	m := MadauDickinson()
	assert.Equal(t, "madau-dickinson", m.Name())

	// psi(0) = 0.015 / (1 + (1/2.9)^5.6), just below the amplitude.
	assert.InEpsilon(t, 0.01496, m.Rate(0), 1e-3)

	// The SFRD peaks near z ~ 2 and declines toward both ends.
	assert.Greater(t, m.Rate(2), m.Rate(0))
	assert.Greater(t, m.Rate(2), m.Rate(8))
}

func TestDoublePowerLawVariants_Positive(t *testing.T) {
	for _, m := range []Model{MadauDickinson(), PowerLawB(), PowerLawC(), PowerLawD()} {
		for _, z := range []float64{0, 1, 4, 8} {
			assert.Greater(t, m.Rate(z), 0.0, "%s at z=%g", m.Name(), z)
		}
	}
}

func TestConstant_IgnoresRedshift(t *testing.T) {
	c := Constant{Value: 0.02}
	assert.Equal(t, 0.02, c.Rate(0))
	assert.Equal(t, 0.02, c.Rate(7.3))
	assert.Equal(t, "constant", c.Name())
}

func TestFromConfig_Variants(t *testing.T) {
	cases := map[string]string{
		"madau-dickinson": "madau-dickinson",
		"power-law-b":     "power-law-b",
		"power-law-c":     "power-law-c",
		"power-law-d":     "power-law-d",
		"constant":        "constant",
	}
	for variant, name := range cases {
		m, err := FromConfig(config.SFH{Variant: variant})
		require.NoError(t, err, variant)
		assert.Equal(t, name, m.Name(), variant)
	}

	_, err := FromConfig(config.SFH{Variant: "nope"})
	assert.Error(t, err)
}

func TestLoadTabulated_InterpolatesColumn(t *testing.T) {
	in := strings.Join([]string{
		"z,z03,z02,z01,z005,z001,z0001",
		"0,0.010,0.011,0.012,0.013,0.014,0.015",
		"1,0.020,0.021,0.022,0.023,0.024,0.025",
		"2,0.016,0.017,0.018,0.019,0.020,0.021",
	}, "\n")

	m, err := LoadTabulated(strings.NewReader(in), "z01")
	require.NoError(t, err)
	assert.Equal(t, "tabulated/z01", m.Name())

	assert.InDelta(t, 0.012, m.Rate(0), 1e-12)
	assert.InDelta(t, 0.017, m.Rate(0.5), 1e-12)

	// Endpoint clamping beyond the tabulated range.
	assert.InDelta(t, 0.012, m.Rate(-0.5), 1e-12)
	assert.InDelta(t, 0.018, m.Rate(5), 1e-12)
}

func TestLoadTabulated_Errors(t *testing.T) {
	_, err := LoadTabulated(strings.NewReader("z,z03\n0,0.01\n"), "z42")
	assert.Error(t, err)

	// Non-increasing redshift column.
	bad := "z,z03,z02,z01,z005,z001,z0001\n1,1,1,1,1,1,1\n0,1,1,1,1,1,1\n"
	_, err = LoadTabulated(strings.NewReader(bad), "z03")
	assert.Error(t, err)
}
