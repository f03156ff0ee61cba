package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.FrequencyBins)
	assert.Equal(t, ModeRedshift, cfg.Mode)
	assert.Equal(t, 3.4e6, cfg.Normalization.Mass)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	in := `
frequency_bins: 10
log_f_low: -4
log_f_high: -1
integration_bins: 5
max_z: 2
mode: time
population_table: pop.csv
sfh:
  variant: constant
`
	cfg, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.FrequencyBins)
	assert.Equal(t, ModeTime, cfg.Mode)
	assert.Equal(t, "constant", cfg.SFH.Variant)
	// Unset normalization fields keep the defaults.
	assert.Equal(t, 8.10e-9, cfg.Normalization.BulkAmplitude)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("frequency_bins: 10\nbogus_knob: 3\n"))
	assert.Error(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Run)
		field  string
	}{
		{"frequency bins", func(c *Run) { c.FrequencyBins = 0 }, "frequency_bins"},
		{"log range", func(c *Run) { c.LogFLow = 1 }, "log_f_low"},
		{"integration bins", func(c *Run) { c.IntegrationBins = -1 }, "integration_bins"},
		{"max z", func(c *Run) { c.MaxZ = 0 }, "max_z"},
		{"mode", func(c *Run) { c.Mode = "sideways" }, "mode"},
		{"sfh variant", func(c *Run) { c.SFH.Variant = "nope" }, "sfh.variant"},
		{"tabulated needs table", func(c *Run) { c.SFH = SFH{Variant: "tabulated", Metallicity: "z01"} }, "sfh.table"},
		{"tabulated needs metallicity", func(c *Run) { c.SFH = SFH{Variant: "tabulated", Table: "t.csv"} }, "sfh.metallicity"},
		{"mass", func(c *Run) { c.Normalization.Mass = 0 }, "normalization.mass"},
		{"workers", func(c *Run) { c.Workers = -2 }, "workers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestPrefactors(t *testing.T) {
	cfg := Default()
	assert.InEpsilon(t, 8.10e-9/3.4e6, cfg.BulkPrefactor(), 1e-12)
	assert.InEpsilon(t, 1.28e-8/3.4e6, cfg.BirthMergerPrefactor(), 1e-12)
}
