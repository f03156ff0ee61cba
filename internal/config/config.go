// Package config defines the immutable run configuration for a background
// estimation. One Run value is loaded from YAML, validated once, and passed
// by value into every component; there are no process-wide flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Integration modes.
const (
	ModeRedshift = "redshift"
	ModeTime     = "time"
)

// ErrInvalidConfig is the sentinel wrapped by every *ConfigError.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ConfigError reports an invalid configuration field. Configuration errors
// are fatal: nothing runs until the config is fixed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// SFH selects the star-formation-history model and, for the tabulated
// variant, the SFRD table and metallicity bin.
type SFH struct {
	// Variant is one of: madau-dickinson, power-law-b, power-law-c,
	// power-law-d, constant, tabulated.
	Variant string `yaml:"variant"`

	// Table is the SFRD table path (tabulated variant only).
	Table string `yaml:"table,omitempty"`

	// Metallicity selects the table column (tabulated variant only), e.g.
	// z0001, z001, z005, z01, z02, z03.
	Metallicity string `yaml:"metallicity,omitempty"`
}

// Normalization holds the fixed physical scaling of the accumulated spectrum.
// The defaults correspond to the population-synthesis normalization mass of
// 3.4e6 solar masses.
type Normalization struct {
	// Mass is the total star-forming mass represented by the population
	// table, in solar masses.
	Mass float64 `yaml:"mass"`

	// BulkAmplitude scales the bulk-pass contribution before division by
	// Mass.
	BulkAmplitude float64 `yaml:"bulk_amplitude"`

	// BirthMergerAmplitude scales the birth- and merger-pass contributions
	// before division by Mass.
	BirthMergerAmplitude float64 `yaml:"birth_merger_amplitude"`
}

// Run is the complete, immutable configuration of one estimation run.
type Run struct {
	// Frequency grid.
	FrequencyBins int     `yaml:"frequency_bins"`
	LogFLow       float64 `yaml:"log_f_low"`
	LogFHigh      float64 `yaml:"log_f_high"`

	// Outer integration grid.
	IntegrationBins int     `yaml:"integration_bins"`
	MaxZ            float64 `yaml:"max_z"`
	Mode            string  `yaml:"mode"` // redshift | time

	// Inputs.
	PopulationTable string `yaml:"population_table"`
	AgeTable        string `yaml:"age_table,omitempty"` // empty: synthesize from the model

	SFH           SFH           `yaml:"sfh"`
	Normalization Normalization `yaml:"normalization"`

	// Workers bounds the parallelism of each pass. Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// Debug enables per-cell consistency checks inside the passes.
	Debug bool `yaml:"debug,omitempty"`
}

// Default returns a Run with the defaults of the reference configuration:
// 50 log-spaced frequency bins over [1e-5, 1] Hz, 20 redshift shells out to
// z = 8, the Madau-Dickinson star-formation history.
func Default() Run {
	return Run{
		FrequencyBins:   50,
		LogFLow:         -5,
		LogFHigh:        0,
		IntegrationBins: 20,
		MaxZ:            8,
		Mode:            ModeRedshift,
		SFH:             SFH{Variant: "madau-dickinson"},
		Normalization: Normalization{
			Mass:                 3.4e6,
			BulkAmplitude:        8.10e-9,
			BirthMergerAmplitude: 1.28e-8,
		},
	}
}

// Load parses a YAML run configuration, filling unset normalization fields
// from the defaults.
func Load(r io.Reader) (Run, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Run{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Run{}, err
	}
	return cfg, nil
}

// LoadFile loads and validates a YAML run configuration from disk.
func LoadFile(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// validSFHVariants in declaration order; the order is cosmetic but keeps
// error messages stable.
var validSFHVariants = []string{
	"madau-dickinson", "power-law-b", "power-law-c", "power-law-d",
	"constant", "tabulated",
}

// Validate checks the configuration. The first violated constraint is
// returned as a *ConfigError.
func (c Run) Validate() error {
	if c.FrequencyBins < 1 {
		return &ConfigError{Field: "frequency_bins", Reason: fmt.Sprintf("must be >= 1, got %d", c.FrequencyBins)}
	}
	if c.LogFLow >= c.LogFHigh {
		return &ConfigError{Field: "log_f_low", Reason: fmt.Sprintf("must be < log_f_high (%g >= %g)", c.LogFLow, c.LogFHigh)}
	}
	if c.IntegrationBins < 1 {
		return &ConfigError{Field: "integration_bins", Reason: fmt.Sprintf("must be >= 1, got %d", c.IntegrationBins)}
	}
	if c.MaxZ <= 0 {
		return &ConfigError{Field: "max_z", Reason: fmt.Sprintf("must be > 0, got %g", c.MaxZ)}
	}
	if c.Mode != ModeRedshift && c.Mode != ModeTime {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q, got %q", ModeRedshift, ModeTime, c.Mode)}
	}
	if !contains(validSFHVariants, c.SFH.Variant) {
		return &ConfigError{Field: "sfh.variant", Reason: fmt.Sprintf("unknown variant %q, valid: %v", c.SFH.Variant, validSFHVariants)}
	}
	if c.SFH.Variant == "tabulated" {
		if c.SFH.Table == "" {
			return &ConfigError{Field: "sfh.table", Reason: "required for the tabulated variant"}
		}
		if c.SFH.Metallicity == "" {
			return &ConfigError{Field: "sfh.metallicity", Reason: "required for the tabulated variant"}
		}
	}
	if c.Normalization.Mass <= 0 {
		return &ConfigError{Field: "normalization.mass", Reason: fmt.Sprintf("must be > 0, got %g", c.Normalization.Mass)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Reason: fmt.Sprintf("must be >= 0, got %d", c.Workers)}
	}
	return nil
}

// BulkPrefactor is the bulk-pass omega prefactor per solar mass.
func (c Run) BulkPrefactor() float64 {
	return c.Normalization.BulkAmplitude / c.Normalization.Mass
}

// BirthMergerPrefactor is the birth/merger omega prefactor per solar mass.
func (c Run) BirthMergerPrefactor() float64 {
	return c.Normalization.BirthMergerAmplitude / c.Normalization.Mass
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
