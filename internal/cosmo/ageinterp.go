package cosmo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/interp"
)

// ErrAgeOutOfDomain reports an age query outside the interpolation table.
var ErrAgeOutOfDomain = errors.New("cosmo: age outside interpolation domain")

// DomainError carries the offending query of an out-of-domain age lookup.
// It wraps ErrAgeOutOfDomain so callers can match with errors.Is.
type DomainError struct {
	AgeMyr   float64
	MinMyr   float64
	MaxMyr   float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("cosmo: age %.2f Myr outside table domain [%.2f, %.2f]",
		e.AgeMyr, e.MinMyr, e.MaxMyr)
}

func (e *DomainError) Unwrap() error { return ErrAgeOutOfDomain }

// AgeInterpolator converts an age of the universe into a redshift by linear
// interpolation over a monotone (age, z) table.
//
// Queries slightly outside the table domain, within the configured tolerance,
// are clamped to the nearest endpoint. Queries beyond the tolerance fail with
// a *DomainError; silently extrapolating a cosmological table is how a run
// quietly produces unphysical star-formation epochs.
type AgeInterpolator struct {
	ages []float64 // strictly increasing, Myr
	zs   []float64 // strictly decreasing
	pl   interp.PiecewiseLinear
	tol  float64 // clamp tolerance in Myr
}

// DefaultAgeTolerance is the clamp tolerance, in Myr, applied to queries that
// fall marginally outside the table.
const DefaultAgeTolerance = 1.0

// NewAgeInterpolator builds an interpolator from parallel age and redshift
// slices. Ages must be strictly increasing and at least two entries long.
func NewAgeInterpolator(ages, zs []float64) (*AgeInterpolator, error) {
	if len(ages) < 2 || len(ages) != len(zs) {
		return nil, fmt.Errorf("cosmo: age table needs >= 2 matched rows, got %d/%d", len(ages), len(zs))
	}
	for i := 1; i < len(ages); i++ {
		if ages[i] <= ages[i-1] {
			return nil, fmt.Errorf("cosmo: age table not strictly increasing at row %d", i)
		}
	}
	ai := &AgeInterpolator{ages: ages, zs: zs, tol: DefaultAgeTolerance}
	if err := ai.pl.Fit(ages, zs); err != nil {
		return nil, fmt.Errorf("cosmo: fit age table: %w", err)
	}
	return ai, nil
}

// SetTolerance overrides the endpoint clamp tolerance in Myr.
func (ai *AgeInterpolator) SetTolerance(tolMyr float64) { ai.tol = tolMyr }

// Domain returns the table's age range in Myr.
func (ai *AgeInterpolator) Domain() (minMyr, maxMyr float64) {
	return ai.ages[0], ai.ages[len(ai.ages)-1]
}

// Z returns the redshift at the given age of the universe.
func (ai *AgeInterpolator) Z(ageMyr float64) (float64, error) {
	min, max := ai.Domain()
	switch {
	case ageMyr < min-ai.tol || ageMyr > max+ai.tol:
		return 0, &DomainError{AgeMyr: ageMyr, MinMyr: min, MaxMyr: max}
	case ageMyr < min:
		ageMyr = min
	case ageMyr > max:
		ageMyr = max
	}
	return ai.pl.Predict(ageMyr), nil
}

// Table returns copies of the underlying (age, z) columns.
func (ai *AgeInterpolator) Table() (ages, zs []float64) {
	ages = make([]float64, len(ai.ages))
	zs = make([]float64, len(ai.zs))
	copy(ages, ai.ages)
	copy(zs, ai.zs)
	return ages, zs
}

// WriteAgeTable writes an (age, z) table in the layout LoadAgeTable reads.
func WriteAgeTable(w io.Writer, ages, zs []float64) error {
	if len(ages) != len(zs) {
		return fmt.Errorf("cosmo: %d ages for %d redshifts", len(ages), len(zs))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"age_myr", "z"}); err != nil {
		return fmt.Errorf("cosmo: write age table: %w", err)
	}
	for i := range ages {
		rec := []string{
			strconv.FormatFloat(ages[i], 'f', 4, 64),
			strconv.FormatFloat(zs[i], 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("cosmo: write age table: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cosmo: write age table: %w", err)
	}
	return nil
}

// LoadAgeTable reads a two-column CSV (age in Myr, redshift) with a header
// row, as produced by the table-generation step.
func LoadAgeTable(r io.Reader) (*AgeInterpolator, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cosmo: read age table: %w", err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("cosmo: age table too short (%d rows)", len(records))
	}
	ages := make([]float64, 0, len(records)-1)
	zs := make([]float64, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) < 2 {
			return nil, fmt.Errorf("cosmo: age table row %d has %d columns", i+2, len(rec))
		}
		age, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("cosmo: age table row %d: %w", i+2, err)
		}
		z, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("cosmo: age table row %d: %w", i+2, err)
		}
		ages = append(ages, age)
		zs = append(zs, z)
	}
	return NewAgeInterpolator(ages, zs)
}

// GenerateAgeTable synthesizes an (age, z) table directly from the model by
// sampling n ages uniformly between Age(maxZ) and the present age and
// inverting Age at each sample. Used when no prepared table is available.
func GenerateAgeTable(m Model, maxZ float64, n int) (*AgeInterpolator, error) {
	if n < 2 {
		return nil, fmt.Errorf("cosmo: need >= 2 samples, got %d", n)
	}
	oldest := m.Age(maxZ)
	youngest := m.Age(1e-5)
	ages := make([]float64, n)
	zs := make([]float64, n)
	step := (youngest - oldest) / float64(n-1)
	for i := range ages {
		age := oldest + float64(i)*step
		z, err := m.ZAtAge(age, maxZ)
		if err != nil {
			return nil, err
		}
		ages[i] = age
		zs[i] = z
	}
	return NewAgeInterpolator(ages, zs)
}
