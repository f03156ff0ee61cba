package sfh

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/interp"
)

// metallicityColumns maps a metallicity bin selector to its column index in
// the SFRD table. Column 0 follows the header column holding the redshift.
var metallicityColumns = map[string]int{
	"z03":   0,
	"z02":   1,
	"z01":   2,
	"z005":  3,
	"z001":  4,
	"z0001": 5,
}

// Tabulated interpolates a metallicity-binned SFRD table linearly in
// redshift. Outside the tabulated redshift range the nearest endpoint value
// is used, matching the behavior of the table-producing pipeline.
type Tabulated struct {
	metallicity string
	zs          []float64
	rates       []float64
	pl          interp.PiecewiseLinear
}

func (t *Tabulated) Name() string { return "tabulated/" + t.metallicity }

// Rate returns the interpolated SFRD at redshift z.
func (t *Tabulated) Rate(z float64) float64 {
	if z <= t.zs[0] {
		return t.rates[0]
	}
	if last := len(t.zs) - 1; z >= t.zs[last] {
		return t.rates[last]
	}
	return t.pl.Predict(z)
}

// LoadTabulated reads an SFRD table: a header row, a leading redshift column,
// and one numeric column per metallicity bin. Rows must be ordered by
// increasing redshift.
func LoadTabulated(r io.Reader, metallicity string) (*Tabulated, error) {
	col, ok := metallicityColumns[metallicity]
	if !ok {
		return nil, fmt.Errorf("sfh: unknown metallicity bin %q", metallicity)
	}
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sfh: read SFRD table: %w", err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("sfh: SFRD table too short (%d rows)", len(records))
	}
	t := &Tabulated{metallicity: metallicity}
	for i, rec := range records[1:] { // skip header
		if len(rec) <= col+1 {
			return nil, fmt.Errorf("sfh: SFRD table row %d has no column for %s", i+2, metallicity)
		}
		z, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("sfh: SFRD table row %d: %w", i+2, err)
		}
		rate, err := strconv.ParseFloat(rec[col+1], 64)
		if err != nil {
			return nil, fmt.Errorf("sfh: SFRD table row %d: %w", i+2, err)
		}
		if n := len(t.zs); n > 0 && z <= t.zs[n-1] {
			return nil, fmt.Errorf("sfh: SFRD table not increasing in redshift at row %d", i+2)
		}
		t.zs = append(t.zs, z)
		t.rates = append(t.rates, rate)
	}
	if err := t.pl.Fit(t.zs, t.rates); err != nil {
		return nil, fmt.Errorf("sfh: fit SFRD table: %w", err)
	}
	return t, nil
}
