package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// derivedColumns are the columns the core consumes, matched by header name.
var derivedColumns = []string{"t0", "nu0", "M_ch", "K", "nu_max", "Dt_max"}

// rawColumns are the population-synthesis output columns.
var rawColumns = []string{"t0", "a", "m1", "m2"}

// LoadResult reports what happened during a table load.
type LoadResult struct {
	Records  []Record
	Total    int // data rows seen
	Rejected int // rows dropped with a DataError
	Errors   []error
}

// LoadDerived reads the extended population table: comma-separated, header
// row, columns located by name. Rows violating the record invariants are
// rejected and counted, not fatal.
func LoadDerived(r io.Reader) (*LoadResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("population: read header: %w", err)
	}
	idx, err := columnIndex(header, derivedColumns)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("population: row %d: %w", row, err)
		}
		res.Total++
		vals, err := parseColumns(rec, idx, row)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, err)
			continue
		}
		b := Record{
			T0:        vals["t0"],
			Nu0:       vals["nu0"],
			ChirpMass: vals["M_ch"],
			K:         vals["K"],
			NuMax:     vals["nu_max"],
			DtMax:     vals["Dt_max"],
		}
		if err := b.check(row); err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Records = append(res.Records, b)
	}
	return res, nil
}

// LoadRaw reads the raw population-synthesis table (t0, a, m1, m2).
func LoadRaw(r io.Reader) ([]Raw, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("population: read header: %w", err)
	}
	idx, err := columnIndex(header, rawColumns)
	if err != nil {
		return nil, err
	}

	var raws []Raw
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("population: row %d: %w", row, err)
		}
		vals, err := parseColumns(rec, idx, row)
		if err != nil {
			return nil, err
		}
		raws = append(raws, Raw{T0: vals["t0"], A: vals["a"], M1: vals["m1"], M2: vals["m2"]})
	}
	return raws, nil
}

// WriteDerived writes the extended table with both raw and derived columns,
// in the layout LoadDerived reads back.
func WriteDerived(w io.Writer, raws []Raw, records []Record) error {
	if len(raws) != len(records) {
		return fmt.Errorf("population: %d raw rows but %d derived records", len(raws), len(records))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t0", "a", "m1", "m2", "nu0", "M_ch", "K", "nu_max", "Dt_max"}); err != nil {
		return fmt.Errorf("population: write header: %w", err)
	}
	for i, rec := range records {
		raw := raws[i]
		row := []string{
			formatFloat(raw.T0), formatFloat(raw.A), formatFloat(raw.M1), formatFloat(raw.M2),
			formatFloat(rec.Nu0), formatFloat(rec.ChirpMass), formatFloat(rec.K),
			formatFloat(rec.NuMax), formatFloat(rec.DtMax),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("population: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// columnIndex locates required column names in a header row.
func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(required))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("population: missing column %q in header %v", name, header)
		}
	}
	return idx, nil
}

// parseColumns parses the required columns of one row into a name -> value
// map. A malformed cell is a *DataError.
func parseColumns(rec []string, idx map[string]int, row int) (map[string]float64, error) {
	vals := make(map[string]float64, len(idx))
	for name, col := range idx {
		if col >= len(rec) {
			return nil, &DataError{Row: row, Reason: fmt.Sprintf("missing column %q", name)}
		}
		v, err := strconv.ParseFloat(rec[col], 64)
		if err != nil {
			return nil, &DataError{Row: row, Reason: fmt.Sprintf("column %q: %v", name, err)}
		}
		vals[name] = v
	}
	return vals, nil
}
