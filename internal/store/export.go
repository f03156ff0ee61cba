package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gwpop/gwbsim/internal/engine"
)

// WriteSpectrumCSV writes a spectrum as a two-column table (f, Om).
func WriteSpectrumCSV(w io.Writer, sp *engine.Spectrum) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"f", "Om"}); err != nil {
		return fmt.Errorf("export spectrum: %w", err)
	}
	for i := range sp.Omega {
		rec := []string{
			strconv.FormatFloat(sp.Freqs[i], 'e', 8, 64),
			strconv.FormatFloat(sp.Omega[i], 'e', 8, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export spectrum: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export spectrum: %w", err)
	}
	return nil
}

// WriteBreakdownCSV writes a breakdown matrix with one row per integration
// slice: the slice redshift, then an (omega, count) column pair per bin.
// zs must hold one redshift per slice.
func WriteBreakdownCSV(w io.Writer, zs []float64, bd *engine.Breakdown) error {
	if len(zs) != bd.NSlices {
		return fmt.Errorf("export breakdown: %d redshifts for %d slices", len(zs), bd.NSlices)
	}
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+2*bd.NBins)
	header = append(header, "z")
	for b := 0; b < bd.NBins; b++ {
		header = append(header, fmt.Sprintf("freq_%d", b), fmt.Sprintf("freq_%d_num", b))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export breakdown: %w", err)
	}

	row := make([]string, 0, len(header))
	for s := 0; s < bd.NSlices; s++ {
		row = row[:0]
		row = append(row, strconv.FormatFloat(zs[s], 'f', 6, 64))
		for b := 0; b < bd.NBins; b++ {
			c := bd.At(s, b)
			row = append(row,
				strconv.FormatFloat(c.Omega, 'e', 8, 64),
				strconv.FormatFloat(c.Systems, 'e', 8, 64),
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export breakdown: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export breakdown: %w", err)
	}
	return nil
}
