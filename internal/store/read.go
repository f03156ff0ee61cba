package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gwpop/gwbsim/internal/engine"
)

// ErrRunNotFound reports a run ID with no row in the store.
var ErrRunNotFound = errors.New("store: run not found")

// RunInfo is the stored metadata of one run.
type RunInfo struct {
	ID               string
	CreatedAt        string
	Config           string
	RowsTotal        int
	RowsRejected     int
	RowsUnobservable int
	OverMaxZ         int64

	// CompletedPass is the last pass whose results are stored; HasCompleted
	// is false for a run that died before the bulk pass landed.
	CompletedPass engine.Pass
	HasCompleted  bool
}

// Run fetches one run's metadata.
func (s *Store) Run(ctx context.Context, id string) (RunInfo, error) {
	var (
		info RunInfo
		pass sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, config, rows_total, rows_rejected,
		       rows_unobservable, over_max_z, completed_pass
		FROM runs WHERE id = ?
	`, id).Scan(&info.ID, &info.CreatedAt, &info.Config, &info.RowsTotal,
		&info.RowsRejected, &info.RowsUnobservable, &info.OverMaxZ, &pass)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if pass.Valid {
		p, err := engine.ParsePass(pass.String)
		if err != nil {
			return RunInfo{}, fmt.Errorf("read run %s: %w", id, err)
		}
		info.CompletedPass = p
		info.HasCompleted = true
	}
	return info, nil
}

// Runs lists all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	infos := make([]RunInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.Run(ctx, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Spectrum loads the stored spectrum of one pass of a run. A run that never
// stored that pass yields ErrRunNotFound.
func (s *Store) Spectrum(ctx context.Context, runID string, pass engine.Pass) (*engine.Spectrum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT freq, omega FROM spectra
		WHERE run_id = ? AND pass = ?
		ORDER BY bin
	`, runID, pass.String())
	if err != nil {
		return nil, fmt.Errorf("read %s spectrum of run %s: %w", pass, runID, err)
	}
	defer rows.Close()

	var freqs, omega []float64
	for rows.Next() {
		var f, o float64
		if err := rows.Scan(&f, &o); err != nil {
			return nil, fmt.Errorf("read %s spectrum of run %s: %w", pass, runID, err)
		}
		freqs = append(freqs, f)
		omega = append(omega, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s spectrum of run %s: %w", pass, runID, err)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%s spectrum of run %s: %w", pass, runID, ErrRunNotFound)
	}

	sp := engine.NewSpectrum(freqs)
	copy(sp.Omega, omega)
	return sp, nil
}

// Breakdown loads the stored breakdown of one pass. The matrix dimensions
// must be supplied by the caller because zero cells are not stored.
func (s *Store) Breakdown(ctx context.Context, runID string, pass engine.Pass, nSlices, nBins int) (*engine.Breakdown, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slice, bin, omega, systems FROM breakdown_cells
		WHERE run_id = ? AND pass = ?
	`, runID, pass.String())
	if err != nil {
		return nil, fmt.Errorf("read %s breakdown of run %s: %w", pass, runID, err)
	}
	defer rows.Close()

	bd := engine.NewBreakdown(nSlices, nBins)
	for rows.Next() {
		var (
			slice, bin     int
			omega, systems float64
		)
		if err := rows.Scan(&slice, &bin, &omega, &systems); err != nil {
			return nil, fmt.Errorf("read %s breakdown of run %s: %w", pass, runID, err)
		}
		if slice < 0 || slice >= nSlices || bin < 0 || bin >= nBins {
			return nil, fmt.Errorf("read %s breakdown of run %s: cell (%d, %d) outside %dx%d matrix",
				pass, runID, slice, bin, nSlices, nBins)
		}
		bd.Add(slice, bin, omega, systems)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s breakdown of run %s: %w", pass, runID, err)
	}
	return bd, nil
}
