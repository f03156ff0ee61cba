package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gwpop/gwbsim/internal/engine"
)

// BeginRun inserts a new run row with a fresh UUID and the YAML snapshot of
// the configuration, and returns the run ID.
func (s *Store) BeginRun(ctx context.Context, configYAML string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, config)
		VALUES (?, ?, ?)
	`, id, time.Now().UTC().Format(time.RFC3339), configYAML)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// Writer binds a run ID to the store. The returned value implements
// engine.PassSink, so the engine persists each pass as it completes.
func (s *Store) Writer(runID string) *RunWriter {
	return &RunWriter{s: s, runID: runID}
}

// RunWriter persists pass results under one run ID.
type RunWriter struct {
	s     *Store
	runID string
}

// SavePass writes the spectrum and breakdown of a completed pass and advances
// the run's completed_pass marker, all in one transaction. Re-running a pass
// overwrites its previous rows, so a resumed pipeline converges on the same
// state as an uninterrupted one.
func (w *RunWriter) SavePass(ctx context.Context, pass engine.Pass, spectrum *engine.Spectrum, breakdown *engine.Breakdown) error {
	tx, err := w.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s pass: begin tx: %w", pass, err)
	}
	defer tx.Rollback() // No-op if committed

	for i := range spectrum.Omega {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO spectra (run_id, pass, bin, freq, omega)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, pass, bin) DO UPDATE SET
				freq = excluded.freq, omega = excluded.omega
		`, w.runID, pass.String(), i, spectrum.Freqs[i], spectrum.Omega[i])
		if err != nil {
			return fmt.Errorf("save %s pass: spectrum bin %d: %w", pass, i, err)
		}
	}

	for slice := 0; slice < breakdown.NSlices; slice++ {
		for bin := 0; bin < breakdown.NBins; bin++ {
			c := breakdown.At(slice, bin)
			if c.Omega == 0 && c.Systems == 0 {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO breakdown_cells (run_id, pass, slice, bin, omega, systems)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(run_id, pass, slice, bin) DO UPDATE SET
					omega = excluded.omega, systems = excluded.systems
			`, w.runID, pass.String(), slice, bin, c.Omega, c.Systems)
			if err != nil {
				return fmt.Errorf("save %s pass: cell (%d, %d): %w", pass, slice, bin, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs SET completed_pass = ? WHERE id = ?
	`, pass.String(), w.runID); err != nil {
		return fmt.Errorf("save %s pass: advance marker: %w", pass, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s pass: commit: %w", pass, err)
	}
	return nil
}

// FinishRun records the run summary: population counters on the run row and
// one pass_stats row per executed pass.
func (s *Store) FinishRun(ctx context.Context, runID string, sum *engine.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs SET
			rows_total = ?, rows_rejected = ?, rows_unobservable = ?, over_max_z = ?
		WHERE id = ?
	`, sum.RowsTotal, sum.RowsRejected, sum.RowsUnobservable, sum.OverMaxZ, runID); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	for _, st := range sum.Passes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pass_stats (run_id, pass, numerical_errors, contributions, elapsed_ms)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, pass) DO UPDATE SET
				numerical_errors = excluded.numerical_errors,
				contributions = excluded.contributions,
				elapsed_ms = excluded.elapsed_ms
		`, runID, st.Pass.String(), st.NumericalErrors, st.Contributions, st.Elapsed.Milliseconds())
		if err != nil {
			return fmt.Errorf("finish run: %s stats: %w", st.Pass, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: commit: %w", err)
	}
	return nil
}
