package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gwpop/gwbsim/internal/population"
)

// binaryPassFunc accumulates one binary's contribution across all
// integration slices into a worker-private spectrum delta and breakdown.
type binaryPassFunc func(r population.Record, delta []float64, bd *Breakdown) (numErrs, cells int64)

// runBinaryPass runs the Birth or Merger decomposition: workers pull whole
// binaries, accumulate into private buffers, and fold into the shared
// spectrum exactly once at the end. The fold order varies between runs, so
// results are reproducible only up to floating-point rounding.
func (e *Engine) runBinaryPass(ctx context.Context, pass Pass, fn binaryPassFunc) error {
	prior, err := e.priorSpectrum(pass)
	if err != nil {
		return err
	}
	spectrum := prior.Clone()
	breakdown := NewBreakdown(e.igrid.Len(), e.fgrid.Len())

	var (
		mu       sync.Mutex
		foldErr  error
		numErrs  atomic.Int64
		cells    atomic.Int64
		wg       sync.WaitGroup
		binaries = make(chan population.Record)
	)
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			delta := make([]float64, spectrum.Len())
			bd := NewBreakdown(e.igrid.Len(), e.fgrid.Len())
			for r := range binaries {
				n, c := fn(r, delta, bd)
				numErrs.Add(n)
				cells.Add(c)
			}
			mu.Lock()
			defer mu.Unlock()
			if err := spectrum.addInto(delta); err != nil && foldErr == nil {
				foldErr = err
			}
			breakdown.merge(bd)
		}()
	}

	for _, r := range e.records {
		select {
		case <-ctx.Done():
			close(binaries)
			wg.Wait()
			return ctx.Err()
		case binaries <- r:
		}
	}
	close(binaries)
	wg.Wait()
	if foldErr != nil {
		return foldErr
	}

	e.spectra[pass] = spectrum
	e.breakdowns[pass] = breakdown
	e.stats[pass] = &PassStats{
		Pass:            pass,
		NumericalErrors: numErrs.Load(),
		Contributions:   cells.Load(),
	}
	return nil
}
